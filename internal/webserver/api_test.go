package webserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nantokaworks/gamerguard/internal/env"
	"github.com/nantokaworks/gamerguard/internal/ledger"
	"github.com/nantokaworks/gamerguard/internal/mission"
	"github.com/nantokaworks/gamerguard/internal/synclink"
	"github.com/nantokaworks/gamerguard/internal/types"
)

type memGateway struct {
	values map[string]string
}

func (g *memGateway) Get(key string) (string, bool, error) {
	value, ok := g.values[key]
	return value, ok, nil
}

func (g *memGateway) Set(key, value string) error {
	g.values[key] = value
	return nil
}

type staticProvider struct{}

func (staticProvider) Roast(ctx context.Context, memberName, gameName string, penaltyAmount int) string {
	return "roasted: " + memberName
}

func setupAPITest(t *testing.T) *ledger.Ledger {
	t.Helper()

	gateway := &memGateway{values: map[string]string{}}
	l, err := ledger.New(gateway)
	if err != nil {
		t.Fatalf("ledger.New failed: %v", err)
	}

	engine := mission.NewEngine(l, staticProvider{})
	ctrl, err := mission.NewController(l, gateway, engine, nil)
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	Configure(l, ctrl)
	env.Value.ShareBaseURL = "http://localhost:8080/"
	env.Value.ShareHistoryLimit = 5

	return l
}

func TestHandleMembers_AddListRemove(t *testing.T) {
	l := setupAPITest(t)
	before := len(l.Members())

	postReq := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader(`{"name":"Pigeon King","avatar":"🕊️"}`))
	postRec := httptest.NewRecorder()
	handleMembers(postRec, postReq)
	if postRec.Code != http.StatusCreated {
		t.Fatalf("POST status: got=%d want=%d body=%s", postRec.Code, http.StatusCreated, postRec.Body.String())
	}

	var created types.Member
	if err := json.Unmarshal(postRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode created member: %v", err)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/members", nil)
	getRec := httptest.NewRecorder()
	handleMembers(getRec, getReq)
	var members []types.Member
	if err := json.Unmarshal(getRec.Body.Bytes(), &members); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}
	if len(members) != before+1 {
		t.Fatalf("member count: got=%d want=%d", len(members), before+1)
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/api/members/"+created.ID, nil)
	delRec := httptest.NewRecorder()
	handleMemberByID(delRec, delReq)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status: got=%d want=%d", delRec.Code, http.StatusNoContent)
	}
}

func TestHandleMembers_EmptyNameRejected(t *testing.T) {
	setupAPITest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader(`{"name":"  "}`))
	rec := httptest.NewRecorder()
	handleMembers(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleMission_CreateStatusCancel(t *testing.T) {
	l := setupAPITest(t)
	memberID := l.Members()[0].ID

	body := `{"gameName":"LoL","penaltyAmount":10,"durationMinutes":10,"memberIds":["` + memberID + `"]}`
	postReq := httptest.NewRequest(http.MethodPost, "/api/mission", strings.NewReader(body))
	postRec := httptest.NewRecorder()
	handleMission(postRec, postReq)
	if postRec.Code != http.StatusCreated {
		t.Fatalf("POST status: got=%d want=%d body=%s", postRec.Code, http.StatusCreated, postRec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/mission", nil)
	getRec := httptest.NewRecorder()
	handleMission(getRec, getReq)
	var status missionStatusResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if !status.Active || status.Mission == nil {
		t.Fatalf("expected an active mission, got %+v", status)
	}
	if status.RemainingMS <= 0 {
		t.Fatalf("remaining must be positive right after creation: %d", status.RemainingMS)
	}

	delReq := httptest.NewRequest(http.MethodDelete, "/api/mission", nil)
	delRec := httptest.NewRecorder()
	handleMission(delRec, delReq)
	if delRec.Code != http.StatusNoContent {
		t.Fatalf("DELETE status: got=%d want=%d", delRec.Code, http.StatusNoContent)
	}
}

func TestHandleMission_ValidationErrors(t *testing.T) {
	setupAPITest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/mission", strings.NewReader(`{"gameName":"LoL","penaltyAmount":10,"durationMinutes":10,"memberIds":[]}`))
	rec := httptest.NewRecorder()
	handleMission(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleCheckIn_FlipsParticipantOnline(t *testing.T) {
	l := setupAPITest(t)
	memberID := l.Members()[0].ID
	other := l.Members()[1].ID

	body := `{"gameName":"LoL","penaltyAmount":10,"durationMinutes":10,"memberIds":["` + memberID + `","` + other + `"]}`
	postReq := httptest.NewRequest(http.MethodPost, "/api/mission", strings.NewReader(body))
	handleMission(httptest.NewRecorder(), postReq)

	checkReq := httptest.NewRequest(http.MethodPost, "/api/mission/checkin", strings.NewReader(`{"memberId":"`+memberID+`"}`))
	checkRec := httptest.NewRecorder()
	handleCheckIn(checkRec, checkReq)
	if checkRec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", checkRec.Code, http.StatusOK)
	}

	var status missionStatusResponse
	if err := json.Unmarshal(checkRec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	for _, p := range status.Mission.Participants {
		if p.MemberID == memberID && p.Status != types.ParticipantOnline {
			t.Fatalf("participant not online after check-in: %+v", p)
		}
	}
	if status.Mission.GameState != types.GameStateAssembling {
		t.Fatalf("mission must stay assembling while someone is pending")
	}
}

func TestHandleShare_TokenDecodes(t *testing.T) {
	l := setupAPITest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/share", nil)
	rec := httptest.NewRecorder()
	handleShare(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusOK)
	}

	var resp shareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.Contains(resp.URL, "sync="+resp.Token) {
		t.Fatalf("share url does not embed token: %s", resp.URL)
	}

	snapshot, err := synclink.Decode(resp.Token)
	if err != nil {
		t.Fatalf("share token does not decode: %v", err)
	}
	if len(snapshot.Members) != len(l.Members()) {
		t.Fatalf("snapshot roster size: got=%d want=%d", len(snapshot.Members), len(l.Members()))
	}
}

func TestHandleShareQR_ReturnsPNG(t *testing.T) {
	setupAPITest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/share/qr", nil)
	rec := httptest.NewRecorder()
	handleShareQR(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Fatalf("content type: got=%s want=image/png", got)
	}
}

func TestHandleSyncApply_MalformedTokenLeavesStateUntouched(t *testing.T) {
	l := setupAPITest(t)
	before := l.Members()

	req := httptest.NewRequest(http.MethodPost, "/api/sync/apply", strings.NewReader(`{"token":"not-a-valid-token","confirm":true}`))
	rec := httptest.NewRecorder()
	handleSyncApply(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}

	after := l.Members()
	if len(after) != len(before) {
		t.Fatalf("roster changed by failed sync: got=%d want=%d", len(after), len(before))
	}
}

func TestHandleSyncApply_RequiresConfirmation(t *testing.T) {
	setupAPITest(t)

	token, err := synclink.Encode(synclink.Snapshot{Members: []types.Member{{ID: "x", Name: "Xeno"}}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sync/apply", strings.NewReader(`{"token":"`+token+`"}`))
	rec := httptest.NewRecorder()
	handleSyncApply(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unconfirmed sync must be rejected: got=%d", rec.Code)
	}
}

func TestHandleSyncApply_ReplacesLedger(t *testing.T) {
	l := setupAPITest(t)

	token, err := synclink.Encode(synclink.Snapshot{
		Members: []types.Member{{ID: "x", Name: "Xeno", Avatar: "🦾", TotalPenalties: 30}},
		History: []types.PenaltyRecord{{ID: "h1", MemberName: "Xeno", GameName: "Dota", Amount: 30, Date: "2026-02-01 19:00:00"}},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sync/apply", strings.NewReader(`{"token":"`+token+`","confirm":true}`))
	rec := httptest.NewRecorder()
	handleSyncApply(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	members := l.Members()
	if len(members) != 1 || members[0].Name != "Xeno" {
		t.Fatalf("roster not replaced: %+v", members)
	}
	if len(l.History(0)) != 1 {
		t.Fatalf("history not replaced")
	}
}

func TestHandleSyncPreview_ReportsCounts(t *testing.T) {
	setupAPITest(t)

	token, err := synclink.Encode(synclink.Snapshot{
		Members: []types.Member{{ID: "x", Name: "Xeno"}},
		History: []types.PenaltyRecord{{ID: "h1", MemberName: "Xeno", GameName: "Dota", Amount: 30}},
	})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sync/preview", strings.NewReader(`{"token":"`+token+`"}`))
	rec := httptest.NewRecorder()
	handleSyncPreview(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got=%d want=%d", rec.Code, http.StatusOK)
	}

	var preview syncPreviewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &preview); err != nil {
		t.Fatalf("failed to decode preview: %v", err)
	}
	if preview.Members != 1 || preview.History != 1 {
		t.Fatalf("unexpected preview: %+v", preview)
	}
}
