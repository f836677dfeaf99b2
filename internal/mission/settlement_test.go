package mission

import (
	"context"
	"testing"
	"time"

	"github.com/nantokaworks/gamerguard/internal/ledger"
	"github.com/nantokaworks/gamerguard/internal/types"
)

func newSettlementFixture(t *testing.T) (*Engine, *ledger.Ledger, *fakeProvider) {
	t.Helper()

	l, err := ledger.New(newMemGateway())
	if err != nil {
		t.Fatalf("ledger.New failed: %v", err)
	}
	provider := &fakeProvider{}
	engine := NewEngine(l, provider)
	engine.now = func() time.Time {
		return time.Date(2026, 9, 1, 20, 30, 0, 0, time.UTC)
	}
	return engine, l, provider
}

func TestSettle_ProcessesInOriginalParticipantOrder(t *testing.T) {
	engine, l, provider := newSettlementFixture(t)
	a, _ := l.AddMember("Alice", "🎮")
	b, _ := l.AddMember("Bob", "⚡")
	c, _ := l.AddMember("Carol", "🔥")

	mission := types.Mission{
		ID:            "m1",
		GameName:      "LoL",
		PenaltyAmount: 10,
	}
	pending := []types.Participant{
		{MemberID: c.ID, Status: types.ParticipantPending},
		{MemberID: a.ID, Status: types.ParticipantPending},
		{MemberID: b.ID, Status: types.ParticipantPending},
	}

	entries := engine.Settle(context.Background(), mission, pending)

	if len(entries) != 3 {
		t.Fatalf("entries length: got=%d want=3", len(entries))
	}
	wantOrder := []string{"Carol", "Alice", "Bob"}
	for i, want := range wantOrder {
		if entries[i].Record.MemberName != want {
			t.Fatalf("entry %d member: got=%s want=%s", i, entries[i].Record.MemberName, want)
		}
	}
	if got := provider.calls; len(got) != 3 || got[0] != "Carol" {
		t.Fatalf("provider call order: got=%v", got)
	}
}

func TestSettle_SkipsDeletedMembers(t *testing.T) {
	engine, l, provider := newSettlementFixture(t)
	a, _ := l.AddMember("Alice", "🎮")
	b, _ := l.AddMember("Bob", "⚡")
	if err := l.RemoveMember(b.ID); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}

	mission := types.Mission{ID: "m1", GameName: "LoL", PenaltyAmount: 10}
	pending := []types.Participant{
		{MemberID: b.ID, Status: types.ParticipantPending},
		{MemberID: a.ID, Status: types.ParticipantPending},
	}

	entries := engine.Settle(context.Background(), mission, pending)

	if len(entries) != 1 {
		t.Fatalf("entries length: got=%d want=1", len(entries))
	}
	if entries[0].Record.MemberName != "Alice" {
		t.Fatalf("surviving entry: got=%s want=Alice", entries[0].Record.MemberName)
	}
	if provider.callCount() != 1 {
		t.Fatalf("provider calls: got=%d want=1 (deleted member must cause no side effects)", provider.callCount())
	}
}

func TestSettle_RecordFields(t *testing.T) {
	engine, l, _ := newSettlementFixture(t)
	a, _ := l.AddMember("Alice", "🎮")

	mission := types.Mission{ID: "m1", GameName: "Valorant", PenaltyAmount: 25}
	entries := engine.Settle(context.Background(), mission, []types.Participant{
		{MemberID: a.ID, Status: types.ParticipantPending},
	})

	if len(entries) != 1 {
		t.Fatalf("entries length: got=%d want=1", len(entries))
	}
	record := entries[0].Record
	if record.ID == "" {
		t.Fatalf("record ID must be set")
	}
	if record.GameName != "Valorant" || record.Amount != 25 {
		t.Fatalf("record mismatch: %+v", record)
	}
	if record.Date != "2026-09-01 20:30:00" {
		t.Fatalf("record date: got=%s", record.Date)
	}
	if record.Roast != "roasted: Alice" {
		t.Fatalf("record roast: got=%s", record.Roast)
	}
}
