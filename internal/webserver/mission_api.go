package webserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nantokaworks/gamerguard/internal/mission"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"github.com/nantokaworks/gamerguard/internal/types"
	"go.uber.org/zap"
)

type createMissionRequest struct {
	GameName        string   `json:"gameName"`
	PenaltyAmount   int      `json:"penaltyAmount"`
	DurationMinutes int      `json:"durationMinutes"`
	MemberIDs       []string `json:"memberIds"`
}

type missionStatusResponse struct {
	Active      bool           `json:"active"`
	Mission     *types.Mission `json:"mission,omitempty"`
	RemainingMS int64          `json:"remainingMs"`
}

type checkInRequest struct {
	MemberID string `json:"memberId"`
}

// handleMission serves the single mission slot: GET status, POST create,
// DELETE cancel.
func handleMission(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		active, remaining, ok := missionCtrl.Active()
		resp := missionStatusResponse{Active: ok, RemainingMS: remaining.Milliseconds()}
		if ok {
			resp.Mission = &active
		}
		writeJSON(w, http.StatusOK, resp)

	case http.MethodPost:
		var req createMissionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		created, err := missionCtrl.CreateMission(req.GameName, req.PenaltyAmount, req.DurationMinutes, req.MemberIDs)
		if err != nil {
			switch {
			case errors.Is(err, mission.ErrNoParticipants),
				errors.Is(err, mission.ErrEmptyGameName),
				errors.Is(err, mission.ErrInvalidDuration),
				errors.Is(err, mission.ErrInvalidPenalty):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, mission.ErrSettlementInProgress):
				http.Error(w, err.Error(), http.StatusConflict)
			default:
				logger.Error("Failed to create mission", zap.Error(err))
				http.Error(w, "Failed to create mission", http.StatusInternalServerError)
			}
			return
		}
		writeJSON(w, http.StatusCreated, created)

	case http.MethodDelete:
		if err := missionCtrl.CancelMission(); err != nil {
			if errors.Is(err, mission.ErrSettlementInProgress) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			logger.Error("Failed to cancel mission", zap.Error(err))
			http.Error(w, "Failed to cancel mission", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleCheckIn marks a participant online. Check-ins outside an assembling
// mission are ignored, mirroring the controller contract.
func handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MemberID == "" {
		http.Error(w, "memberId is required", http.StatusBadRequest)
		return
	}

	missionCtrl.CheckIn(req.MemberID)

	active, remaining, ok := missionCtrl.Active()
	resp := missionStatusResponse{Active: ok, RemainingMS: remaining.Milliseconds()}
	if ok {
		resp.Mission = &active
	}
	writeJSON(w, http.StatusOK, resp)
}
