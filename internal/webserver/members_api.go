package webserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nantokaworks/gamerguard/internal/ledger"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"go.uber.org/zap"
)

type memberRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// handleMembers serves the roster: GET lists, POST recruits a new member.
func handleMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, squadLedger.Members())
	case http.MethodPost:
		var req memberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		member, err := squadLedger.AddMember(strings.TrimSpace(req.Name), req.Avatar)
		if err != nil {
			if errors.Is(err, ledger.ErrEmptyName) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("Failed to add member", zap.Error(err))
			http.Error(w, "Failed to add member", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, member)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleMemberByID serves /api/members/{id}: PUT edits, DELETE removes.
func handleMemberByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/members/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req memberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		member, err := squadLedger.UpdateMember(id, strings.TrimSpace(req.Name), req.Avatar)
		if err != nil {
			if errors.Is(err, ledger.ErrMemberNotFound) {
				http.Error(w, "Member not found", http.StatusNotFound)
				return
			}
			logger.Error("Failed to update member", zap.Error(err), zap.String("member_id", id))
			http.Error(w, "Failed to update member", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, member)
	case http.MethodDelete:
		if err := squadLedger.RemoveMember(id); err != nil {
			if errors.Is(err, ledger.ErrMemberNotFound) {
				http.Error(w, "Member not found", http.StatusNotFound)
				return
			}
			logger.Error("Failed to remove member", zap.Error(err), zap.String("member_id", id))
			http.Error(w, "Failed to remove member", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleLeaderboard lists the roster sorted by accumulated penalties.
func handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, squadLedger.Leaderboard())
}
