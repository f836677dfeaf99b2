package webserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nantokaworks/gamerguard/internal/env"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"github.com/nantokaworks/gamerguard/internal/synclink"
	"go.uber.org/zap"
)

type shareResponse struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

type syncRequest struct {
	Token   string `json:"token"`
	Confirm bool   `json:"confirm"`
}

type syncPreviewResponse struct {
	Members  int `json:"members"`
	History  int `json:"history"`
	Archives int `json:"archives"`
}

func buildShareToken() (string, error) {
	limit := env.Value.ShareHistoryLimit
	if limit <= 0 {
		limit = 5
	}
	return synclink.Encode(synclink.Snapshot{
		Members:  squadLedger.Members(),
		History:  squadLedger.History(limit),
		Archives: squadLedger.Archives(limit),
	})
}

// handleShare returns the shareable sync link and its raw token.
func handleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token, err := buildShareToken()
	if err != nil {
		logger.Error("Failed to build share token", zap.Error(err))
		http.Error(w, "Failed to build share token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, shareResponse{
		URL:   synclink.ShareURL(env.Value.ShareBaseURL, token),
		Token: token,
	})
}

// handleShareQR renders the share link as a PNG QR code.
func handleShareQR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token, err := buildShareToken()
	if err != nil {
		logger.Error("Failed to build share token", zap.Error(err))
		http.Error(w, "Failed to build share token", http.StatusInternalServerError)
		return
	}

	png, err := synclink.QRCodePNG(synclink.ShareURL(env.Value.ShareBaseURL, token), 0)
	if err != nil {
		logger.Error("Failed to render share QR code", zap.Error(err))
		http.Error(w, "Failed to render QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// handleSyncPreview decodes an inbound token without applying it, so the
// client can show a confirmation step before the destructive replace.
func handleSyncPreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snapshot, err := synclink.Decode(req.Token)
	if err != nil {
		http.Error(w, "Invalid sync token", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, syncPreviewResponse{
		Members:  len(snapshot.Members),
		History:  len(snapshot.History),
		Archives: len(snapshot.Archives),
	})
}

// handleSyncApply performs the destructive replace of roster, history and
// archives. Requires confirm=true; a malformed token leaves local state
// untouched.
func handleSyncApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Confirm {
		http.Error(w, "Sync import requires explicit confirmation", http.StatusBadRequest)
		return
	}

	snapshot, err := synclink.Decode(req.Token)
	if err != nil {
		if errors.Is(err, synclink.ErrInvalidToken) {
			http.Error(w, "Invalid sync token", http.StatusBadRequest)
			return
		}
		logger.Error("Failed to decode sync token", zap.Error(err))
		http.Error(w, "Failed to decode sync token", http.StatusInternalServerError)
		return
	}

	if err := squadLedger.ReplaceAll(snapshot.Members, snapshot.History, snapshot.Archives); err != nil {
		logger.Error("Failed to apply sync snapshot", zap.Error(err))
		http.Error(w, "Failed to apply sync snapshot", http.StatusInternalServerError)
		return
	}

	logger.Info("Sync snapshot applied",
		zap.Int("members", len(snapshot.Members)),
		zap.Int("history", len(snapshot.History)))
	BroadcastWSMessage("sync_applied", syncPreviewResponse{
		Members:  len(snapshot.Members),
		History:  len(snapshot.History),
		Archives: len(snapshot.Archives),
	})

	writeJSON(w, http.StatusOK, map[string]bool{"applied": true})
}
