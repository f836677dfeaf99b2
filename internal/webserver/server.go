package webserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nantokaworks/gamerguard/internal/ledger"
	"github.com/nantokaworks/gamerguard/internal/mission"
	"github.com/nantokaworks/gamerguard/internal/shared/logger"
	"go.uber.org/zap"
)

var (
	httpServer  *http.Server
	squadLedger *ledger.Ledger
	missionCtrl *mission.Controller
)

// Configure injects the core dependencies. Must be called before
// StartWebServer and before invoking handlers in tests.
func Configure(l *ledger.Ledger, c *mission.Controller) {
	squadLedger = l
	missionCtrl = c
}

// corsMiddleware adds CORS headers to HTTP handlers
func corsMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		handler(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func StartWebServer(port int) error {
	StartWSHub()

	mux := http.NewServeMux()

	// Roster
	mux.HandleFunc("/api/members", corsMiddleware(handleMembers))
	mux.HandleFunc("/api/members/", corsMiddleware(handleMemberByID))
	mux.HandleFunc("/api/leaderboard", corsMiddleware(handleLeaderboard))

	// Mission lifecycle
	mux.HandleFunc("/api/mission", corsMiddleware(handleMission))
	mux.HandleFunc("/api/mission/checkin", corsMiddleware(handleCheckIn))

	// Penalty history and archives
	mux.HandleFunc("/api/history", corsMiddleware(handleHistory))
	mux.HandleFunc("/api/archives", corsMiddleware(handleArchives))

	// Cross-device sync
	mux.HandleFunc("/api/share", corsMiddleware(handleShare))
	mux.HandleFunc("/api/share/qr", corsMiddleware(handleShareQR))
	mux.HandleFunc("/api/sync/preview", corsMiddleware(handleSyncPreview))
	mux.HandleFunc("/api/sync/apply", corsMiddleware(handleSyncApply))

	// WebSocket event stream (handles its own upgrade, no CORS wrapper)
	mux.HandleFunc("/ws", handleWS)

	httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Web server listening", zap.Int("port", port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Web server stopped unexpectedly", zap.Error(err))
		}
	}()

	return nil
}

// StopWebServer shuts the HTTP server down gracefully.
func StopWebServer() error {
	if httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := httpServer.Shutdown(ctx)
	httpServer = nil
	return err
}
