package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nantokaworks/chzzk-games/internal/session"
	"github.com/nantokaworks/chzzk-games/internal/shared/logger"
	"go.uber.org/zap"
)

const requestTimeout = 5 * time.Second

var (
	httpServer *http.Server
	sessions   *session.Manager
)

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

// StartWebServer はコントロールAPIとWebSocketハブを立ち上げる。
func StartWebServer(port int, manager *session.Manager) error {
	sessions = manager
	sessions.SetClientCounter(ClientCount)

	mux := http.NewServeMux()

	mux.HandleFunc("/ws", handleWS)

	mux.HandleFunc("/api/draw/start", corsMiddleware(handleDrawStart))
	mux.HandleFunc("/api/draw/stop", corsMiddleware(handleDrawStop))
	mux.HandleFunc("/api/draw/pick", corsMiddleware(handleDrawPick))
	mux.HandleFunc("/api/draw/reset", corsMiddleware(handleDrawReset))
	mux.HandleFunc("/api/draw/clear-history", corsMiddleware(handleDrawClearHistory))

	mux.HandleFunc("/api/vote/start", corsMiddleware(handleVoteStart))
	mux.HandleFunc("/api/vote/end", corsMiddleware(handleVoteEnd))
	mux.HandleFunc("/api/vote/pick", corsMiddleware(handleVotePick))
	mux.HandleFunc("/api/vote/reset", corsMiddleware(handleVoteReset))
	mux.HandleFunc("/api/vote/transfer", corsMiddleware(handleVoteTransfer))

	mux.HandleFunc("/api/roulette/update", corsMiddleware(handleRouletteUpdate))
	mux.HandleFunc("/api/roulette/spin", corsMiddleware(handleRouletteSpin))
	mux.HandleFunc("/api/roulette/reset", corsMiddleware(handleRouletteReset))
	mux.HandleFunc("/api/roulette/presets", corsMiddleware(handleRoulettePresets))

	mux.HandleFunc("/api/events/chat", corsMiddleware(handleChatEvent))
	mux.HandleFunc("/api/events/donation", corsMiddleware(handleDonationEvent))
	mux.HandleFunc("/api/snapshot", corsMiddleware(handleSnapshot))
	mux.HandleFunc("/api/settings", corsMiddleware(handleSettings))

	StartWSHub()

	httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	logger.Info("Starting web server", zap.Int("port", port))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StopWebServer gracefully shuts the HTTP server down.
func StopWebServer(ctx context.Context) error {
	if httpServer == nil {
		return nil
	}
	return httpServer.Shutdown(ctx)
}
