// Package server provides HTTP server initialization and lifecycle
// management for the Keepsake memory API.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/duetware/keepsake/internal/config"
	"github.com/duetware/keepsake/internal/engine"
	"github.com/duetware/keepsake/web/handlers"
)

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server over the given service.
// The caller creates the WebSocketHub up front so it can be wired as the
// service's event sink; Start owns its run loop and shutdown. Returns the
// actual address being listened on (useful for testing with port 0).
func Start(ctx context.Context, cfg *config.Config, svc *engine.Service, wsHub *handlers.WebSocketHub) (string, error) {
	mux := http.NewServeMux()

	go wsHub.Run()

	rateLimiter := handlers.NewRateLimiter(cfg.Security.RateLimitPerSec, cfg.Security.RateLimitBurst)

	turnHandlers := handlers.NewTurnHandlers(svc)
	memoryHandlers := handlers.NewMemoryHandlers(svc)
	maintenanceHandlers := handlers.NewMaintenanceHandlers(svc)

	mux.HandleFunc("/api/turns", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		turnHandlers.PostTurn(w, r)
	})
	mux.HandleFunc("/api/memories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		memoryHandlers.ListMemories(w, r)
	})
	mux.HandleFunc("/api/memories/{id}/action", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		memoryHandlers.PostAction(w, r)
	})
	mux.HandleFunc("/api/insights", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		memoryHandlers.ListInsights(w, r)
	})

	// Maintenance routes require the shared sweep secret.
	sweepMux := http.NewServeMux()
	sweepMux.HandleFunc("/api/maintenance/sweep", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		maintenanceHandlers.RunSweep(w, r)
	})
	mux.Handle("/api/maintenance/", handlers.RequireSecret(sweepMux, cfg.Security.MaintenanceSecret))

	// Lifecycle event stream.
	mux.Handle("/api/events", wsHub)

	// Health endpoint, used by monitoring. No auth required.
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("server: failed to listen on %s: %w", addr, err)
	}
	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("server: shutdown: %v", err)
		}
		wsHub.Stop()
	}()

	return actualAddr, nil
}
