package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/duetware/keepsake/internal/config"
	"github.com/duetware/keepsake/internal/engine"
	"github.com/duetware/keepsake/internal/llm"
	"github.com/duetware/keepsake/internal/notify"
	"github.com/duetware/keepsake/internal/server"
	"github.com/duetware/keepsake/internal/storage"
	"github.com/duetware/keepsake/internal/storage/postgres"
	"github.com/duetware/keepsake/internal/storage/sqlite"
	"github.com/duetware/keepsake/web/handlers"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var backends *storage.Backends
	switch cfg.Storage.Engine {
	case "postgres":
		backends, err = postgres.Open(cfg.Storage.PostgresDSN)
	default:
		backends, err = sqlite.Open(cfg.Storage.DataPath)
	}
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer backends.Close()

	completer, err := llm.NewCompletionService(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM provider: %v", err)
	}
	embedder, err := llm.NewEmbedder(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize embedder: %v", err)
	}
	if embedder == nil {
		log.Println("No embedding model configured, semantic conflict matching disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := handlers.NewWebSocketHub(nil)
	events := engine.MultiSink{hub}
	if cfg.Storage.DataPath != "" {
		events = append(events, notify.NewEventWriter(filepath.Dir(cfg.Storage.DataPath)))
	}
	svc := engine.NewService(backends, completer, engine.ServiceOptions{
		Embedder: embedder,
		Events:   events,
	})

	addr, err := server.Start(ctx, cfg, svc, hub)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("Keepsake memory API running at http://%s", addr)

	// Periodic maintenance sweep, if configured.
	if cfg.Jobs.SweepInterval > 0 {
		go runSweepLoop(ctx, svc, cfg.Jobs.SweepInterval)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second)
}

func runSweepLoop(ctx context.Context, svc *engine.Service, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report, err := svc.Sweep(ctx)
			if err != nil {
				log.Printf("Sweep failed: %v", err)
				continue
			}
			log.Printf("Sweep: users=%d partnerships=%d decayed=%d deactivated=%d insights=%d/%d failures=%d",
				report.UsersSwept, report.PartnershipsSwept, report.Decayed, report.Deactivated,
				report.InsightsCreated, report.InsightsDeactivated, report.Failures)
		case <-ctx.Done():
			return
		}
	}
}
