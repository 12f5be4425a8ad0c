package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"go.uber.org/zap"

	"carechat/internal/config"
	"carechat/internal/core"
	"carechat/internal/db"
	httpserver "carechat/internal/http"
	"carechat/internal/llm"
	"carechat/internal/logging"

	_ "github.com/lib/pq"
)

func main() {
	cfg := config.Load()

	log := logging.New(cfg.App.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	dbConn, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbConn.PingContext(ctx); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}
	if err := db.Migrate(context.Background(), dbConn); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}
	repo := db.NewRepository(dbConn)
	notifier := db.NewNotifier(dbConn, cfg.Database.URL, cfg.App.NotifyChannel, log)

	// A missing credential is fatal for new sessions but the server still
	// serves persisted transcripts; session creation reports the failure.
	var llmClient llm.Client
	if client, err := llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model); err != nil {
		log.Error("model client unavailable", zap.Error(err))
	} else {
		llmClient = client
	}

	registry := core.NewRegistry(time.Duration(cfg.App.SessionTTLMin) * time.Minute)

	srv := httpserver.NewServer(repo, notifier, registry, llmClient, log)

	addr := ":" + cfg.App.Port
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
