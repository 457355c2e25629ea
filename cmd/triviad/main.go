// Package main provides the trivia server binary: the websocket
// frontend, the room registry, and the question round scheduler in one
// process.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/trivia/internal/config"
	"github.com/cory-johannsen/trivia/internal/frontend/websocket"
	"github.com/cory-johannsen/trivia/internal/game/question"
	"github.com/cory-johannsen/trivia/internal/game/registry"
	"github.com/cory-johannsen/trivia/internal/game/round"
	"github.com/cory-johannsen/trivia/internal/observability"
	"github.com/cory-johannsen/trivia/internal/server"
	"github.com/cory-johannsen/trivia/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting trivia server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("question_source", cfg.Game.QuestionSource),
	)

	// Question source
	var source question.Source
	var pool *postgres.Pool
	switch cfg.Game.QuestionSource {
	case config.SourcePostgres:
		dbStart := time.Now()
		pool, err = postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		repo := postgres.NewQuestionRepository(pool.DB())
		count, err := repo.Count(ctx)
		if err != nil {
			logger.Fatal("counting questions", zap.Error(err))
		}
		logger.Info("question bank connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("questions", count),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		source = repo
	case config.SourceFile:
		fileSource, err := question.NewFileSource(cfg.Game.QuestionsDir)
		if err != nil {
			logger.Fatal("loading questions", zap.Error(err))
		}
		logger.Info("question files loaded",
			zap.String("dir", cfg.Game.QuestionsDir),
			zap.Int("questions", fileSource.Len()),
		)
		source = fileSource
	}

	// Game core
	hub := websocket.NewHub(logger)
	games := registry.New(hub, logger)
	rounds := round.NewRunner(games, source, hub, cfg.Game.QuestionCount, cfg.Game.QuestionDuration(), logger)
	games.SetRoundStarter(rounds)

	// Frontend
	handler := websocket.NewCommandHandler(games, hub, logger)
	acceptor := websocket.NewAcceptor(cfg.Server, hub, handler, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("websocket", acceptor)

	logger.Info("trivia server ready",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
