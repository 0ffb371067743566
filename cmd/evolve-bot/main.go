package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/KemboiK/evolve-bot/internal/config"
	"github.com/KemboiK/evolve-bot/internal/filter"
	"github.com/KemboiK/evolve-bot/internal/gate"
	"github.com/KemboiK/evolve-bot/internal/generator"
	"github.com/KemboiK/evolve-bot/internal/llm"
	"github.com/KemboiK/evolve-bot/internal/pipeline"
	"github.com/KemboiK/evolve-bot/internal/server"
	"github.com/KemboiK/evolve-bot/internal/store"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	var st store.Store
	if cfg.Database.UseInMemory {
		logger.Info("using in-memory store")
		st = store.NewMemory()
	} else {
		st, err = store.NewSQLite(cfg.Database.Path, logger)
		if err != nil {
			logger.Fatal("failed to initialize store", zap.Error(err))
		}
	}
	defer st.Close()

	policy, err := filter.NewPolicy(cfg.Filter.BlockedTerms)
	if err != nil {
		logger.Fatal("failed to build filter policy", zap.Error(err))
	}

	g := gate.New(cfg.Gate.MinAge, cfg.Gate.AllowedRoles, logger)
	sessions := gate.NewSessions()

	var gen pipeline.Generator
	if cfg.LLM.APIKey == "" {
		logger.Info("no provider API key configured, using template replies")
		gen = generator.NewTemplates()
	} else {
		gen = generator.NewOpenAI(llm.NewClient(cfg.LLM), cfg.LLM, logger)
	}

	pipe := pipeline.New(g, policy, gen, st, logger)
	srv := server.New(pipe, g, sessions, st, cfg.Admin.Token, logger)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Info("starting server", zap.String("address", addr))
	if err := srv.Run(addr); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
