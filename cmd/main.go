package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campuscup/bracket-system/brackets"
	"github.com/campuscup/bracket-system/config"
	"github.com/campuscup/bracket-system/db"
	"github.com/campuscup/bracket-system/handlers"
	"github.com/campuscup/bracket-system/repositories"
	"github.com/campuscup/bracket-system/routes"
	"github.com/campuscup/bracket-system/services"
	"github.com/campuscup/bracket-system/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DatabaseURL, 10*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close()

	transactor := db.NewTransactor(database)
	tournamentRepo := repositories.NewPostgresTournamentRepository(database)
	teamRepo := repositories.NewPostgresTournamentTeamRepository(database)
	roundRepo := repositories.NewPostgresRoundRepository(database)
	matchRepo := repositories.NewPostgresMatchRepository(database)
	eventRepo := repositories.NewPostgresMatchEventRepository(database)
	leaderboardRepo := repositories.NewPostgresLeaderboardRepository(database)

	hub := brackets.NewHub(logger)
	go hub.Run()

	var archiver services.TournamentArchiver
	if cfg.ArchivalEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewTournamentArchiver(uploader)
	} else {
		logger.Warn("tournament archival disabled, R2 configuration is incomplete")
	}

	tournamentService := services.NewTournamentService(transactor, tournamentRepo, teamRepo, roundRepo, matchRepo, archiver, logger)
	bracketService := services.NewBracketService(transactor, tournamentRepo, teamRepo, roundRepo, matchRepo)
	progressionService := services.NewProgressionService(transactor, tournamentRepo, teamRepo, roundRepo, matchRepo, eventRepo, hub, archiver, logger)
	eventService := services.NewMatchEventService(transactor, matchRepo, eventRepo, hub)
	undoService := services.NewUndoService(transactor, tournamentRepo, roundRepo, matchRepo, eventRepo, hub)
	leaderboardService := services.NewLeaderboardService(transactor, tournamentRepo, matchRepo, leaderboardRepo)

	router := routes.InitRoutes(routes.Handlers{
		Tournaments: handlers.NewTournamentHandler(tournamentService, bracketService),
		Matches:     handlers.NewMatchHandler(progressionService, eventService, undoService),
		Leaderboard: handlers.NewLeaderboardHandler(leaderboardService),
		WebSocket:   handlers.NewWebSocketHandler(hub, eventService, logger),
	}, cfg.JWTSecretKey)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server listening", slog.Int("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	<-shutdown
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
