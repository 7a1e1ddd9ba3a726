package main

import (
	"context"

	"github.com/hellofresh/health-go/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/weilan/team-roster/internal/api"
	"github.com/weilan/team-roster/internal/auth"
	"github.com/weilan/team-roster/internal/config"
	"github.com/weilan/team-roster/internal/repository"
	"github.com/weilan/team-roster/internal/service"
	"github.com/weilan/team-roster/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	logger, err := logger.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("starting application")

	cfg := config.LoadConfig()
	if cfg.TokenSecret != "" {
		auth.TokenSecretKey = cfg.TokenSecret
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err = pool.Ping(context.Background()); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	logger.Info("database connection established")

	playerRepo := repository.NewPgxPlayerRepository(pool)
	teamRepo := repository.NewPgxTeamRepository(pool)
	identityRepo := repository.NewPgxIdentityRequestRepository(pool)
	teamRequestRepo := repository.NewPgxTeamRequestRepository(pool)

	players := service.NewPlayerService().WithPlayerRepo(playerRepo)
	teams := service.NewTeamService().WithPlayerRepo(playerRepo).WithTeamRepo(teamRepo)
	identity := service.NewIdentityService().
		WithPlayerRepo(playerRepo).
		WithTeamRepo(teamRepo).
		WithRequestRepo(identityRepo)
	roster := service.NewRosterService().
		WithPlayerRepo(playerRepo).
		WithTeamRepo(teamRepo).
		WithRequestRepo(teamRequestRepo)
	reconciler := service.NewReconcilerService().
		WithPlayerRepo(playerRepo).
		WithTeamRepo(teamRepo)

	healthChecker := api.MustNewHealthChecker(health.Config{
		Name: "postgres",
		Check: func(ctx context.Context) error {
			return pool.Ping(ctx)
		},
	})

	e := echo.New()

	handler := api.NewHandler(logger).
		WithHealthChecker(healthChecker).
		WithAdminPasswordHash(cfg.AdminPasswordHash).
		WithPlayerService(players).
		WithTeamService(teams).
		WithIdentityService(identity).
		WithRosterService(roster).
		WithReconcilerService(reconciler)

	handler.RegisterRoutes(e)

	logger.Info("server starting", zap.String("addr", cfg.ServerAddr))
	if err = e.Start(cfg.ServerAddr); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}
