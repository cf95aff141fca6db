package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cucihub/api/internal/authprovider"
	"github.com/cucihub/api/internal/config"
	"github.com/cucihub/api/internal/database"
	"github.com/cucihub/api/internal/logger"
	"github.com/cucihub/api/internal/payment"
	"github.com/cucihub/api/internal/router"
	"github.com/cucihub/api/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger.Init(cfg.Env)
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal("ping database", zap.Error(err))
	}

	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run()

	gateway := payment.NewSnapGateway(cfg.MidtransServerKey, cfg.Env)
	provider := authprovider.NewClient(cfg.AuthProviderURL, cfg.AuthProviderKey)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(cfg, queries, pool, hub, gateway, provider),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
