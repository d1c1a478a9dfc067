package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"admin-panel/internal/app"
	"admin-panel/internal/config"
	apihttp "admin-panel/internal/http"
	"admin-panel/internal/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	a, err := app.New(ctx, cfg, logger, app.Options{AutoTick: true})
	if err != nil {
		logger.Fatal("app init", zap.Error(err))
	}
	defer a.Close()

	// la lectura inicial no bloquea el arranque; mientras tanto el guard responde 503
	go a.Session.Init(ctx)

	sessionHandler := apihttp.NewSessionHandler(logger, a.Guard)
	otpHandler := apihttp.NewOTPHandler(logger, a.Guard)
	router := apihttp.NewRouter(logger, a.Guard, a.Limiter, sessionHandler, otpHandler, metrics.Handler(a.Registry))

	server := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("addr", cfg.ListenAddr()), zap.String("session_backend", cfg.SessionBackend))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
