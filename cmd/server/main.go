package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/party-lobby-backend/internal/config"
	"github.com/DoyleJ11/party-lobby-backend/internal/engine"
	"github.com/DoyleJ11/party-lobby-backend/internal/httpapi"
	"github.com/DoyleJ11/party-lobby-backend/internal/hub"
	"github.com/DoyleJ11/party-lobby-backend/internal/logging"
	"github.com/DoyleJ11/party-lobby-backend/internal/room"
)

func main() {
	// .env is optional; env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rules := engine.Rules{TeamCapacity: cfg.Game.TeamCapacity}

	h := hub.NewHub(ctx, logger)

	// The default room exists from boot so the auth routes always have a
	// place to put players.
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.EnsureRoom{Code: httpapi.DefaultRoomCode, State: engine.NewState(rules), Reply: reply}
	<-reply

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: httpapi.SetupRoutes(h, httpapi.Options{
			Rules:          rules,
			RoomCodeLength: cfg.Game.RoomCodeLength,
			ClientBuffer:   cfg.Game.ClientBuffer,
		}, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Inbox() <- hub.ShutdownHub{}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
