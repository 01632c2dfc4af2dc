package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"kanban-board/api"
	"kanban-board/board"
	"kanban-board/kanban"
	"kanban-board/stream"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the board UI and API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	store, logger, cfg, err := opts.newStore(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := stream.NewBroker()
	notifiers := stream.Fanout{broker}
	var dedup api.Deduper
	if cfg.RedisURL != "" {
		rc := redis.NewClient(stream.ParseRedisOptions(cfg.RedisURL))
		defer rc.Close()
		dedup = api.NewRedisDeduper(rc, cfg.IdempotencyTTL)
		instanceID := uuid.NewString()
		notifiers = append(notifiers, stream.NewPublisher(rc, cfg.UpdatesChannel, instanceID, logger))
		go stream.SubscribeUpdates(ctx, logger, rc, cfg.UpdatesChannel, instanceID, reloadOnRemote(store, logger))
		logger.WithFields(log.Fields{"channel": cfg.UpdatesChannel, "instance": instanceID}).Info("serve.updates.subscribed")
	}
	store.SetNotifier(notifiers)

	if err := store.Load(ctx); err != nil {
		logger.WithError(err).Warn("serve.initial_load.failed")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	api.Register(e, store, board.NewDrag(store, logger), broker, dedup, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("serve.listening")
		errCh <- e.Start(cfg.ListenAddr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("serve.shutdown")
	return e.Shutdown(shutdownCtx)
}

// reloadOnRemote refreshes the board after another instance changed a task.
func reloadOnRemote(store *kanban.Store, logger *log.Logger) func(context.Context, stream.Event) {
	return func(ctx context.Context, ev stream.Event) {
		if err := store.Load(ctx); err != nil {
			logger.WithError(err).WithField("task_id", ev.TaskID).Warn("serve.remote_reload.failed")
		}
	}
}
