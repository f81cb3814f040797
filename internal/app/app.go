package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vouge2017/ethio-farm-connect-sub000/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Run serves the API until SIGINT or SIGTERM
func Run(cfg *config.Config, log *zap.Logger) error {
	c, err := NewContainer(cfg, log)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return Serve(ctx, c)
}

// Serve runs the change-feed subscriber and the HTTP server until ctx is cancelled
func Serve(ctx context.Context, c *Container) error {
	brokerDone := make(chan error, 1)
	go func() {
		brokerDone <- c.Broker.Run(ctx, c.Hub, nil)
	}()

	srv := &http.Server{
		Addr:         ":" + c.Config.Port,
		Handler:      c.Router(),
		ReadTimeout:  c.Config.ReadTimeout,
		WriteTimeout: c.Config.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		c.Log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", c.Config.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case err := <-brokerDone:
		if err != nil {
			c.Log.Error("change feed stopped", zap.Error(err))
		}
		return err
	case <-ctx.Done():
	}

	c.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// hijacked websockets are not tracked by Shutdown
	c.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
