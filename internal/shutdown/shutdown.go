// Package shutdown provides graceful HTTP server shutdown with connection draining.
package shutdown

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// GracefulServe starts srv and blocks until SIGTERM or SIGINT.
// On signal it stops accepting connections and drains active ones for up to
// drainTimeout before returning.
func GracefulServe(srv *http.Server, drainTimeout time.Duration, log *logrus.Entry) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()
	return Serve(ctx, srv, drainTimeout, log)
}

// Serve is GracefulServe driven by ctx instead of process signals.
func Serve(ctx context.Context, srv *http.Server, drainTimeout time.Duration, log *logrus.Entry) error {
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	log.WithField("timeout", drainTimeout.String()).Info("draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
		return err
	}
	log.Info("server stopped cleanly")
	return nil
}
