package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ewilliams-labs/tastemap/internal/logging"
)

// ServerConfig holds the listener settings for Serve.
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. It returns nil after a clean shutdown.
func Serve(ctx context.Context, cfg ServerConfig, handler http.Handler) error {
	log := logging.Component("rest")

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	log.Info().Str("addr", cfg.Addr).Msg("tastemap API listening")

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-serverErr
	}
}
