package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/germanamz/searchsmart/cmd/searchsmart/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func runServe(opts cliOptions, addr string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, closeLog, err := loadEngine(opts, os.Stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	if addr == "" {
		addr = eng.Config().Server.Addr
	}

	log := eng.Logger()
	srv := &http.Server{
		Addr:              addr,
		Handler:           httpapi.NewServer(httpapi.EngineBackend{Engine: eng}, log).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}
