package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger = logger.With(zap.String("session", uuid.NewString()))

	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lock, err := lockDB(db)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer a.engine.Close()

	srv := server.New(a.engine, db, a.library, logger.Named("http"), VersionString())
	addr := cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	failed := make(chan error, 1)

	go func() {
		fmt.Fprintf(os.Stderr, "culler serving on http://%s\n", addr)
		fmt.Fprintf(os.Stderr, "  library: %s\n", a.library.Root())
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	go func() {
		if err := a.engine.LoadAll(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("initial load failed", zap.Error(err))
		}
	}()

	select {
	case <-done:
	case err := <-failed:
		return fmt.Errorf("server error: %w", err)
	}
	fmt.Fprintln(os.Stderr, "\nshutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}
