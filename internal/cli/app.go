package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/client"
	"github.com/lazypower/culler/internal/config"
	"github.com/lazypower/culler/internal/engine"
	"github.com/lazypower/culler/internal/faces"
	"github.com/lazypower/culler/internal/library"
	"github.com/lazypower/culler/internal/logging"
	"github.com/lazypower/culler/internal/sigcache"
	"github.com/lazypower/culler/internal/signature"
	"github.com/lazypower/culler/internal/store"
)

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if libraryDir != "" {
		if cfg.Library.Root, err = config.ExpandPath(libraryDir); err != nil {
			return nil, fmt.Errorf("--library: %w", err)
		}
	}
	if dbPath != "" {
		if cfg.Database.Path, err = config.ExpandPath(dbPath); err != nil {
			return nil, fmt.Errorf("--db: %w", err)
		}
	}
	if logLevel != "" {
		if _, err := logging.ParseLevel(logLevel); err != nil {
			return nil, fmt.Errorf("--log-level: %w", err)
		}
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// openDB opens the configured database, falling back to ~/.culler/culler.db.
func openDB(cfg *config.Config) (*store.DB, error) {
	path := cfg.Database.Path
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}

// lockDB takes the single-writer lock next to the database.
func lockDB(db *store.DB) (*flock.Flock, error) {
	lock := flock.New(db.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another culler process is already using " + db.Path)
	}
	return lock, nil
}

func newClient(cfg *config.Config) *client.Client {
	if serverURL != "" {
		return client.New(serverURL)
	}
	if v := os.Getenv(client.EnvURL); v != "" {
		return client.New(v)
	}
	return client.New(cfg.BaseURL())
}

// app bundles the collaborators of an in-process engine.
type app struct {
	engine  *engine.Engine
	library *library.Library
	cache   *sigcache.Cache
}

func buildApp(ctx context.Context, cfg *config.Config, db *store.DB, logger *zap.Logger) (*app, error) {
	if err := cfg.RequireLibrary(); err != nil {
		return nil, err
	}
	opts := cfg.LibraryOptions()
	opts.Logger = logger.Named("library")
	lib, err := library.Open(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open library: %w", err)
	}

	var detector signature.FaceDetector = faces.Noop{}
	if cfg.FacesEnabled() {
		d, err := faces.NewHTTPDetector(cfg.FacesConfig(), logger.Named("faces"))
		if err != nil {
			return nil, fmt.Errorf("face detector: %w", err)
		}
		detector = d
	}

	cache := sigcache.New(db, cfg.CacheTTL(), logger.Named("sigcache"))
	eng, err := engine.New(cfg.EngineConfig(), engine.Deps{
		Source:    lib,
		Bitmaps:   lib,
		Retention: db,
		Deleter:   &pruningDeleter{lib: lib, db: db, cache: cache, logger: logger},
		Extractor: signature.NewExtractor(detector, logger.Named("signature")),
		Quota:     db,
		Cache:     cache,
		Logger:    logger.Named("engine"),
	})
	if err != nil {
		return nil, err
	}
	return &app{engine: eng, library: lib, cache: cache}, nil
}

// pruningDeleter moves photos to the trash and then drops their cached
// signatures. Pruning failures are logged; the photos are already gone.
type pruningDeleter struct {
	lib    *library.Library
	db     *store.DB
	cache  *sigcache.Cache
	logger *zap.Logger
}

func (d *pruningDeleter) Delete(ctx context.Context, ids []string) (int, error) {
	n, err := d.lib.Delete(ctx, ids)
	if err != nil {
		return n, err
	}
	for _, id := range ids {
		d.cache.Forget(id)
	}
	if err := d.db.DeleteSignatures(ids); err != nil {
		d.logger.Warn("prune signatures", zap.Error(err))
	}
	return n, nil
}
