package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/culler/internal/similarity"
)

var (
	scanWindow int
	scanPreset string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Extract every photo and print the near-duplicate groups",
	Long:  "Scan runs the grouping engine in-process over the whole library without a server and prints the resulting groups. Signatures are cached in the database, so later scans are fast.",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanWindow, "window", 0, "clustering window in minutes (default from config)")
	scanCmd.Flags().StringVar(&scanPreset, "preset", "", "threshold preset: extra-strict, strict, standard, loose, extra-loose")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scanWindow != 0 {
		cfg.Grouping.WindowMinutes = scanWindow
	}
	if scanPreset != "" {
		if _, err := similarity.ParsePreset(scanPreset); err != nil {
			return fmt.Errorf("--preset: %w", err)
		}
		cfg.Grouping.Preset = scanPreset
	}
	if err := cfg.Validate(); err != nil {
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
		return fmt.Errorf("%w (stop the server or use 'culler status')", err)
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := buildApp(ctx, cfg, db, logger)
	if err != nil {
		return err
	}
	defer a.engine.Close()

	start := time.Now()
	if err := a.engine.LoadAll(ctx); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	if err := a.engine.LoadRemaining(ctx); err != nil {
		// Partial results stay usable after an interrupt.
		fmt.Fprintf(os.Stderr, "scan interrupted: %v\n", err)
	}

	snap := a.engine.Snapshot()
	groups := a.engine.Groups()
	out := cmd.OutOrStdout()
	cached, err := db.CountSignatures()
	if err != nil {
		logger.Warn("count signatures", zap.Error(err))
	}
	fmt.Fprintf(out, "%d photos scanned in %s, %d groups (%d signatures in memory, %d on disk)\n",
		snap.Scanned, time.Since(start).Round(time.Millisecond), len(groups), a.cache.Len(), cached)
	if len(groups) == 0 {
		return nil
	}
	fmt.Fprintln(out, renderTable(out, groupHeaders, groupRows(groups, a.library.Path), groupAligns))
	return nil
}
