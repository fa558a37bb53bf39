package cli

import (
	"github.com/spf13/cobra"
)

// Persistent flags shared by every command.
var (
	configPath string
	libraryDir string
	dbPath     string
	logLevel   string
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:          "culler",
	Short:        "Group near-duplicate photos and keep the best shot",
	Long:         "Culler groups burst and near-duplicate photos taken close together, picks the sharpest of each group and moves the rest to a trash folder once you confirm.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.config/culler/config.toml or ./culler.toml)")
	pf.StringVar(&libraryDir, "library", "", "photo directory (overrides library.root)")
	pf.StringVar(&dbPath, "db", "", "database path (overrides database.path and $CULLER_DB)")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&serverURL, "url", "", "server address for client commands (default $CULLER_URL or the configured server)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(retentionCmd)
	rootCmd.AddCommand(configCmd)
}
