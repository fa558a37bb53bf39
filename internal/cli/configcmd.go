package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/culler/internal/config"
)

var (
	sampleStdout bool
	sampleForce  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configSampleCmd = &cobra.Command{
	Use:   "sample [path]",
	Short: "Write a sample configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sampleStdout {
			fmt.Fprint(cmd.OutOrStdout(), config.Sample())
			return nil
		}
		path, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			if path, err = config.ExpandPath(args[0]); err != nil {
				return err
			}
		}
		if !sampleForce {
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return err
			}
		}
		if err := config.CreateSample(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	configSampleCmd.Flags().BoolVar(&sampleStdout, "stdout", false, "print the sample instead of writing it")
	configSampleCmd.Flags().BoolVar(&sampleForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configSampleCmd)
}
