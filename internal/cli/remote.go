package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/culler/internal/client"
	"github.com/lazypower/culler/internal/engine"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running server's review session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := remoteClient()
		if err != nil {
			return err
		}
		snap, err := c.Session()
		if err != nil {
			return err
		}
		printSnapshot(cmd.OutOrStdout(), snap)
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Finalize the current group and move to the next one",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := remoteClient()
		if err != nil {
			return err
		}
		advanced, err := c.Advance()
		if errors.Is(err, engine.ErrQuotaExceeded) {
			return fmt.Errorf("daily quota used up, come back tomorrow")
		}
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !advanced {
			fmt.Fprintln(out, "no group to review")
			return nil
		}
		snap, err := c.Session()
		if err != nil {
			return err
		}
		printSnapshot(out, snap)
		return nil
	},
}

var toggleCmd = &cobra.Command{
	Use:   "toggle <asset-id>...",
	Short: "Flip the keep mark of photos",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := remoteClient()
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := c.Toggle(id); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "toggled %d photo(s)\n", len(args))
		return nil
	},
}

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Move every photo queued for deletion to the trash",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := remoteClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !deleteYes {
			snap, err := c.Session()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%d photo(s) queued for deletion; rerun with --yes to delete them\n", snap.Bucket)
			return nil
		}
		n, err := c.DeleteBucket()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d photo(s)\n", n)
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "delete without asking")
}

func remoteClient() (*client.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	c := newClient(cfg)
	if !c.Healthy() {
		return nil, fmt.Errorf("no culler server at %s (start one with 'culler serve')", c.URL())
	}
	return c, nil
}
