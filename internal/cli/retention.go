package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/culler/internal/store"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Inspect or reset the photos you chose to keep",
}

var retentionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List kept photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		recs, err := db.ListRetained()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, "no kept photos")
			return nil
		}
		fmt.Fprintln(out, renderTable(out,
			[]string{"#", "Asset", "pHash", "dHash", "Kept"},
			retentionRows(recs),
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
		))
		return nil
	},
}

var retentionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget every kept photo so settled groups can surface again",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// A running server must clear its in-memory marks too.
		if c := newClient(cfg); c.Healthy() {
			if err := c.ResetRetention(); err != nil {
				return err
			}
		} else {
			db, err := openDB(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			if err := db.ClearRetained(); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), "retention cleared")
		return nil
	},
}

func init() {
	retentionCmd.AddCommand(retentionListCmd)
	retentionCmd.AddCommand(retentionResetCmd)
}

func retentionRows(recs []store.RetentionRecord) [][]string {
	rows := make([][]string, 0, len(recs))
	for i, r := range recs {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.AssetID,
			fmt.Sprintf("%016x", r.PerceptualHash),
			fmt.Sprintf("%016x", r.DifferenceHash),
			time.UnixMilli(r.RetainedAt).Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}
