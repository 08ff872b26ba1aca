package cmd

import (
	"fmt"

	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/dbapi"
	"github.com/agentic-research/tangodb/internal/persist"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot OUT.db",
	Short: "Write the loaded configuration to a SQLite snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		src, err := loadSource(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		db := dbapi.New(src, dbapi.WithLogger(logger))

		var records []any
		_ = db.View(func(s *datasource.Source) error {
			records = persist.Records(s)
			return nil
		})
		meta, err := persist.Write(cmd.Context(), args[0], cfg.Identity, records)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records to %s (generation %s)\n", meta.Records, args[0], meta.Generation)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
