package cmd

import (
	"fmt"
	"io"

	"github.com/agentic-research/tangodb/internal/dbapi"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec COMMAND [ARGS...]",
	Short: "Run one database command and print its result, one value per line",
	Long: `Run one DataBaseds command against the loaded documents, e.g.

  tangodb exec DbGetDeviceProperty sys/tg_test/1 '*'

Mutations are not written back unless a snapshot is configured.`,
	Args: cobra.MinimumNArgs(1),
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

		flusher, err := startSnapshots(cfg, db, src, logger)
		if err != nil {
			return err
		}
		if flusher != nil {
			defer func() { _ = flusher.Close() }()
		}

		out, err := dbapi.Dispatch(db, args[0], args[1:])
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), out)
		return nil
	},
}

func printResult(w io.Writer, out []string) {
	for _, v := range out {
		_, _ = fmt.Fprintln(w, v)
	}
}

func init() {
	rootCmd.AddCommand(execCmd)
}
