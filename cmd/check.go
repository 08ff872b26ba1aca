package cmd

import (
	"fmt"

	"github.com/agentic-research/tangodb/internal/dbapi"
	"github.com/spf13/cobra"
)

var strict bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and classify the documents, then report counts and problems",
	Args:  cobra.NoArgs,
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

		out := cmd.OutOrStdout()
		lines, err := db.Info()
		if err != nil {
			return err
		}
		for _, line := range lines {
			_, _ = fmt.Fprintln(out, line)
		}
		problems := src.Problems()
		for _, p := range problems {
			_, _ = fmt.Fprintf(out, "problem: %v\n", p)
		}
		if strict && len(problems) > 0 {
			return fmt.Errorf("%d load problems", len(problems))
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().BoolVar(&strict, "strict", false, "Fail when any document was skipped")
	rootCmd.AddCommand(checkCmd)
}
