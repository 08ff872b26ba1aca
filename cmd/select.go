package cmd

import (
	"encoding/json"

	"github.com/agentic-research/tangodb/internal/ingest"
	"github.com/spf13/cobra"
)

var selectCmd = &cobra.Command{
	Use:   "select JSONPATH",
	Short: "Evaluate a JSONPath over the raw loaded documents",
	Long: `The documents form one array in load order, e.g.

  tangodb select '$[*].device[*].tango_name'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		sel, err := ingest.NewSelector(args[0])
		if err != nil {
			return err
		}
		forest, _, err := loadForest(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, v := range sel.Query(forest) {
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
}
