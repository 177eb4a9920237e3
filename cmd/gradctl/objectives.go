package main

import (
	"github.com/spf13/cobra"

	"github.com/copyleftdev/gradviz/internal/optimization"
)

var objectivesFormat string

var objectivesCmd = &cobra.Command{
	Use:   "objectives",
	Short: "List the test functions",
	RunE: func(cmd *cobra.Command, args []string) error {
		descs := make([]optimization.Description, 0, registry.Len())
		for _, obj := range registry.All() {
			descs = append(descs, optimization.Describe(obj))
		}
		return writeOutput(cmd.OutOrStdout(), objectivesFormat, descs, func() string {
			return formatObjectives(descs)
		})
	},
}

func init() {
	objectivesCmd.Flags().StringVar(&objectivesFormat, "format", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(objectivesCmd)
}
