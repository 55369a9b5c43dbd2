package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"disckit/internal/textutil"
)

type sanitizeRow struct {
	Name     string `json:"name"`
	Valid    bool   `json:"valid"`
	Problem  string `json:"problem,omitempty"`
	Repaired string `json:"repaired,omitempty"`
}

func newSanitizeCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "sanitize <name>...",
		Short:       "Check names against the loader's character rules",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]sanitizeRow, 0, len(args))
			for _, name := range args {
				row := sanitizeRow{Name: name, Valid: true}
				if err := textutil.ValidateName(name); err != nil {
					row.Valid = false
					row.Problem = err.Error()
					row.Repaired = textutil.RepairName(name)
				}
				rows = append(rows, row)
			}
			if asJSON {
				return writeJSON(cmd, rows)
			}
			tableRows := make([][]string, 0, len(rows))
			for _, r := range rows {
				tableRows = append(tableRows, []string{r.Name, yesNo(r.Valid), r.Repaired})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Valid", "Repaired"}, tableRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
