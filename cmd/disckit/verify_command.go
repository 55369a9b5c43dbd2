package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"disckit/internal/title"
)

var errVerifyFailed = errors.New("verification failed")

type verifyRow struct {
	Title string `json:"title"`
	Check string `json:"check"`
	Path  string `json:"path"`
	Error string `json:"error"`
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "verify [title-dir...]",
		Short: "Check that every title's files are present",
		RunE: func(cmd *cobra.Command, args []string) error {
			var titles []*title.Title
			if len(args) == 0 {
				cfg := ctx.configValue()
				if err := cfg.RequireLibrary(); err != nil {
					return err
				}
				scanned, err := title.Scan(cmd.Context(), cfg.Paths.LibraryDir)
				if err != nil {
					return err
				}
				titles = scanned
			} else {
				for _, arg := range args {
					t, err := ctx.loadTitle(arg)
					if err != nil {
						return err
					}
					titles = append(titles, t)
				}
			}

			rows := make([]verifyRow, 0)
			for _, t := range titles {
				for _, p := range title.Verify(t) {
					rows = append(rows, verifyRow{
						Title: t.DirectoryName,
						Check: p.Check,
						Path:  p.Path,
						Error: p.Err.Error(),
					})
				}
			}

			if asJSON {
				if err := writeJSON(cmd, rows); err != nil {
					return err
				}
			} else if len(rows) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d titles verified\n", len(titles))
			} else {
				tableRows := make([][]string, 0, len(rows))
				for _, r := range rows {
					tableRows = append(tableRows, []string{r.Title, r.Check, filepath.Base(r.Path), r.Error})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Title", "Check", "File", "Problem"}, tableRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft}))
			}
			if len(rows) > 0 {
				return errVerifyFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
