package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"disckit/internal/catalog"
	"disckit/internal/fileutil"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and move the title catalogue",
	}
	cmd.AddCommand(newCatalogListCommand(ctx))
	cmd.AddCommand(newCatalogExportCommand(ctx))
	cmd.AddCommand(newCatalogImportCommand(ctx))
	cmd.AddCommand(newCatalogDeleteCommand(ctx))
	return cmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogued titles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(store *catalog.Store) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Catalogue is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(e.ID, 10),
						e.DirectoryName,
						e.ProductID,
						strconv.Itoa(len(e.TrackFiles)),
						yesNo(e.HasCoverArt),
						e.UpdatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				headers := []string{"ID", "Title", "Product ID", "Tracks", "Cover", "Updated"}
				aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
				fmt.Fprintln(out, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCatalogExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the catalogue as JSON to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(store *catalog.Store) error {
				if len(args) == 0 {
					return store.Export(cmd.Context(), cmd.OutOrStdout())
				}
				var buf strings.Builder
				if err := store.Export(cmd.Context(), &buf); err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(args[0], []byte(buf.String()), 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Catalogue exported to %s\n", args[0])
				return nil
			})
		},
	}
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Load titles and covers from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open import: %w", err)
				}
				defer f.Close()
				r = f
			}
			return ctx.withCatalog(func(store *catalog.Store) error {
				n, err := store.Import(cmd.Context(), r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d titles\n", n)
				return nil
			})
		},
	}
}

func newCatalogDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete titles from the catalogue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid id %q", arg)
				}
				ids = append(ids, id)
			}
			return ctx.withCatalog(func(store *catalog.Store) error {
				for _, id := range ids {
					if err := store.Delete(cmd.Context(), id); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d\n", id)
				}
				return nil
			})
		},
	}
}
