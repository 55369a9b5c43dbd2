package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"disckit/internal/catalog"
	"disckit/internal/workflow"
)

// errTitlesFailed marks a batch that ran but left titles failed or in review.
var errTitlesFailed = errors.New("some titles failed or need review")

type processStepJSON struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

type processResultJSON struct {
	Title     string            `json:"title"`
	Path      string            `json:"path"`
	ProductID string            `json:"product_id,omitempty"`
	Outcome   string            `json:"outcome"`
	Members   []string          `json:"members,omitempty"`
	Error     string            `json:"error,omitempty"`
	Steps     []processStepJSON `json:"steps"`
}

type processReportJSON struct {
	RunID   string              `json:"run_id"`
	Summary string              `json:"summary"`
	Cleaned []string            `json:"cleaned,omitempty"`
	Results []processResultJSON `json:"results"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var workers int

	cmd := &cobra.Command{
		Use:   "process [title-dir...]",
		Short: "Run the full pipeline over the library or the given titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if err := cfg.RequireLibrary(); err != nil {
				return err
			}
			if workers > 0 {
				cfg.Processing.Workers = workers
			}

			dirs := make([]string, 0, len(args))
			for _, arg := range args {
				dir, err := ctx.resolveTitleDir(arg)
				if err != nil {
					return err
				}
				dirs = append(dirs, dir)
			}

			var report workflow.Report
			runBatch := func(opts ...workflow.ManagerOption) error {
				mgr := workflow.NewManager(cfg, ctx.loggerValue(), opts...)
				var err error
				if len(dirs) > 0 {
					report, err = mgr.RunTitles(cmd.Context(), dirs)
				} else {
					report, err = mgr.Run(cmd.Context())
				}
				return err
			}
			var err error
			if cfg.Processing.CatalogEnabled {
				err = ctx.withCatalog(func(store *catalog.Store) error {
					return runBatch(workflow.WithCatalog(store))
				})
			} else {
				err = runBatch()
			}
			if err != nil {
				return err
			}

			if asJSON {
				if err := writeJSON(cmd, processReportToJSON(report)); err != nil {
					return err
				}
			} else {
				printProcessReport(cmd, report)
			}
			if report.Failed() {
				return errTitlesFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Override processing.workers")
	return cmd
}

func printProcessReport(cmd *cobra.Command, report workflow.Report) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	for _, line := range renderSectionHeader("Titles", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, res := range report.Results {
		fmt.Fprintln(out, renderStatusLine(res.Title, outcomeKind(res.Outcome()), resultMessage(res), colorize))
	}
	for _, path := range report.Cleaned {
		fmt.Fprintln(out, renderStatusLine("Cleanup", statusInfo, "removed "+path, colorize))
	}
	fmt.Fprintln(out, report.Summary())
}

func resultMessage(res workflow.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	var done []string
	for _, s := range res.Steps {
		if s.Outcome == workflow.OutcomeOK && s.Name != workflow.StepVerify {
			done = append(done, s.Name)
		}
	}
	msg := res.ProductID
	if len(done) > 0 {
		msg = strings.TrimSpace(msg + " " + strings.Join(done, ", "))
	}
	return msg
}

func processReportToJSON(report workflow.Report) processReportJSON {
	out := processReportJSON{
		RunID:   report.RunID,
		Summary: report.Summary(),
		Cleaned: report.Cleaned,
		Results: make([]processResultJSON, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		r := processResultJSON{
			Title:     res.Title,
			Path:      res.Path,
			ProductID: res.ProductID,
			Outcome:   string(res.Outcome()),
			Members:   res.Members,
			Steps:     make([]processStepJSON, 0, len(res.Steps)),
		}
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
		for _, s := range res.Steps {
			step := processStepJSON{Name: s.Name, Outcome: string(s.Outcome), Detail: s.Detail}
			if s.Err != nil {
				step.Error = s.Err.Error()
			}
			r.Steps = append(r.Steps, step)
		}
		out.Results = append(out.Results, r)
	}
	return out
}
