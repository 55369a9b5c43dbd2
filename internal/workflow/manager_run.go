package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"disckit/internal/logging"
	"disckit/internal/multidisc"
	"disckit/internal/preflight"
	"disckit/internal/runlock"
	"disckit/internal/services"
	"disckit/internal/staging"
	"disckit/internal/title"
)

var errUnitSkipped = errors.New("batch cancelled before title started")

// unit is the smallest piece of work handed to a worker.
type unit struct {
	group  *multidisc.Group
	single *title.Title
}

func (u unit) name() string {
	if u.group != nil {
		return u.group.TargetName()
	}
	return u.single.DirectoryName
}

// Run processes every title directory under the library root.
func (m *Manager) Run(ctx context.Context) (Report, error) {
	return m.run(ctx, nil)
}

// RunTitles processes only the given title directories. Multi-disc groups are
// planned among them, not against the whole library.
func (m *Manager) RunTitles(ctx context.Context, dirs []string) (Report, error) {
	if len(dirs) == 0 {
		return Report{}, services.Wrap(services.ErrValidation, "workflow", "run", "no title directories given", nil)
	}
	return m.run(ctx, dirs)
}

func (m *Manager) run(ctx context.Context, dirs []string) (Report, error) {
	if err := m.cfg.RequireLibrary(); err != nil {
		return Report{}, err
	}
	report := Report{RunID: uuid.NewString(), Started: time.Now()}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, m.logger)

	if err := m.runPreflightChecks(ctx, logger); err != nil {
		return report, err
	}

	lock, err := runlock.Acquire(m.cfg.Paths.LibraryDir)
	if err != nil {
		return report, services.Wrap(services.ErrValidation, "workflow", "lock library", m.cfg.Paths.LibraryDir, err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("library lock not released", logging.Error(err))
		}
	}()

	maxAge := time.Duration(m.cfg.Processing.StaleStagingHours) * time.Hour
	cleaned := staging.CleanStale(ctx, m.cfg.Paths.LibraryDir, maxAge, logger)
	report.Cleaned = cleaned.Removed

	titles, err := m.loadTitles(ctx, dirs)
	if err != nil {
		return report, err
	}
	units := m.planUnits(titles)

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("titles", len(titles)),
		logging.Int("units", len(units)),
		logging.Int("workers", m.workers()),
	)

	report.Results = m.runUnits(ctx, units)
	report.Duration = time.Since(report.Started)

	counts := report.Counts()
	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("ok", counts[OutcomeOK]),
		logging.Int("failed", counts[OutcomeFailed]),
		logging.Int("review", counts[OutcomeReview]),
		logging.Int("skipped", counts[OutcomeSkipped]),
		logging.Duration("duration", report.Duration),
	)
	return report, nil
}

func (m *Manager) loadTitles(ctx context.Context, dirs []string) ([]*title.Title, error) {
	if dirs == nil {
		return title.Scan(ctx, m.cfg.Paths.LibraryDir)
	}
	titles := make([]*title.Title, 0, len(dirs))
	for _, dir := range dirs {
		t, err := title.Load(dir)
		if err != nil {
			return nil, err
		}
		if len(t.TrackFiles) == 0 {
			return nil, services.Wrap(services.ErrNotFound, "workflow", "load", fmt.Sprintf("no track files in %s", dir), nil)
		}
		titles = append(titles, t)
	}
	return titles, nil
}

// planUnits computes the multi-disc groups over the snapshot before anything
// is touched. With consolidation disabled every title is its own unit.
func (m *Manager) planUnits(titles []*title.Title) []unit {
	if !m.cfg.Processing.ConsolidateMultiDisc {
		units := make([]unit, 0, len(titles))
		for _, t := range titles {
			units = append(units, unit{single: t})
		}
		return units
	}
	groups, singles := multidisc.Plan(titles)
	units := make([]unit, 0, len(groups)+len(singles))
	for i := range groups {
		units = append(units, unit{group: &groups[i]})
	}
	for _, t := range singles {
		units = append(units, unit{single: t})
	}
	return units
}

func (m *Manager) workers() int {
	if m.cfg.Processing.Workers < 1 {
		return 1
	}
	return m.cfg.Processing.Workers
}

// runUnits hands units to the worker pool. Units never return errors to the
// group: a failed title is data on its Result.
func (m *Manager) runUnits(ctx context.Context, units []unit) []Result {
	results := make([][]Result, len(units))
	var g errgroup.Group
	g.SetLimit(m.workers())

	for i, u := range units {
		if ctx.Err() != nil {
			results[i] = skippedResults(u)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = skippedResults(u)
				return nil
			}
			// Started units finish even if the batch is cancelled meanwhile.
			work := context.WithoutCancel(ctx)
			if u.group != nil {
				results[i] = []Result{m.processGroup(work, *u.group)}
			} else {
				results[i] = []Result{m.processTitle(work, u.single)}
			}
			return nil
		})
	}
	_ = g.Wait()

	var flat []Result
	for _, rs := range results {
		flat = append(flat, rs...)
	}
	return flat
}

func skippedResults(u unit) []Result {
	res := Result{Title: u.name(), Err: errUnitSkipped}
	if u.group != nil {
		res.Path = u.group.TargetPath()
		for _, mbr := range u.group.Members {
			res.Members = append(res.Members, mbr.DirectoryPath)
		}
	} else {
		res.Path = u.single.DirectoryPath
	}
	return []Result{res}
}

// runPreflightChecks logs every check and returns an error naming the
// failures, if any.
func (m *Manager) runPreflightChecks(ctx context.Context, logger *slog.Logger) error {
	results := preflight.RunAll(ctx, m.cfg)
	for _, r := range results {
		if r.Passed {
			logger.Info("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported directory and run again"),
		)
	}
	return preflight.Failed(results)
}
