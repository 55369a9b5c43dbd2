package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"disckit/internal/catalog"
	"disckit/internal/cuesheet"
	"disckit/internal/identify"
	"disckit/internal/logging"
	"disckit/internal/multidisc"
	"disckit/internal/services"
	"disckit/internal/textutil"
	"disckit/internal/title"
)

// step is one named piece of a title pipeline.
type step struct {
	name string
	run  func(context.Context) (string, error)
}

// skipError marks a step that decided it had nothing to do.
type skipError struct {
	reason string
}

func (e *skipError) Error() string { return e.reason }

func skipped(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

// runSteps executes steps in order and stops at the first error.
func (m *Manager) runSteps(ctx context.Context, res *Result, steps []step) error {
	for _, s := range steps {
		if err := m.runStep(ctx, res, s); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) runStep(ctx context.Context, res *Result, s step) error {
	ctx = services.WithStage(ctx, s.name)
	logger := logging.WithContext(ctx, m.logger)
	start := time.Now()
	logger.Debug("step started", logging.String(logging.FieldEventType, "step_start"))

	detail, err := s.run(ctx)
	sr := StepResult{Name: s.name, Detail: detail, Duration: time.Since(start)}

	var skip *skipError
	switch {
	case errors.As(err, &skip):
		sr.Outcome = OutcomeSkipped
		sr.Detail = skip.reason
		res.Steps = append(res.Steps, sr)
		logger.Debug("step skipped",
			logging.String(logging.FieldEventType, "step_skipped"),
			logging.String("reason", skip.reason),
		)
		return nil
	case err != nil:
		sr.Outcome = classify(err)
		sr.Err = err
		res.Steps = append(res.Steps, sr)
		m.logStepFailure(ctx, s.name, err)
		return err
	}

	sr.Outcome = OutcomeOK
	res.Steps = append(res.Steps, sr)
	logger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.String("detail", detail),
		logging.Duration("step_duration", sr.Duration),
	)
	return nil
}

// processTitle takes one stand-alone title through the pipeline.
func (m *Manager) processTitle(ctx context.Context, t *title.Title) Result {
	ctx = services.WithTitle(ctx, t.DirectoryName)
	res := Result{Title: t.DirectoryName, Path: t.DirectoryPath}
	previous := t.DirectoryPath
	proc := m.cfg.Processing

	var steps []step
	if proc.RepairNames {
		steps = append(steps, step{StepRepairName, func(context.Context) (string, error) {
			return m.repairName(t)
		}})
	}
	steps = append(steps, step{StepIdentify, func(ctx context.Context) (string, error) {
		return m.identify(ctx, t)
	}})
	if proc.FixCue {
		steps = append(steps, step{StepFixCue, func(context.Context) (string, error) {
			return m.fixCue(t)
		}})
	}
	if proc.MergeTracks {
		steps = append(steps, step{StepMerge, func(ctx context.Context) (string, error) {
			return m.mergeTracks(ctx, t)
		}})
	}
	if proc.CompanionIndex {
		steps = append(steps, step{StepCompanion, func(ctx context.Context) (string, error) {
			return m.generateCompanions(ctx, t)
		}})
	}
	steps = append(steps, m.finishingSteps(t, []string{previous})...)

	res.Err = m.runSteps(ctx, &res, steps)
	res.Title = t.DirectoryName
	res.Path = t.DirectoryPath
	res.ProductID = t.ProductID
	return res
}

// processGroup prepares every disc of a multi-disc group, consolidates the
// group and finishes the resulting title.
func (m *Manager) processGroup(ctx context.Context, g multidisc.Group) Result {
	ctx = services.WithTitle(ctx, g.TargetName())
	res := Result{Title: g.TargetName(), Path: g.TargetPath()}
	previous := make([]string, 0, len(g.Members))
	for _, mbr := range g.Members {
		res.Members = append(res.Members, mbr.DirectoryPath)
		previous = append(previous, mbr.DirectoryPath)
	}
	proc := m.cfg.Processing

	var steps []step
	for _, mbr := range g.Members {
		steps = append(steps, step{StepIdentify, func(ctx context.Context) (string, error) {
			return m.identify(ctx, mbr)
		}})
		if proc.FixCue {
			steps = append(steps, step{StepFixCue, func(context.Context) (string, error) {
				return m.fixCue(mbr)
			}})
		}
		// A track group keeps one file per disc; merging would fuse the discs.
		if proc.MergeTracks && g.Kind == multidisc.KindSiblings {
			steps = append(steps, step{StepMerge, func(ctx context.Context) (string, error) {
				return m.mergeTracks(ctx, mbr)
			}})
		}
	}

	var consolidated *title.Title
	steps = append(steps, step{StepConsolidate, func(ctx context.Context) (string, error) {
		replanned, err := replan(g)
		if err != nil {
			return "", err
		}
		t, r, err := m.consolidator.Consolidate(ctx, replanned)
		if err != nil {
			return "", err
		}
		consolidated = t
		if t.ProductID == "" || t.ProductID == identify.Unknown {
			t.ProductID = groupProductID(replanned.Members)
		}
		return fmt.Sprintf("%d discs, %d tracks into %s%s", len(replanned.Discs), len(r.Tracks), t.DirectoryName,
			textutil.Ternary(len(r.Companions) > 0, fmt.Sprintf(", %d companions", len(r.Companions)), "")), nil
	}})

	if err := m.runSteps(ctx, &res, steps); err != nil {
		res.Err = err
		res.ProductID = groupProductID(g.Members)
		return res
	}

	res.Err = m.runSteps(ctx, &res, m.finishingSteps(consolidated, previous))
	res.Title = consolidated.DirectoryName
	res.Path = consolidated.DirectoryPath
	res.ProductID = consolidated.ProductID
	return res
}

// replan recomputes the group from its refreshed members, since fixing and
// merging changed the files each disc holds.
func replan(g multidisc.Group) (multidisc.Group, error) {
	for _, mbr := range g.Members {
		if err := mbr.Refresh(); err != nil {
			return multidisc.Group{}, err
		}
	}
	groups, _ := multidisc.Plan(g.Members)
	for _, candidate := range groups {
		if candidate.Kind == g.Kind && candidate.TargetName() == g.TargetName() {
			return candidate, nil
		}
	}
	return multidisc.Group{}, services.Wrap(services.ErrInconsistent, "workflow", "consolidate",
		"discs of "+g.TargetName()+" no longer form a group", nil)
}

func groupProductID(members []*title.Title) string {
	for _, mbr := range members {
		if mbr.ProductID != "" && mbr.ProductID != identify.Unknown {
			return mbr.ProductID
		}
	}
	return identify.Unknown
}

// finishingSteps run once a title has its final layout. previous lists the
// directories the title was known under before this run.
func (m *Manager) finishingSteps(t *title.Title, previous []string) []step {
	var steps []step
	if m.cfg.Processing.ApplyCovers {
		steps = append(steps, step{StepCover, func(ctx context.Context) (string, error) {
			return m.applyCover(ctx, t)
		}})
	}
	if m.catalog != nil && m.cfg.Processing.CatalogEnabled {
		steps = append(steps, step{StepCatalog, func(ctx context.Context) (string, error) {
			return m.record(ctx, t, previous)
		}})
	}
	steps = append(steps, step{StepVerify, func(context.Context) (string, error) {
		problems := title.Verify(t)
		if err := title.VerifyError(problems); err != nil {
			return fmt.Sprintf("%d problems", len(problems)), err
		}
		return "all checks passed", nil
	}})
	return steps
}

func (m *Manager) repairName(t *title.Title) (string, error) {
	if err := textutil.ValidateName(t.DirectoryName); err == nil {
		return "", skipped("name valid")
	}
	repaired := textutil.RepairName(t.DirectoryName)
	old := t.DirectoryName
	if err := t.Rename(repaired); err != nil {
		return "", err
	}
	return fmt.Sprintf("%q renamed to %q", old, repaired), nil
}

func (m *Manager) identify(ctx context.Context, t *title.Title) (string, error) {
	primary := t.PrimaryTrack()
	if primary == "" {
		return "", services.Wrap(services.ErrInconsistent, "workflow", "identify", "no track files in "+t.DirectoryPath, nil)
	}
	id, err := m.extractor.Identify(ctx, primary)
	if err != nil {
		return "", err
	}
	t.ProductID = id
	return t.DirectoryName + ": " + id, nil
}

func (m *Manager) fixCue(t *title.Title) (string, error) {
	if t.SheetPath == "" && t.HasIndexFile {
		return "", skipped("companion index present")
	}
	r, err := cuesheet.Fix(t.DirectoryPath, t.SheetPath, t.TrackFiles, m.policy)
	if err != nil {
		return "", err
	}
	if !r.Rewritten {
		return "", skipped("sheet valid")
	}
	if err := t.Refresh(); err != nil {
		return "", err
	}
	return t.DirectoryName + ": " + r.Reason, nil
}

func (m *Manager) mergeTracks(ctx context.Context, t *title.Title) (string, error) {
	if len(t.TrackFiles) < 2 {
		return "", skipped("single track file")
	}
	if t.SheetPath == "" && t.HasIndexFile {
		return "", skipped("companion index present")
	}
	r, err := m.merger.Merge(ctx, t.DirectoryPath)
	if err != nil {
		return "", err
	}
	if r.Skipped {
		return "", skipped("already merged")
	}
	if err := t.Refresh(); err != nil {
		return "", err
	}
	return t.DirectoryName + ": " + r.String(), nil
}

func (m *Manager) generateCompanions(ctx context.Context, t *title.Title) (string, error) {
	if t.HasIndexFile && t.SheetPath == "" {
		return "", skipped("companion index present")
	}
	r, err := m.companions.GenerateTitle(ctx, t.TrackPaths(), t.SheetPaths())
	if err != nil {
		return "", err
	}
	if err := t.Refresh(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d companions, %d sheets removed", len(r.Companions), len(r.RemovedSheets)), nil
}

func (m *Manager) applyCover(ctx context.Context, t *title.Title) (string, error) {
	if t.HasCoverArt {
		return "", skipped("cover present")
	}
	if err := m.covers.Apply(ctx, t.ProductID, t.CoverPath()); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			logging.WarnWithContext(logging.WithContext(ctx, m.logger), "no cover art found", "cover_missing",
				logging.String(logging.FieldProductID, t.ProductID),
				logging.String(logging.FieldImpact, "title shown without cover art"),
				logging.String(logging.FieldErrorHint, "add <product id>.png to the covers directory"),
			)
			return "", skipped("no cover for %s", t.ProductID)
		}
		return "", err
	}
	t.HasCoverArt = true
	return t.CoverPath(), nil
}

func (m *Manager) record(ctx context.Context, t *title.Title, previous []string) (string, error) {
	for _, path := range previous {
		if path == t.DirectoryPath {
			continue
		}
		if err := m.catalog.DeleteByPath(ctx, path); err != nil && !errors.Is(err, services.ErrNotFound) {
			return "", err
		}
	}
	id, err := m.catalog.Save(ctx, catalog.EntryFromTitle(t))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("catalogue id %d", id), nil
}
