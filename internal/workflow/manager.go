package workflow

import (
	"log/slog"

	"disckit/internal/backup"
	"disckit/internal/catalog"
	"disckit/internal/config"
	"disckit/internal/covers"
	"disckit/internal/cu2"
	"disckit/internal/identify"
	"disckit/internal/logging"
	"disckit/internal/merge"
	"disckit/internal/multidisc"
)

// Manager runs batches over the configured library.
type Manager struct {
	cfg    *config.Config
	logger *slog.Logger

	extractor    *identify.Extractor
	merger       *merge.Merger
	companions   *cu2.Generator
	consolidator *multidisc.Consolidator
	covers       *covers.Applier
	catalog      *catalog.Store
	policy       backup.Policy
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	catalog  *catalog.Store
	provider covers.Provider
}

// WithCatalog records every processed title in store and uses it as the
// second cover source after the covers directory.
func WithCatalog(store *catalog.Store) ManagerOption {
	return func(o *managerOptions) {
		o.catalog = store
	}
}

// WithCoverProvider replaces the covers directory lookup.
func WithCoverProvider(p covers.Provider) ManagerOption {
	return func(o *managerOptions) {
		o.provider = p
	}
}

// NewManager constructs a workflow manager for cfg.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	policy := backup.PolicyFromConfig(cfg)

	m := &Manager{
		cfg:        cfg,
		logger:     logger,
		extractor:  identify.NewExtractor(cfg.Processing.IdentifyISOFallback, logger),
		merger:     merge.NewMerger(policy, logger),
		companions: cu2.NewGenerator(policy, logger),
		catalog:    options.catalog,
		policy:     policy,
	}

	var companions *cu2.Generator
	if cfg.Processing.CompanionIndex {
		companions = m.companions
	}
	m.consolidator = multidisc.NewConsolidator(policy, companions, logger)

	var chain covers.Chain
	switch {
	case options.provider != nil:
		chain = append(chain, options.provider)
	case cfg.Paths.CoversDir != "":
		chain = append(chain, covers.DirProvider{Dir: cfg.Paths.CoversDir})
	}
	var cache covers.Cache
	if options.catalog != nil {
		chain = append(chain, options.catalog)
		cache = options.catalog
	}
	m.covers = covers.NewApplier(chain, cache, covers.OptionsFromConfig(cfg), logger)
	return m
}
