package config

const (
	defaultConfigPath        = "~/.config/disckit/config.toml"
	defaultLogDir            = "~/.local/share/disckit/logs"
	defaultCatalogPath       = "~/.local/share/disckit/catalog.db"
	defaultWorkers           = 2
	defaultCoverWidth        = 80
	defaultCoverHeight       = 84
	defaultStaleStagingHours = 24
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"

	// LibraryDirEnv names the environment variable consulted when
	// paths.library_dir is not set.
	LibraryDirEnv = "DISCKIT_LIBRARY_DIR"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			CatalogPath: defaultCatalogPath,
		},
		Backup: Backup{
			Enabled: true,
		},
		Processing: Processing{
			Workers:              defaultWorkers,
			FixCue:               true,
			MergeTracks:          true,
			ConsolidateMultiDisc: true,
			CompanionIndex:       true,
			RepairNames:          false,
			ApplyCovers:          true,
			IdentifyISOFallback:  true,
			CatalogEnabled:       true,
			StaleStagingHours:    defaultStaleStagingHours,
		},
		Covers: Covers{
			Width:  defaultCoverWidth,
			Height: defaultCoverHeight,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
