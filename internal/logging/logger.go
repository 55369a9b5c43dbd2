package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"disckit/internal/config"
)

// LogFileName is the file written under the configured log directory.
const LogFileName = "disckit.log"

// Supported values for Options.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Outputs lists "stdout", "stderr" or file paths. Empty means stderr.
	Outputs []string
	// Source adds the caller location at every level, not only debug.
	Source bool
	// Color highlights console level labels with ANSI colours.
	Color bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatConsole
	}
	if format != FormatConsole && format != FormatJSON {
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	sink, err := openSink(opts.Outputs)
	if err != nil {
		return nil, err
	}

	level := ParseLevel(opts.Level)
	source := opts.Source || level <= slog.LevelDebug
	if format == FormatJSON {
		return slog.New(newJSONHandler(sink, level, source)), nil
	}
	return slog.New(newConsoleHandler(sink, level, source, opts.Color)), nil
}

// NewFromConfig builds the command logger. Records go to stderr so command
// output on stdout stays clean, and are mirrored into LogFileName when a log
// directory is configured. Console colours are used only for an interactive
// stderr without a mirror file.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	opts := Options{Level: "info", Format: FormatConsole, Outputs: []string{"stderr"}}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.Format = cfg.Logging.Format
		if cfg.Paths.LogDir != "" {
			if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			opts.Outputs = append(opts.Outputs, filepath.Join(cfg.Paths.LogDir, LogFileName))
		}
	}
	opts.Color = len(opts.Outputs) == 1 && interactive(os.Stderr)
	return New(opts)
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "fatal":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func interactive(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// openSink opens every output once and fans records out to all of them.
func openSink(outputs []string) (io.Writer, error) {
	if len(outputs) == 0 {
		return os.Stderr, nil
	}
	seen := make(map[string]bool, len(outputs))
	var writers []io.Writer
	for _, out := range outputs {
		out = strings.TrimSpace(out)
		if out == "" || seen[out] {
			continue
		}
		seen[out] = true
		switch out {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return nil, fmt.Errorf("ensure log directory: %w", err)
			}
			f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", out, err)
			}
			writers = append(writers, f)
		}
	}
	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	default:
		return io.MultiWriter(writers...), nil
	}
}

func sourceLocation(src *slog.Source) string {
	if src == nil || src.File == "" {
		return ""
	}
	return filepath.Base(src.File) + ":" + strconv.Itoa(src.Line)
}
