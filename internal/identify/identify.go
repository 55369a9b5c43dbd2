// Package identify reads the product code (e.g. SLUS-01234) a title was
// pressed with from the leading bytes of its primary track file.
package identify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"

	"disckit/internal/logging"
	"disckit/internal/services"
)

const (
	// ScanLimit is how many leading bytes of a track file are searched.
	ScanLimit = 64 * 1024
	// Unknown is recorded for titles whose product code could not be read.
	Unknown = "UNKNOWN"

	idLength  = 11
	stageName = "identify"
)

// regionCodes is searched in order; the first code present anywhere in the
// window wins regardless of where other codes appear.
var regionCodes = [][]byte{
	[]byte("DTLS_"), []byte("SCES_"), []byte("SLES_"), []byte("SLED_"), []byte("SCED_"),
	[]byte("SCUS_"), []byte("SLUS_"), []byte("SLPS_"), []byte("SCAJ_"), []byte("SLKA_"),
	[]byte("SLPM_"), []byte("SCPS_"), []byte("SCPM_"), []byte("PCPX_"), []byte("PAPX_"),
	[]byte("PTPX_"), []byte("LSP0_"), []byte("LSP1_"), []byte("LSP2_"), []byte("LSP9_"),
	[]byte("SIPS_"), []byte("ESPM_"), []byte("SCZS_"), []byte("SPUS_"), []byte("PBPX_"),
	[]byte("LSP_"),
}

// ProductID scans the first ScanLimit bytes of the track file at path. It
// returns "" when no product code is present. Open and read failures are
// returned as NotFound or IOFailure errors alongside the empty result.
func ProductID(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, stageName, "open", path, err)
		}
		return "", services.Wrap(services.ErrIO, stageName, "open", path, err)
	}
	defer f.Close()

	window := make([]byte, ScanLimit)
	n, err := io.ReadFull(f, window)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", services.Wrap(services.ErrIO, stageName, "read", path, err)
	}
	return FromBytes(window[:n]), nil
}

// FromBytes searches window for a product code and returns it in canonical
// form, or "" when none is present.
func FromBytes(window []byte) string {
	for _, code := range regionCodes {
		i := bytes.Index(window, code)
		if i < 0 {
			continue
		}
		end := min(i+idLength, len(window))
		return canonical(window[i:end])
	}
	return ""
}

// Compact drops the dot many discs carry inside the number ("SLUS-012.34"
// becomes "SLUS-01234"), which is how cover collections name their files.
func Compact(id string) string {
	return strings.ReplaceAll(id, ".", "")
}

func canonical(raw []byte) string {
	text, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		text = raw
	}
	token := strings.TrimRightFunc(string(text), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	return strings.ReplaceAll(token, "_", "-")
}

// Extractor identifies titles, optionally falling back to reading the boot
// executable name from the disc's SYSTEM.CNF.
type Extractor struct {
	ISOFallback bool
	logger      *slog.Logger
}

// NewExtractor builds an extractor. A nil logger discards output.
func NewExtractor(isoFallback bool, logger *slog.Logger) *Extractor {
	return &Extractor{ISOFallback: isoFallback, logger: logging.NewComponentLogger(logger, stageName)}
}

// Identify returns the product code of the track file at path, or Unknown
// when neither the byte scan nor the fallback finds one.
func (e *Extractor) Identify(ctx context.Context, path string) (string, error) {
	logger := logging.WithContext(ctx, e.logger)
	id, err := ProductID(path)
	if err != nil {
		return Unknown, err
	}
	if id != "" {
		logger.Debug("product id found in leading bytes", logging.String(logging.FieldProductID, id))
		return id, nil
	}
	if e.ISOFallback {
		id, err := BootID(path)
		switch {
		case err != nil:
			logger.Debug("system.cnf fallback failed", logging.String(logging.FieldPath, path), logging.Error(err))
		case id != "":
			logger.Debug("product id found in system.cnf", logging.String(logging.FieldProductID, id))
			return id, nil
		}
	}
	logging.WarnWithContext(logger, "no product id found", "identify_unknown",
		logging.String(logging.FieldPath, path),
		logging.String(logging.FieldImpact, "title recorded as "+Unknown+"; cover art lookup skipped"),
		logging.String(logging.FieldErrorHint, "check that the first track file is the data track"),
	)
	return Unknown, nil
}
