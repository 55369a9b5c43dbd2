// Package covers finds cover art for a product identifier and converts it into
// the bitmap the loader shows next to each title.
package covers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"disckit/internal/config"
	"disckit/internal/fileutil"
	"disckit/internal/identify"
	"disckit/internal/logging"
	"disckit/internal/services"
)

const stageName = "covers"

// Extensions lists the source image formats looked up in a covers directory.
var Extensions = []string{".bmp", ".png", ".jpg", ".jpeg"}

// Provider returns raw image bytes for a product identifier, or an error
// carrying services.ErrNotFound when it has none.
type Provider interface {
	Cover(ctx context.Context, productID string) ([]byte, error)
}

// Cache stores source images so they can be applied again later.
type Cache interface {
	PutCover(ctx context.Context, productID string, image []byte) error
}

// DirProvider reads <ID>.<ext> files from a directory. The identifier is tried
// as given, in compact form, and with underscores in place of hyphens.
type DirProvider struct {
	Dir string
}

// Cover implements Provider.
func (p DirProvider) Cover(_ context.Context, productID string) ([]byte, error) {
	if strings.TrimSpace(p.Dir) == "" {
		return nil, services.Wrap(services.ErrNotFound, stageName, "lookup", "no covers directory configured", nil)
	}
	for _, name := range candidateNames(productID) {
		for _, ext := range Extensions {
			for _, variant := range []string{ext, strings.ToUpper(ext)} {
				data, err := os.ReadFile(filepath.Join(p.Dir, name+variant))
				if err == nil {
					return data, nil
				}
				if !errors.Is(err, fs.ErrNotExist) {
					return nil, services.Wrap(services.ErrIO, stageName, "lookup", name+variant, err)
				}
			}
		}
	}
	return nil, services.Wrap(services.ErrNotFound, stageName, "lookup", "no cover for "+productID+" in "+p.Dir, nil)
}

func candidateNames(productID string) []string {
	var names []string
	add := func(v string) {
		for _, n := range names {
			if n == v {
				return
			}
		}
		names = append(names, v)
	}
	for _, id := range []string{productID, identify.Compact(productID)} {
		add(id)
		add(strings.ReplaceAll(id, "-", "_"))
	}
	return names
}

// Chain tries providers in order and returns the first image found.
type Chain []Provider

// Cover implements Provider.
func (c Chain) Cover(ctx context.Context, productID string) ([]byte, error) {
	for _, p := range c {
		if p == nil {
			continue
		}
		data, err := p.Cover(ctx, productID)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, services.ErrNotFound) {
			return nil, err
		}
	}
	return nil, services.Wrap(services.ErrNotFound, stageName, "lookup", "no cover for "+productID, nil)
}

// Options sizes the written bitmap. A zero dimension keeps the source size.
type Options struct {
	Width  int
	Height int
}

// OptionsFromConfig extracts cover sizing from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{Width: cfg.Covers.Width, Height: cfg.Covers.Height}
}

// Applier looks cover art up and writes it as a bitmap.
type Applier struct {
	provider Provider
	cache    Cache
	opts     Options
	logger   *slog.Logger
}

// NewApplier builds an applier. When cache is not nil every image found is
// stored in it as well.
func NewApplier(provider Provider, cache Cache, opts Options, logger *slog.Logger) *Applier {
	return &Applier{provider: provider, cache: cache, opts: opts, logger: logging.NewComponentLogger(logger, stageName)}
}

// Apply writes the cover for productID to dest as a bitmap. It returns a
// NotFound error when no provider has an image or the identifier is unknown.
func (a *Applier) Apply(ctx context.Context, productID, dest string) error {
	logger := logging.WithContext(services.WithStage(ctx, stageName), a.logger)
	if productID == "" || productID == identify.Unknown {
		return services.Wrap(services.ErrNotFound, stageName, "apply", "title has no product id", nil)
	}
	data, err := a.provider.Cover(ctx, productID)
	if err != nil {
		return err
	}
	out, err := Convert(data, a.opts)
	if err != nil {
		return err
	}
	if err := fileutil.WriteFileAtomic(dest, out, 0o644); err != nil {
		return services.Wrap(services.ErrIO, stageName, "write", dest, err)
	}
	if a.cache != nil {
		if err := a.cache.PutCover(ctx, productID, data); err != nil {
			logging.WarnWithContext(logger, "cover not cached", "cover_cache_failed",
				logging.String(logging.FieldProductID, productID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "cover must be found again on the next run"),
			)
		}
	}
	logger.Info("cover applied",
		logging.String(logging.FieldProductID, productID),
		logging.String(logging.FieldPath, dest),
	)
	return nil
}

// Convert decodes a PNG, JPEG or BMP image, scales it to the requested size
// over a black background and encodes it as a 24-bit bitmap.
func Convert(data []byte, opts Options) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, services.Wrap(services.ErrParse, stageName, "decode", "unsupported or corrupt image", err)
	}
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if opts.Width > 0 && opts.Height > 0 {
		width, height = opts.Width, opts.Height
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, dst); err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "encode", "bitmap", err)
	}
	return buf.Bytes(), nil
}
