package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"disckit/internal/services"
)

// PutCover caches a cover image for a product identifier, replacing any
// previous image.
func (s *Store) PutCover(ctx context.Context, productID string, image []byte) error {
	productID = strings.TrimSpace(productID)
	if productID == "" || len(image) == 0 {
		return services.Wrap(services.ErrValidation, stageName, "put cover", "product id and image are required", nil)
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO covers (product_id, image, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(product_id) DO UPDATE SET image = excluded.image, updated_at = excluded.updated_at`,
		productID, image, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrIO, stageName, "put cover", productID, err)
	}
	return nil
}

// Cover returns the cached image for a product identifier.
func (s *Store) Cover(ctx context.Context, productID string) ([]byte, error) {
	ctx = ensureContext(ctx)
	var image []byte
	err := s.db.QueryRowContext(ctx, "SELECT image FROM covers WHERE product_id = ?", strings.TrimSpace(productID)).Scan(&image)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, stageName, "cover", productID, nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "cover", productID, err)
	}
	return image, nil
}

// Covers returns every cached cover.
func (s *Store) Covers(ctx context.Context) ([]Cover, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT product_id, image, updated_at FROM covers ORDER BY product_id")
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "covers", "query covers", err)
	}
	defer rows.Close()
	var covers []Cover
	for rows.Next() {
		var (
			c       Cover
			updated string
		)
		if err := rows.Scan(&c.ProductID, &c.Image, &updated); err != nil {
			return nil, services.Wrap(services.ErrIO, stageName, "covers", "scan cover", err)
		}
		c.UpdatedAt = parseTime(updated)
		covers = append(covers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "covers", "iterate covers", err)
	}
	return covers, nil
}
