package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"disckit/internal/services"
)

const stageName = "catalog"

const titleColumns = `id, directory_name, directory_path, product_id, disc_number,
        has_cover_art, has_index_file, created_at, updated_at`

// Save upserts e keyed by directory path, replacing its disc paths and track
// files, and returns the row id.
func (s *Store) Save(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.DirectoryPath) == "" {
		return 0, services.Wrap(services.ErrValidation, stageName, "save", "directory path is required", nil)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if e.DiscNumber <= 0 {
		e.DiscNumber = 1
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `INSERT INTO titles (
            directory_name, directory_path, product_id, disc_number,
            has_cover_art, has_index_file, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(directory_path) DO UPDATE SET
            directory_name = excluded.directory_name,
            product_id = excluded.product_id,
            disc_number = excluded.disc_number,
            has_cover_art = excluded.has_cover_art,
            has_index_file = excluded.has_index_file,
            updated_at = excluded.updated_at
        RETURNING id`,
			e.DirectoryName, e.DirectoryPath, nullableString(e.ProductID), e.DiscNumber,
			boolToInt(e.HasCoverArt), boolToInt(e.HasIndexFile), now, now,
		)
		if err := row.Scan(&id); err != nil {
			return fmt.Errorf("upsert title: %w", err)
		}
		if err := deleteChildren(ctx, tx, id); err != nil {
			return err
		}
		for i, p := range e.DiscPaths {
			if _, err := tx.ExecContext(ctx, "INSERT INTO disc_paths (title_id, position, path) VALUES (?, ?, ?)", id, i, p); err != nil {
				return fmt.Errorf("insert disc path: %w", err)
			}
		}
		for i, name := range e.TrackFiles {
			if _, err := tx.ExecContext(ctx, "INSERT INTO track_files (title_id, position, name) VALUES (?, ?, ?)", id, i, name); err != nil {
				return fmt.Errorf("insert track file: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, services.Wrap(services.ErrIO, stageName, "save", e.DirectoryPath, err)
	}
	return id, nil
}

// List returns every catalogued title ordered by directory name.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+titleColumns+" FROM titles ORDER BY directory_name COLLATE NOCASE, id")
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "list", "query titles", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, stageName, "list", "scan title", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "list", "iterate titles", err)
	}
	for i := range entries {
		if err := s.loadChildren(ctx, &entries[i]); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Get returns the title with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Entry, error) {
	return s.getOne(ctx, "id = ?", id)
}

// FindByPath returns the title stored for a directory path.
func (s *Store) FindByPath(ctx context.Context, path string) (*Entry, error) {
	return s.getOne(ctx, "directory_path = ?", path)
}

func (s *Store) getOne(ctx context.Context, where string, arg any) (*Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+titleColumns+" FROM titles WHERE "+where, arg)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, stageName, "get", fmt.Sprintf("title %v", arg), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrIO, stageName, "get", fmt.Sprintf("title %v", arg), err)
	}
	if err := s.loadChildren(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete removes the title with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := deleteChildren(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM titles WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete title: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return services.Wrap(services.ErrIO, stageName, "delete", fmt.Sprintf("title %d", id), err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, stageName, "delete", fmt.Sprintf("title %d", id), nil)
	}
	return nil
}

// DeleteByPath removes the title stored for a directory path. Missing rows
// are not an error.
func (s *Store) DeleteByPath(ctx context.Context, path string) error {
	e, err := s.FindByPath(ctx, path)
	if err != nil {
		if services.Kind(err) == services.KindNotFound {
			return nil
		}
		return err
	}
	return s.Delete(ctx, e.ID)
}

func deleteChildren(ctx context.Context, tx *sql.Tx, id int64) error {
	for _, table := range []string{"disc_paths", "track_files"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE title_id = ?", id); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) loadChildren(ctx context.Context, e *Entry) error {
	paths, err := s.queryStrings(ctx, "SELECT path FROM disc_paths WHERE title_id = ? ORDER BY position", e.ID)
	if err != nil {
		return services.Wrap(services.ErrIO, stageName, "load", "disc paths", err)
	}
	tracks, err := s.queryStrings(ctx, "SELECT name FROM track_files WHERE title_id = ? ORDER BY position", e.ID)
	if err != nil {
		return services.Wrap(services.ErrIO, stageName, "load", "track files", err)
	}
	e.DiscPaths = paths
	e.TrackFiles = tracks
	return nil
}

func (s *Store) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var (
		e                  Entry
		productID          sql.NullString
		hasCover, hasIndex int
		created, updated   string
	)
	if err := r.Scan(&e.ID, &e.DirectoryName, &e.DirectoryPath, &productID, &e.DiscNumber,
		&hasCover, &hasIndex, &created, &updated); err != nil {
		return Entry{}, err
	}
	e.ProductID = productID.String
	e.HasCoverArt = hasCover != 0
	e.HasIndexFile = hasIndex != 0
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

func nullableString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
