package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"disckit/internal/services"
)

// Snapshot is the JSON form of a whole catalogue.
type Snapshot struct {
	Version int     `json:"version"`
	Titles  []Entry `json:"titles"`
	Covers  []Cover `json:"covers,omitempty"`
}

// Export writes every title and cached cover to w as indented JSON.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	titles, err := s.List(ctx)
	if err != nil {
		return err
	}
	covers, err := s.Covers(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Snapshot{Version: schemaVersion, Titles: titles, Covers: covers}); err != nil {
		return services.Wrap(services.ErrIO, stageName, "export", "encode snapshot", err)
	}
	return nil
}

// Import upserts the titles and covers of a snapshot read from r and returns
// the number of titles saved. Row ids in the snapshot are ignored.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return 0, services.Wrap(services.ErrParse, stageName, "import", "decode snapshot", err)
	}
	if snap.Version != schemaVersion {
		return 0, services.Wrap(services.ErrValidation, stageName, "import",
			fmt.Sprintf("snapshot version %d, expected %d", snap.Version, schemaVersion), nil)
	}
	saved := 0
	for _, e := range snap.Titles {
		if _, err := s.Save(ctx, e); err != nil {
			return saved, err
		}
		saved++
	}
	for _, c := range snap.Covers {
		if err := s.PutCover(ctx, c.ProductID, c.Image); err != nil {
			return saved, err
		}
	}
	return saved, nil
}
