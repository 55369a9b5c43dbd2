package catalog

import (
	"time"

	"disckit/internal/title"
)

// Entry is one catalogued title.
type Entry struct {
	ID            int64     `json:"id"`
	DirectoryName string    `json:"directory_name"`
	DirectoryPath string    `json:"directory_path"`
	ProductID     string    `json:"product_id,omitempty"`
	DiscNumber    int       `json:"disc_number"`
	HasCoverArt   bool      `json:"has_cover_art"`
	HasIndexFile  bool      `json:"has_index_file"`
	DiscPaths     []string  `json:"disc_paths,omitempty"`
	TrackFiles    []string  `json:"track_files,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// EntryFromTitle captures the catalogue view of a scanned title.
func EntryFromTitle(t *title.Title) Entry {
	e := Entry{
		DirectoryName: t.DirectoryName,
		DirectoryPath: t.DirectoryPath,
		ProductID:     t.ProductID,
		DiscNumber:    t.DiscNumber,
		HasCoverArt:   t.HasCoverArt,
		HasIndexFile:  t.HasIndexFile,
		DiscPaths:     append([]string(nil), t.RelatedDiscPaths...),
	}
	for _, f := range t.TrackFiles {
		e.TrackFiles = append(e.TrackFiles, f.Name)
	}
	return e
}

// Cover is a cached cover image.
type Cover struct {
	ProductID string    `json:"product_id"`
	Image     []byte    `json:"image"`
	UpdatedAt time.Time `json:"updated_at"`
}
