// Package reviews turns transcripts into perfume-review data and persists it.
package reviews

import (
	"context"
	"errors"

	"github.com/anatolykoptev/go_review/internal/engine"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("reviews: not found")
	// ErrAlreadyStored is returned by SaveAnalysis when the media id was saved before.
	ErrAlreadyStored = errors.New("reviews: analysis already stored")
)

// Feedback is a user's verdict on one generated output.
type Feedback struct {
	Type    string `json:"type"`
	Result  bool   `json:"result"`
	Content string `json:"content"`
	Prompt  string `json:"prompt,omitempty"`
}

// PerfumeRecord is a stored perfume rating row.
type PerfumeRecord struct {
	ID      int64  `json:"id"`
	VideoID string `json:"video_id"`
	engine.PerfumeParameter
	CreatedAt string `json:"created_at"` // RFC 3339, UTC
}

// Store persists feedback, perfume ratings and word counts.
type Store interface {
	// VideoExists reports whether an analysis was already saved for videoID.
	VideoExists(ctx context.Context, videoID string) (bool, error)
	// SaveAnalysis claims videoID and inserts its word counts and perfumes in
	// one transaction, returning the perfume ids. When videoID is already
	// claimed it writes nothing and returns ErrAlreadyStored.
	SaveAnalysis(ctx context.Context, videoID string, freqs []engine.WordFreq, perfumes []engine.PerfumeParameter) ([]int64, error)
	ListPerfumes(ctx context.Context, videoID string) ([]PerfumeRecord, error)
	// DeletePerfume returns ErrNotFound when no row has the id.
	DeletePerfume(ctx context.Context, id int64) error
	SaveFeedback(ctx context.Context, fb Feedback) (int64, error)
	Close()
}

// ratingArgs flattens the five ratings into query arguments; nil stays NULL.
func ratingArgs(p engine.PerfumeParameter) []any {
	return []any{p.Fragancia, p.Duracion, p.Diseno, p.Calidad, p.Precio}
}

// nullableBrand maps an empty brand to NULL.
func nullableBrand(brand string) *string {
	if brand == "" {
		return nil
	}
	return &brand
}
