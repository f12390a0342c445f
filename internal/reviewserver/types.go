package reviewserver

import (
	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
)

// Tool outputs must be JSON objects, so list results are wrapped.

type ReviewsOutput struct {
	VideoURL string                 `json:"video_url"`
	Perfumes []engine.PerfumeReview `json:"perfumes"`
}

type PerfumeListOutput struct {
	VideoID  string                  `json:"video_id"`
	Perfumes []reviews.PerfumeRecord `json:"perfumes"`
	Total    int                     `json:"total"`
}

type PerfumeDeleteInput struct {
	ID int64 `json:"id" jsonschema:"Stored perfume id (from perfume_list)"`
}

type MessageOutput struct {
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message"`
}
