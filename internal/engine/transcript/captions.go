package transcript

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/sources"
)

// CaptionProvider returns the caption fragments of a video in one language,
// in playback order.
type CaptionProvider interface {
	Fragments(ctx context.Context, videoID, lang string) ([]string, error)
}

// CaptionSource turns provider captions into a TranscriptResult. It never fails:
// every provider problem becomes Unavailable.
type CaptionSource struct {
	provider CaptionProvider
}

// NewCaptionSource wraps a caption provider.
func NewCaptionSource(p CaptionProvider) *CaptionSource {
	return &CaptionSource{provider: p}
}

// Fetch returns the captions of loc in language joined by single spaces.
func (c *CaptionSource) Fetch(ctx context.Context, loc MediaLocator, language string) TranscriptResult {
	if loc.Kind != KindYouTube {
		return Unavailable[string]("captions not supported for %s media", loc.Kind)
	}
	if loc.ID == "" {
		return Unavailable[string]("%v: no video id", ErrInvalidLocator)
	}
	engine.IncrCaptionRequests()

	fragments, err := c.provider.Fragments(ctx, loc.ID, language)
	switch {
	case errors.Is(err, sources.ErrNoCaptions):
		return Unavailable[string]("no captions for %s", loc.ID)
	case errors.Is(err, sources.ErrLanguageUnavailable):
		return Unavailable[string]("no %s captions for %s", language, loc.ID)
	case err != nil:
		slog.Warn("captions: provider error", slog.String("id", loc.ID), slog.Any("error", err))
		return Unavailable[string]("captions provider: %v", err)
	}

	res := foundText(strings.Join(fragments, " "), "captions are empty")
	if res.OK() {
		engine.IncrCaptionHits()
	}
	return res
}
