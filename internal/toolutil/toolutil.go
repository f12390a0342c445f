// Package toolutil holds helpers shared by the MCP tools and the REST API.
package toolutil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/anatolykoptev/go_review/internal/engine/sources"
	"github.com/anatolykoptev/go_review/internal/engine/transcript"
)

// Call runs fn as a tracked operation and logs its failure with the failing stage.
func Call[T any](ctx context.Context, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := engine.TrackOperation(ctx, op, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	if err != nil {
		info := Describe(err)
		slog.Warn(op+" failed",
			slog.String("stage", info.Stage),
			slog.Int("status", info.Status),
			slog.Any("error", err))
	}
	return out, err
}

// ErrorInfo describes a failed call independently of the transport.
type ErrorInfo struct {
	Status int    `json:"-"`
	Stage  string `json:"stage,omitempty"`
	Error  string `json:"error"`
}

// Describe maps an error to an HTTP status and, for pipeline failures, the stage that failed.
func Describe(err error) ErrorInfo {
	info := ErrorInfo{Status: http.StatusInternalServerError, Error: err.Error()}
	var pe *transcript.PipelineError
	if errors.As(err, &pe) {
		info.Stage = string(pe.Stage)
	}
	switch {
	case errors.Is(err, transcript.ErrInvalidLocator), errors.Is(err, reviews.ErrInvalidInput):
		info.Status = http.StatusBadRequest
	case errors.Is(err, transcript.ErrCanceled), errors.Is(err, context.DeadlineExceeded):
		info.Status = http.StatusGatewayTimeout
	case pe != nil:
		info.Status = http.StatusUnprocessableEntity
	case errors.Is(err, reviews.ErrNoPerfumes), errors.Is(err, reviews.ErrNotFound):
		info.Status = http.StatusNotFound
	case errors.Is(err, reviews.ErrNoStore), errors.Is(err, reviews.ErrNotConfigured),
		errors.Is(err, sources.ErrSpotifyToken), errors.Is(err, sources.ErrYouTubeAPIKey):
		info.Status = http.StatusServiceUnavailable
	}
	return info
}
