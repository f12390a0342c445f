package toolutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/anatolykoptev/go_review/internal/engine/sources"
	"github.com/anatolykoptev/go_review/internal/engine/transcript"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		stage  string
	}{
		{"invalid locator", &transcript.PipelineError{Stage: transcript.StageLocator, Reason: "x", Err: transcript.ErrInvalidLocator}, http.StatusBadRequest, "locator"},
		{"no audio", &transcript.PipelineError{Stage: transcript.StageHLS, Reason: "x", Err: transcript.ErrNoAudioAvailable}, http.StatusUnprocessableEntity, "hls_fallback"},
		{"speech failed", &transcript.PipelineError{Stage: transcript.StageSpeech, Reason: "x", Err: transcript.ErrTranscriptionFailed}, http.StatusUnprocessableEntity, "speech"},
		{"canceled", &transcript.PipelineError{Stage: transcript.StageDirect, Reason: "x", Err: transcript.ErrCanceled}, http.StatusGatewayTimeout, "direct_download"},
		{"invalid input", fmt.Errorf("%w: term is required", reviews.ErrInvalidInput), http.StatusBadRequest, ""},
		{"no perfumes", fmt.Errorf("ABC: %w", reviews.ErrNoPerfumes), http.StatusNotFound, ""},
		{"not found", reviews.ErrNotFound, http.StatusNotFound, ""},
		{"no store", reviews.ErrNoStore, http.StatusServiceUnavailable, ""},
		{"no channel client", fmt.Errorf("channels: youtube client %w", reviews.ErrNotConfigured), http.StatusServiceUnavailable, ""},
		{"no youtube key", sources.ErrYouTubeAPIKey, http.StatusServiceUnavailable, ""},
		{"other", errors.New("llm down"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Describe(tt.err)
			if info.Status != tt.status {
				t.Errorf("status = %d, want %d", info.Status, tt.status)
			}
			if info.Stage != tt.stage {
				t.Errorf("stage = %q, want %q", info.Stage, tt.stage)
			}
			if info.Error != tt.err.Error() {
				t.Errorf("error = %q, want %q", info.Error, tt.err.Error())
			}
		})
	}
}

func TestCall(t *testing.T) {
	got, err := Call(context.Background(), "test_op", func(context.Context) (int, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Fatalf("Call = %d, %v", got, err)
	}
	boom := errors.New("boom")
	_, err = Call(context.Background(), "test_op", func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
