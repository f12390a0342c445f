// Package transcript obtains one transcript per media URL through a fixed fallback
// chain: captions, direct audio download, HLS re-encode, local speech-to-text.
package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageLocator  Stage = "locator"
	StageCaptions Stage = "captions"
	StageDirect   Stage = "direct_download"
	StageHLS      Stage = "hls_fallback"
	StageSpeech   Stage = "speech"
)

// Outcome is a stage result: a value, or the reason the stage had nothing to offer.
// Unavailable is an expected result that moves the pipeline to its next stage.
type Outcome[T any] struct {
	Value  T
	Reason string
	ok     bool
}

// Found wraps a successful stage value.
func Found[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, ok: true}
}

// Unavailable reports that a stage produced nothing usable.
func Unavailable[T any](format string, args ...any) Outcome[T] {
	return Outcome[T]{Reason: fmt.Sprintf(format, args...)}
}

// OK reports whether the stage produced a value.
func (o Outcome[T]) OK() bool { return o.ok }

// TranscriptResult is the outcome of a text-producing stage.
type TranscriptResult = Outcome[string]

// AudioResult is the outcome of an audio-producing stage.
type AudioResult = Outcome[AudioArtifact]

// foundText returns Found only for text that is non-empty after trimming.
func foundText(text, emptyReason string) TranscriptResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return Unavailable[string]("%s", emptyReason)
	}
	return Found(text)
}

// Pipeline-fatal error kinds. Every error returned by Pipeline.Run is a
// *PipelineError wrapping exactly one of these.
var (
	ErrInvalidLocator      = errors.New("invalid media locator")
	ErrNoAudioAvailable    = errors.New("no audio available")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrCanceled            = errors.New("canceled")
)

// PipelineError names the stage that ended the run and a single-line reason.
type PipelineError struct {
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Error formats as "<stage>: <kind>: <reason>".
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Stage, e.Err, e.Reason)
}

// Unwrap exposes the error kind for errors.Is.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StageReport records one attempted stage.
type StageReport struct {
	Stage  Stage  `json:"stage"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}
