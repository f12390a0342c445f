package transcript

import (
	"context"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_review/internal/engine"
)

// Captioner is the captions stage.
type Captioner interface {
	Fetch(ctx context.Context, loc MediaLocator, language string) TranscriptResult
}

// AudioSource is the audio stage: a primary download and its HLS fallback.
type AudioSource interface {
	Direct(ctx context.Context, loc MediaLocator) AudioResult
	HLS(ctx context.Context, loc MediaLocator) AudioResult
}

// Recognizer is the speech-to-text stage.
type Recognizer interface {
	Transcribe(ctx context.Context, art AudioArtifact, language string) TranscriptResult
}

// StageTimeouts bounds each stage. Zero means no limit beyond the caller's context.
type StageTimeouts struct {
	Captions time.Duration
	Direct   time.Duration
	HLS      time.Duration
	Speech   time.Duration
}

// Transcript is the result of one successful run. It is not modified after Run returns.
type Transcript struct {
	MediaID    string        `json:"media_id"`
	Locator    MediaLocator  `json:"locator"`
	Language   string        `json:"language"`
	Source     Stage         `json:"source"`
	Text       string        `json:"text"`
	Normalized string        `json:"normalized"`
	Attempts   []StageReport `json:"attempts"`
}

// Pipeline runs captions → direct download → HLS re-encode → speech model and
// stops at the first stage that yields text. Each stage runs at most once.
type Pipeline struct {
	captions      Captioner
	audio         AudioSource
	speech        Recognizer
	language      string
	timeouts      StageTimeouts
	keepArtifacts bool
	onStage       func(Stage)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLanguage sets the language used when Run gets none. Default "es".
func WithLanguage(lang string) Option { return func(p *Pipeline) { p.language = lang } }

// WithTimeouts sets per-stage timeouts.
func WithTimeouts(t StageTimeouts) Option { return func(p *Pipeline) { p.timeouts = t } }

// WithKeepArtifacts keeps downloaded audio after the speech stage.
func WithKeepArtifacts(keep bool) Option { return func(p *Pipeline) { p.keepArtifacts = keep } }

// WithStageHook calls fn as each stage starts.
func WithStageHook(fn func(Stage)) Option { return func(p *Pipeline) { p.onStage = fn } }

// NewPipeline assembles a pipeline from its three stages.
func NewPipeline(c Captioner, a AudioSource, r Recognizer, opts ...Option) *Pipeline {
	p := &Pipeline{captions: c, audio: a, speech: r, language: "es"}
	for _, o := range opts {
		o(p)
	}
	return p
}

// New wires the production stages from cfg: a caption provider, yt-dlp/ffmpeg and whisper.cpp.
func New(cfg engine.Config, provider CaptionProvider, models *ModelCache) *Pipeline {
	return NewPipeline(
		NewCaptionSource(provider),
		NewAudioFetcher(cfg),
		NewSpeechTranscriber(cfg, models),
		WithLanguage(cfg.Language),
		WithKeepArtifacts(cfg.KeepArtifacts),
		WithTimeouts(StageTimeouts{
			Captions: cfg.CaptionsTimeout,
			Direct:   cfg.DownloadTimeout,
			HLS:      cfg.HLSTimeout,
			Speech:   cfg.SpeechTimeout,
		}),
	)
}

// withTimeout runs fn under ctx bounded by d (when d > 0).
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) T) T {
	if d <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(ctx)
}

// run is the state of one invocation.
type run struct {
	p       *Pipeline
	ctx     context.Context
	t       Transcript
	started time.Time
}

// enter reports whether stage may start; it may not once the caller's context has ended.
func (r *run) enter(stage Stage) bool {
	if r.ctx.Err() != nil {
		return false
	}
	slog.Debug("pipeline: stage", slog.String("id", r.t.MediaID), slog.String("stage", string(stage)))
	if r.p.onStage != nil {
		r.p.onStage(stage)
	}
	return true
}

func (r *run) record(stage Stage, ok bool, reason string, started time.Time) {
	r.t.Attempts = append(r.t.Attempts, StageReport{Stage: stage, OK: ok, Reason: reason})
	if !ok {
		slog.Warn("pipeline: stage unavailable, falling back", slog.String("id", r.t.MediaID),
			slog.String("stage", string(stage)), slog.String("reason", reason),
			slog.Duration("took", time.Since(started)))
	}
}

// fail ends the run with kind, unless the caller's context ended first.
func (r *run) fail(stage Stage, kind error, reason string) (Transcript, error) {
	if err := r.ctx.Err(); err != nil && kind != ErrInvalidLocator {
		kind, reason = ErrCanceled, err.Error()
	}
	engine.IncrPipeline(false)
	slog.Warn("pipeline failed", slog.String("id", r.t.MediaID), slog.String("stage", string(stage)),
		slog.String("reason", reason), slog.Duration("took", time.Since(r.started)))
	return Transcript{}, &PipelineError{Stage: stage, Reason: reason, Err: kind}
}

func (r *run) done(source Stage, text string) (Transcript, error) {
	r.t.Source = source
	r.t.Text = text
	r.t.Normalized = engine.Punctuate(text)
	engine.IncrPipeline(true)
	slog.Info("pipeline done", slog.String("id", r.t.MediaID), slog.String("source", string(source)),
		slog.Int("chars", len(text)), slog.Duration("took", time.Since(r.started)))
	return r.t, nil
}

// Run obtains the transcript of rawURL in language ("" or "auto" = pipeline default).
// Every error is a *PipelineError wrapping ErrInvalidLocator, ErrNoAudioAvailable,
// ErrTranscriptionFailed or ErrCanceled.
func (p *Pipeline) Run(ctx context.Context, rawURL, language string) (Transcript, error) {
	language = normalizeLanguage(language, p.language)
	r := &run{p: p, ctx: ctx, started: time.Now()}

	loc, err := ParseLocator(rawURL)
	if err != nil {
		return r.fail(StageLocator, ErrInvalidLocator, err.Error())
	}
	r.t = Transcript{MediaID: loc.ID, Locator: loc, Language: language}

	// TryCaptions
	if !r.enter(StageCaptions) {
		return r.fail(StageCaptions, ErrCanceled, "")
	}
	started := time.Now()
	captions := withTimeout(ctx, p.timeouts.Captions, func(ctx context.Context) TranscriptResult {
		return p.captions.Fetch(ctx, loc, language)
	})
	r.record(StageCaptions, captions.OK(), captions.Reason, started)
	if captions.OK() {
		return r.done(StageCaptions, captions.Value)
	}

	// TryDirectDownload
	if !r.enter(StageDirect) {
		return r.fail(StageDirect, ErrCanceled, "")
	}
	started = time.Now()
	audio := withTimeout(ctx, p.timeouts.Direct, func(ctx context.Context) AudioResult {
		return p.audio.Direct(ctx, loc)
	})
	r.record(StageDirect, audio.OK(), audio.Reason, started)

	// TryHlsFallback
	if !audio.OK() {
		directReason := audio.Reason
		if !r.enter(StageHLS) {
			return r.fail(StageHLS, ErrCanceled, "")
		}
		started = time.Now()
		audio = withTimeout(ctx, p.timeouts.HLS, func(ctx context.Context) AudioResult {
			return p.audio.HLS(ctx, loc)
		})
		r.record(StageHLS, audio.OK(), audio.Reason, started)
		if !audio.OK() {
			return r.fail(StageHLS, ErrNoAudioAvailable, "direct: "+directReason+"; hls: "+audio.Reason)
		}
	}

	// TrySpeechModel
	art := audio.Value
	if !p.keepArtifacts {
		defer func() {
			if err := art.Remove(); err != nil {
				slog.Warn("pipeline: artifact cleanup failed", slog.String("path", art.Path), slog.Any("error", err))
			}
		}()
	}
	if !r.enter(StageSpeech) {
		return r.fail(StageSpeech, ErrCanceled, "")
	}
	started = time.Now()
	speech := withTimeout(ctx, p.timeouts.Speech, func(ctx context.Context) TranscriptResult {
		return p.speech.Transcribe(ctx, art, language)
	})
	r.record(StageSpeech, speech.OK(), speech.Reason, started)
	if !speech.OK() {
		return r.fail(StageSpeech, ErrTranscriptionFailed, speech.Reason)
	}
	return r.done(StageSpeech, speech.Value)
}
