package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// fakeRunner simulates command execution.
type fakeRunner struct {
	run func(ctx context.Context, name string, args ...string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, name, args...)
}

type fakeCaptions struct {
	res   TranscriptResult
	calls int
	fn    func(ctx context.Context)
}

func (f *fakeCaptions) Fetch(ctx context.Context, _ MediaLocator, _ string) TranscriptResult {
	f.calls++
	if f.fn != nil {
		f.fn(ctx)
	}
	return f.res
}

type fakeAudio struct {
	direct, hls           AudioResult
	directCalls, hlsCalls int
}

func (f *fakeAudio) Direct(context.Context, MediaLocator) AudioResult {
	f.directCalls++
	return f.direct
}

func (f *fakeAudio) HLS(context.Context, MediaLocator) AudioResult {
	f.hlsCalls++
	return f.hls
}

type fakeSpeech struct {
	res   TranscriptResult
	calls int
	got   AudioArtifact
}

func (f *fakeSpeech) Transcribe(_ context.Context, art AudioArtifact, _ string) TranscriptResult {
	f.calls++
	f.got = art
	return f.res
}

const testURL = "https://www.youtube.com/watch?v=ABC123"

func noCaptions() *fakeCaptions {
	return &fakeCaptions{res: Unavailable[string]("no captions for ABC123")}
}

func artifact(t *testing.T, name string, stage Stage) AudioArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	mustWriteFile(t, path, "RIFF")
	return AudioArtifact{Path: path, MediaID: "ABC123", Stage: stage, Format: AudioFormat}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPipelineCaptionsShortCircuit(t *testing.T) {
	audio := &fakeAudio{
		direct: Unavailable[AudioArtifact]("must not run"),
		hls:    Unavailable[AudioArtifact]("must not run"),
	}
	speech := &fakeSpeech{res: Unavailable[string]("must not run")}
	p := NewPipeline(&fakeCaptions{res: Found("buen perfume")}, audio, speech)

	got, err := p.Run(context.Background(), testURL, "es")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Text != "buen perfume" || got.Source != StageCaptions {
		t.Fatalf("got text=%q source=%q", got.Text, got.Source)
	}
	if audio.directCalls+audio.hlsCalls+speech.calls != 0 {
		t.Fatalf("later stages ran: direct=%d hls=%d speech=%d", audio.directCalls, audio.hlsCalls, speech.calls)
	}
	if len(got.Attempts) != 1 || !got.Attempts[0].OK {
		t.Errorf("attempts = %+v", got.Attempts)
	}
}

func TestPipelineDirectSkipsHLS(t *testing.T) {
	art := artifact(t, "ABC123-direct.wav", StageDirect)
	audio := &fakeAudio{direct: Found(art), hls: Unavailable[AudioArtifact]("must not run")}
	speech := &fakeSpeech{res: Found("texto reconocido")}
	p := NewPipeline(noCaptions(), audio, speech)

	got, err := p.Run(context.Background(), testURL, "es")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if audio.hlsCalls != 0 {
		t.Errorf("HLS ran %d times after direct success", audio.hlsCalls)
	}
	if speech.calls != 1 {
		t.Errorf("speech ran %d times, want 1", speech.calls)
	}
	if got.Source != StageSpeech || got.Normalized != "texto reconocido." {
		t.Errorf("got source=%q normalized=%q", got.Source, got.Normalized)
	}
}

func TestPipelineHLSArtifactUsed(t *testing.T) {
	art := artifact(t, "ABC123-hls.wav", StageHLS)
	audio := &fakeAudio{direct: Unavailable[AudioArtifact]("yt-dlp exit 1: no formats"), hls: Found(art)}
	speech := &fakeSpeech{res: Found("desde hls")}
	p := NewPipeline(noCaptions(), audio, speech)

	if _, err := p.Run(context.Background(), testURL, "es"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if audio.directCalls != 1 || audio.hlsCalls != 1 {
		t.Errorf("direct=%d hls=%d, want 1 and 1", audio.directCalls, audio.hlsCalls)
	}
	if speech.got.Path != art.Path {
		t.Errorf("speech got %q, want HLS artifact %q", speech.got.Path, art.Path)
	}
}

func TestPipelineNoAudioAvailable(t *testing.T) {
	audio := &fakeAudio{
		direct: Unavailable[AudioArtifact]("yt-dlp exit 1: unsupported URL"),
		hls:    Unavailable[AudioArtifact]("ffmpeg exit 1: invalid data"),
	}
	speech := &fakeSpeech{res: Found("must not run")}
	p := NewPipeline(noCaptions(), audio, speech)

	_, err := p.Run(context.Background(), testURL, "es")
	if !errors.Is(err, ErrNoAudioAvailable) {
		t.Fatalf("err = %v, want ErrNoAudioAvailable", err)
	}
	if speech.calls != 0 {
		t.Errorf("speech ran %d times", speech.calls)
	}
	var perr *PipelineError
	if !errors.As(err, &perr) || perr.Stage != StageHLS {
		t.Fatalf("err = %#v, want *PipelineError at hls stage", err)
	}
	if strings.Contains(err.Error(), "\n") {
		t.Errorf("error spans lines: %q", err.Error())
	}
	if !strings.Contains(perr.Reason, "unsupported URL") || !strings.Contains(perr.Reason, "invalid data") {
		t.Errorf("reason %q lacks stage details", perr.Reason)
	}
}

func TestPipelineWhitespaceSpeechFails(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "downloads", "ABC123.wav")
	mustWriteFile(t, wav, "RIFF")
	runner := &fakeRunner{run: func(_ context.Context, _ string, args ...string) (commandResult, error) {
		mustWriteFile(t, argValue(args, "-of")+".txt", "  ")
		return commandResult{}, nil
	}}
	speech := newTestTranscriber(t, runner)

	audio := &fakeAudio{direct: Found(AudioArtifact{Path: wav, MediaID: "ABC123", Stage: StageDirect})}
	p := NewPipeline(noCaptions(), audio, speech)

	_, err := p.Run(context.Background(), testURL, "es")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("err = %v, want ErrTranscriptionFailed", err)
	}
	if audio.hlsCalls != 0 {
		t.Errorf("HLS ran after direct success")
	}
	if _, statErr := os.Stat(wav); !os.IsNotExist(statErr) {
		t.Errorf("artifact %s not removed after speech stage", wav)
	}
}

func TestPipelineCaptionsScenario(t *testing.T) {
	provider := &fakeProvider{fragments: []string{"hola", "mundo"}}
	p := NewPipeline(NewCaptionSource(provider), &fakeAudio{}, &fakeSpeech{})

	got, err := p.Run(context.Background(), testURL, "")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Text != "hola mundo" {
		t.Errorf("text = %q, want %q", got.Text, "hola mundo")
	}
	if got.Normalized != "hola mundo." {
		t.Errorf("normalized = %q, want %q", got.Normalized, "hola mundo.")
	}
	if got.MediaID != "ABC123" || got.Language != "es" {
		t.Errorf("media id = %q language = %q", got.MediaID, got.Language)
	}
	if provider.gotID != "ABC123" || provider.gotLang != "es" {
		t.Errorf("provider asked for %q/%q", provider.gotID, provider.gotLang)
	}
}

func TestPipelineAutoLanguageUsesDefault(t *testing.T) {
	provider := &fakeProvider{fragments: []string{"hola"}}
	p := NewPipeline(NewCaptionSource(provider), &fakeAudio{}, &fakeSpeech{}, WithLanguage("pt"))

	got, err := p.Run(context.Background(), testURL, "auto")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if got.Language != "pt" || provider.gotLang != "pt" {
		t.Errorf("language = %q, provider asked for %q, want pt", got.Language, provider.gotLang)
	}
}

func TestPipelineIdempotent(t *testing.T) {
	newPipeline := func() *Pipeline {
		art := AudioArtifact{Path: "downloads/ABC123.wav", MediaID: "ABC123", Stage: StageDirect, Format: AudioFormat}
		return NewPipeline(noCaptions(), &fakeAudio{direct: Found(art)},
			&fakeSpeech{res: Found("primera frase. segunda frase")}, WithKeepArtifacts(true))
	}
	a, errA := newPipeline().Run(context.Background(), testURL, "es")
	b, errB := newPipeline().Run(context.Background(), testURL, "es")
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v, %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("runs differ:\n%+v\n%+v", a, b)
	}
	if a.Normalized != "primera frase. Segunda frase." {
		t.Errorf("normalized = %q", a.Normalized)
	}
}

func TestPipelineInvalidLocator(t *testing.T) {
	captions := noCaptions()
	p := NewPipeline(captions, &fakeAudio{}, &fakeSpeech{})
	_, err := p.Run(context.Background(), "not a url", "es")
	if !errors.Is(err, ErrInvalidLocator) {
		t.Fatalf("err = %v, want ErrInvalidLocator", err)
	}
	if captions.calls != 0 {
		t.Errorf("captions ran for an invalid locator")
	}
}

func TestPipelineCanceledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	captions := &fakeCaptions{res: Unavailable[string]("deadline"), fn: func(context.Context) { cancel() }}
	audio := &fakeAudio{direct: Unavailable[AudioArtifact]("must not run")}
	p := NewPipeline(captions, audio, &fakeSpeech{})

	_, err := p.Run(ctx, testURL, "es")
	if !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	var perr *PipelineError
	if errors.As(err, &perr) && perr.Stage != StageDirect {
		t.Errorf("stage = %q, want %q", perr.Stage, StageDirect)
	}
	if audio.directCalls != 0 {
		t.Errorf("direct download ran after cancellation")
	}
}

func TestPipelineStageTimeout(t *testing.T) {
	var hadDeadline bool
	captions := &fakeCaptions{res: Found("ok texto"), fn: func(ctx context.Context) {
		_, hadDeadline = ctx.Deadline()
	}}
	p := NewPipeline(captions, &fakeAudio{}, &fakeSpeech{}, WithTimeouts(StageTimeouts{Captions: time.Minute}))
	if _, err := p.Run(context.Background(), testURL, "es"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !hadDeadline {
		t.Error("captions stage ran without its timeout")
	}
}

func TestPipelineStageHook(t *testing.T) {
	var stages []Stage
	art := AudioArtifact{Path: "x.wav"}
	p := NewPipeline(noCaptions(),
		&fakeAudio{direct: Unavailable[AudioArtifact]("no"), hls: Found(art)},
		&fakeSpeech{res: Found("listo")},
		WithKeepArtifacts(true),
		WithStageHook(func(s Stage) { stages = append(stages, s) }))
	if _, err := p.Run(context.Background(), testURL, "es"); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := []Stage{StageCaptions, StageDirect, StageHLS, StageSpeech}
	if !reflect.DeepEqual(stages, want) {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestPipelineErrorFormat(t *testing.T) {
	err := &PipelineError{Stage: StageSpeech, Reason: "speech model returned no text", Err: ErrTranscriptionFailed}
	want := "speech: transcription failed: speech model returned no text"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

func hasArg(args []string, key string) bool {
	for _, a := range args {
		if a == key {
			return true
		}
	}
	return false
}
