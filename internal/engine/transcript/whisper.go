package transcript

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anatolykoptev/go_review/internal/engine"
	"golang.org/x/sync/singleflight"
)

// Model is a resolved speech model plus the lane that bounds concurrent inference on it.
type Model struct {
	Size   string
	Device string
	Path   string
	lane   chan struct{}
}

// acquire blocks until an inference slot is free or ctx ends.
func (m *Model) acquire(ctx context.Context) (release func(), err error) {
	select {
	case m.lane <- struct{}{}:
		return func() { <-m.lane }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type modelKey struct{ size, device string }

// ModelCache loads each (size, device) model once and shares it between calls.
// Failed loads are not cached.
type ModelCache struct {
	dir         string
	downloadURL string
	concurrency int
	client      *http.Client

	mu     sync.Mutex
	models map[modelKey]*Model
	group  singleflight.Group
}

// NewModelCache creates an empty cache reading models from cfg.WhisperModelDir.
func NewModelCache(cfg engine.Config) *ModelCache {
	n := cfg.WhisperConcurrency
	if n <= 0 {
		n = 1
	}
	return &ModelCache{
		dir:         cfg.WhisperModelDir,
		downloadURL: strings.TrimRight(cfg.WhisperModelURL, "/"),
		concurrency: n,
		client:      &http.Client{},
		models:      make(map[modelKey]*Model),
	}
}

// modelLoadTimeout bounds a shared model load, which outlives any single caller.
const modelLoadTimeout = 30 * time.Minute

// Get returns the cached model for (size, device), loading it on first use.
// Concurrent first calls share one load. The load runs detached from every
// caller's cancellation; a caller whose ctx ends stops waiting without
// aborting the load for the others.
func (c *ModelCache) Get(ctx context.Context, size, device string) (*Model, error) {
	key := modelKey{size, device}
	c.mu.Lock()
	m, ok := c.models[key]
	c.mu.Unlock()
	if ok {
		return m, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(size+"/"+device, func() (any, error) {
		c.mu.Lock()
		if m, ok := c.models[key]; ok {
			c.mu.Unlock()
			return m, nil
		}
		c.mu.Unlock()

		lctx, cancel := context.WithTimeout(loadCtx, modelLoadTimeout)
		defer cancel()
		path, err := c.resolve(lctx, size)
		if err != nil {
			return nil, err
		}
		m := &Model{Size: size, Device: device, Path: path, lane: make(chan struct{}, c.concurrency)}
		c.mu.Lock()
		c.models[key] = m
		c.mu.Unlock()
		engine.IncrModelLoads()
		slog.Info("speech model loaded", slog.String("size", size),
			slog.String("device", device), slog.String("path", path))
		return m, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Model), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve finds ggml-<size>.bin in the model dir, downloads it when a URL is
// configured, or falls back to the first .bin/.gguf file in the dir.
func (c *ModelCache) resolve(ctx context.Context, size string) (string, error) {
	dir := strings.TrimSpace(c.dir)
	if dir == "" {
		return "", fmt.Errorf("whisper model dir is not configured")
	}
	info, err := os.Stat(dir)
	if err == nil && !info.IsDir() {
		return dir, nil
	}

	want := filepath.Join(dir, "ggml-"+size+".bin")
	if _, err := os.Stat(want); err == nil {
		return want, nil
	}
	if c.downloadURL != "" {
		if err := c.download(ctx, c.downloadURL+"/ggml-"+size+".bin", want); err != nil {
			return "", err
		}
		return want, nil
	}
	return resolveModelPath(dir)
}

// download fetches a model file atomically: tmp file, then rename.
func (c *ModelCache) download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return c.client.Do(req)
	})
	if err != nil {
		return fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download model: HTTP %d from %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	slog.Info("speech model downloaded", slog.String("path", dest))
	return os.Rename(tmp.Name(), dest)
}

// resolveModelPath returns the first .bin or .gguf file in dir, sorted by name.
func resolveModelPath(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".bin" || ext == ".gguf" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", dir)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

// normalizeLanguage maps "auto" and empty language to fallback, so whisper
// never auto-detects.
func normalizeLanguage(raw, fallback string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return fallback
	}
	return lang
}

// buildWhisperArgs builds whisper.cpp args for a txt transcript in the forced language.
// Translation (-tr) is never requested.
func buildWhisperArgs(modelPath, audioPath, textBase, language, device string) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", textBase,
		"-otxt",
		"-np",
		"-l", language,
	}
	if strings.EqualFold(device, "cpu") {
		args = append(args, "-ng")
	}
	return args
}

// SpeechTranscriber runs whisper.cpp over an audio artifact.
type SpeechTranscriber struct {
	whisperPath string
	size        string
	device      string
	language    string
	models      *ModelCache
	runner      commandRunner
	// OnLog, if set, receives every subprocess invocation.
	OnLog func(CommandLog)
}

// NewSpeechTranscriber creates a transcriber sharing models through cache.
func NewSpeechTranscriber(cfg engine.Config, cache *ModelCache) *SpeechTranscriber {
	return &SpeechTranscriber{
		whisperPath: cfg.WhisperPath,
		size:        cfg.WhisperModelSize,
		device:      cfg.WhisperDevice,
		language:    normalizeLanguage(cfg.Language, "es"),
		models:      cache,
		runner:      execRunner{},
	}
}

// Transcribe recognizes speech in art. Model or inference failures and blank
// output are all Unavailable.
func (s *SpeechTranscriber) Transcribe(ctx context.Context, art AudioArtifact, language string) TranscriptResult {
	engine.IncrSpeechRuns()
	res := s.transcribe(ctx, art, language)
	if !res.OK() {
		engine.IncrSpeechFailures()
	}
	return res
}

func (s *SpeechTranscriber) transcribe(ctx context.Context, art AudioArtifact, language string) TranscriptResult {
	model, err := s.models.Get(ctx, s.size, s.device)
	if err != nil {
		return Unavailable[string]("load %s model: %v", s.size, err)
	}
	release, err := model.acquire(ctx)
	if err != nil {
		return Unavailable[string]("wait for speech model: %v", err)
	}
	defer release()

	base := strings.TrimSuffix(art.Path, filepath.Ext(art.Path))
	fallback := s.language
	if fallback == "" {
		fallback = "es"
	}
	args := buildWhisperArgs(model.Path, art.Path, base, normalizeLanguage(language, fallback), s.device)
	log, err := runLogged(ctx, s.runner, s.OnLog, s.whisperPath, args)
	if err != nil {
		return Unavailable[string]("%s", failureReason(log, err))
	}

	textPath := base + ".txt"
	content, err := os.ReadFile(textPath)
	if err != nil {
		return Unavailable[string]("whisper completed but %s is missing", textPath)
	}
	_ = os.Remove(textPath)
	return foundText(string(content), "speech model returned no text")
}
