package reviews

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/sources"
	"github.com/anatolykoptev/go_review/internal/engine/transcript"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidInput marks a request missing a required field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoPerfumes is returned when the analysis found no perfumes.
	ErrNoPerfumes = errors.New("no perfumes found")
	// ErrNoStore is returned by persistence operations when no database is configured.
	ErrNoStore = errors.New("no database configured")
	// ErrNotConfigured is returned when an optional upstream client is missing.
	ErrNotConfigured = errors.New("not configured")
)

// Transcriber produces one transcript per media URL.
type Transcriber interface {
	Run(ctx context.Context, rawURL, language string) (transcript.Transcript, error)
}

// VideoInfo looks up YouTube video metadata.
type VideoInfo interface {
	Info(ctx context.Context, videoID string) (sources.VideoInfo, error)
}

// Podcasts reads Spotify shows and their episodes.
type Podcasts interface {
	Show(ctx context.Context, showURL string) (sources.Show, error)
	Episodes(ctx context.Context, showID string, limit int) ([]sources.Episode, error)
}

// Channels lists a YouTube channel's newest uploads.
type Channels interface {
	Channel(ctx context.Context, channelURL string, limit int) (sources.Channel, error)
}

// Deps are the collaborators of a Service. Store, Cache, Videos, Channels and
// Podcasts may be nil.
type Deps struct {
	Pipeline Transcriber
	Analyzer *engine.Analyzer
	Store    Store
	Cache    *engine.Cache
	Videos   VideoInfo
	Channels Channels
	Podcasts Podcasts
	Language string
}

// Service runs the review workflows on top of the transcript pipeline.
type Service struct {
	pipeline Transcriber
	analyzer *engine.Analyzer
	store    Store
	cache    *engine.Cache
	videos   VideoInfo
	channels Channels
	podcasts Podcasts
	language string
}

// NewService builds a Service. Language defaults to "es".
func NewService(d Deps) *Service {
	if d.Language == "" {
		d.Language = "es"
	}
	return &Service{
		pipeline: d.Pipeline,
		analyzer: d.Analyzer,
		store:    d.Store,
		cache:    d.Cache,
		videos:   d.Videos,
		channels: d.Channels,
		podcasts: d.Podcasts,
		language: d.Language,
	}
}

// Outcome is a processed media item: transcript plus everything derived from it.
type Outcome struct {
	Transcript transcript.Transcript     `json:"transcript"`
	Title      string                    `json:"title,omitempty"`
	Channel    string                    `json:"channel,omitempty"`
	Summary    string                    `json:"summary,omitempty"`
	WordFreqs  []engine.WordFreq         `json:"word_frequencies"`
	TotalWords int                       `json:"total_words"`
	Reviews    []engine.PerfumeReview    `json:"perfume_analysis"`
	Parameters []engine.PerfumeParameter `json:"parameters"`
	Stored     bool                      `json:"stored"`
	Warnings   []string                  `json:"warnings,omitempty"`
}

func (s *Service) lang(l string) string {
	if l = strings.TrimSpace(l); l != "" {
		return l
	}
	return s.language
}

// transcriptKey normalizes the URL through the locator so equivalent links share an entry.
func transcriptKey(prefix, rawURL, lang string) string {
	if loc, err := transcript.ParseLocator(rawURL); err == nil {
		return engine.CacheKey(prefix, string(loc.Kind), loc.ID, lang)
	}
	return engine.CacheKey(prefix, rawURL, lang)
}

// Transcribe runs the pipeline for rawURL, serving repeated requests from the cache.
func (s *Service) Transcribe(ctx context.Context, rawURL, lang string) (transcript.Transcript, error) {
	if strings.TrimSpace(rawURL) == "" {
		return transcript.Transcript{}, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	lang = s.lang(lang)
	key := transcriptKey("transcript", rawURL, lang)
	if t, ok := engine.CacheLoadJSON[transcript.Transcript](ctx, s.cache, key); ok {
		return t, nil
	}
	t, err := s.pipeline.Run(ctx, rawURL, lang)
	if err != nil {
		return transcript.Transcript{}, err
	}
	engine.CacheStoreJSON(ctx, s.cache, key, t)
	return t, nil
}

// Process transcribes rawURL and runs summary, word counts and perfume analysis.
// Analysis failures become warnings; only a transcript failure is an error.
func (s *Service) Process(ctx context.Context, rawURL, lang string) (Outcome, error) {
	lang = s.lang(lang)
	key := transcriptKey("outcome", rawURL, lang)
	if out, ok := engine.CacheLoadJSON[Outcome](ctx, s.cache, key); ok {
		return out, nil
	}

	t, err := s.Transcribe(ctx, rawURL, lang)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Transcript: t}
	out.WordFreqs = engine.WordFrequencies(t.Text)
	out.TotalWords = engine.TotalWords(out.WordFreqs)

	var (
		mu       sync.Mutex
		warnings []string
	)
	warn := func(what string, err error) {
		slog.Warn("analysis step failed", slog.String("media_id", t.MediaID),
			slog.String("step", what), slog.Any("error", err))
		mu.Lock()
		warnings = append(warnings, fmt.Sprintf("%s: %v", what, err))
		mu.Unlock()
	}

	var g errgroup.Group
	if s.videos != nil && t.Locator.Kind == transcript.KindYouTube {
		g.Go(func() error {
			info, err := s.videos.Info(ctx, t.MediaID)
			if err != nil {
				warn("title", err)
				return nil
			}
			out.Title, out.Channel = info.Title, info.Channel
			return nil
		})
	}
	g.Go(func() error {
		summary, err := s.analyzer.Summarize(ctx, t.Normalized)
		if err != nil {
			warn("summary", err)
			return nil
		}
		out.Summary = summary
		return nil
	})
	g.Go(func() error {
		reviews, err := s.analyzer.AnalyzePerfumes(ctx, t.Normalized)
		if err != nil {
			warn("perfume analysis", err)
			return nil
		}
		out.Reviews = reviews
		return nil
	})
	g.Go(func() error {
		params, err := s.analyzer.ExtractParameters(ctx, t.Normalized)
		if err != nil {
			warn("parameters", err)
			return nil
		}
		out.Parameters = params
		return nil
	})
	_ = g.Wait()

	if s.store != nil {
		stored, err := s.persist(ctx, t.MediaID, out.WordFreqs, out.Parameters)
		if err != nil {
			warn("persist", err)
		}
		out.Stored = stored
	}

	sort.Strings(warnings)
	out.Warnings = warnings
	if len(out.Warnings) == 0 {
		engine.CacheStoreJSON(ctx, s.cache, key, out)
	}

	slog.Info("media processed",
		slog.String("media_id", t.MediaID),
		slog.String("source", string(t.Source)),
		slog.Int("perfumes", len(out.Parameters)),
		slog.Int("warnings", len(out.Warnings)))
	return out, nil
}

// persist saves word counts and perfumes once per media id, atomically. It
// reports whether anything was written.
func (s *Service) persist(ctx context.Context, videoID string, freqs []engine.WordFreq, params []engine.PerfumeParameter) (bool, error) {
	_, err := s.store.SaveAnalysis(ctx, videoID, freqs, params)
	if errors.Is(err, ErrAlreadyStored) {
		slog.Debug("media already stored", slog.String("media_id", videoID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ParametersResult is the outcome of a parameter extraction.
type ParametersResult struct {
	VideoID  string                    `json:"video_id,omitempty"`
	Perfumes []engine.PerfumeParameter `json:"perfumes"`
	Message  string                    `json:"message"`
}

// Parameters rates the perfumes in a given transcription, or in the transcript of in.URL.
func (s *Service) Parameters(ctx context.Context, in engine.ParametersInput) (ParametersResult, error) {
	var res ParametersResult
	text := strings.TrimSpace(in.Transcription)
	if text == "" {
		if strings.TrimSpace(in.URL) == "" {
			return res, fmt.Errorf("%w: video_url or transcription is required", ErrInvalidInput)
		}
		t, err := s.Transcribe(ctx, in.URL, in.Language)
		if err != nil {
			return res, err
		}
		res.VideoID, text = t.MediaID, t.Normalized
	}
	params, err := s.analyzer.ExtractParameters(ctx, text)
	if err != nil {
		return res, err
	}
	res.Perfumes = params
	if res.Perfumes == nil {
		res.Perfumes = []engine.PerfumeParameter{}
	}
	res.Message = fmt.Sprintf("%d perfumes analyzed", len(params))
	return res, nil
}

// Reviews returns the per-perfume verdicts for rawURL. No perfumes is ErrNoPerfumes.
func (s *Service) Reviews(ctx context.Context, rawURL, lang string) ([]engine.PerfumeReview, error) {
	t, err := s.Transcribe(ctx, rawURL, lang)
	if err != nil {
		return nil, err
	}
	reviews, err := s.analyzer.AnalyzePerfumes(ctx, t.Normalized)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("%s: %w", t.MediaID, ErrNoPerfumes)
	}
	return reviews, nil
}

// AskResult is an answer about one video.
type AskResult struct {
	VideoID string `json:"video_id"`
	engine.Answer
}

// Ask answers a question from the transcript of in.URL.
func (s *Service) Ask(ctx context.Context, in engine.QuestionInput) (AskResult, error) {
	if strings.TrimSpace(in.Question) == "" {
		return AskResult{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	t, err := s.Transcribe(ctx, in.URL, in.Language)
	if err != nil {
		return AskResult{}, err
	}
	ans, err := s.analyzer.Answer(ctx, t.Normalized, in.Question)
	if err != nil {
		return AskResult{}, err
	}
	return AskResult{VideoID: t.MediaID, Answer: ans}, nil
}

// Define returns a short definition of a perfumery term.
func (s *Service) Define(ctx context.Context, term string) (engine.Definition, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return engine.Definition{}, fmt.Errorf("%w: term is required", ErrInvalidInput)
	}
	return s.analyzer.Define(ctx, term)
}

// SaveFeedback stores a user's verdict on a generated output.
func (s *Service) SaveFeedback(ctx context.Context, in engine.FeedbackInput) (int64, error) {
	if s.store == nil {
		return 0, ErrNoStore
	}
	if strings.TrimSpace(in.Type) == "" || strings.TrimSpace(in.Content) == "" {
		return 0, fmt.Errorf("%w: type and content are required", ErrInvalidInput)
	}
	return s.store.SaveFeedback(ctx, Feedback{Type: in.Type, Result: in.Result, Content: in.Content, Prompt: in.Prompt})
}

// ListPerfumes returns the stored perfumes of a video.
func (s *Service) ListPerfumes(ctx context.Context, videoID string) ([]PerfumeRecord, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	if strings.TrimSpace(videoID) == "" {
		return nil, fmt.Errorf("%w: video_id is required", ErrInvalidInput)
	}
	recs, err := s.store.ListPerfumes(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []PerfumeRecord{}
	}
	return recs, nil
}

// DeletePerfume removes one stored perfume.
func (s *Service) DeletePerfume(ctx context.Context, id int64) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.store.DeletePerfume(ctx, id)
}

// PodcastResult is a show, its latest episodes, and the analysis of the first playable one.
type PodcastResult struct {
	Show     sources.Show     `json:"show"`
	Analyzed *sources.Episode `json:"analyzed_episode,omitempty"`
	Outcome  *Outcome         `json:"outcome,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// AnalyzePodcast lists a show's newest episodes and processes the first one that
// exposes an audio preview.
func (s *Service) AnalyzePodcast(ctx context.Context, in engine.PodcastInput) (PodcastResult, error) {
	var res PodcastResult
	if s.podcasts == nil {
		return res, fmt.Errorf("podcasts: spotify client %w", ErrNotConfigured)
	}
	if strings.TrimSpace(in.URL) == "" {
		return res, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	show, err := s.podcasts.Show(ctx, in.URL)
	if err != nil {
		return res, err
	}
	episodes, err := s.podcasts.Episodes(ctx, show.ID, in.Limit)
	if err != nil {
		return res, err
	}
	show.Episodes = episodes
	res.Show = show

	for i := range episodes {
		ep := episodes[i]
		if ep.AudioPreviewURL == "" {
			continue
		}
		res.Analyzed = &ep
		out, err := s.Process(ctx, ep.AudioPreviewURL, in.Language)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("episode %s: %v", ep.ID, err))
			return res, nil
		}
		res.Outcome = &out
		return res, nil
	}
	res.Warnings = append(res.Warnings, "no episode exposes an audio preview")
	return res, nil
}

// ChannelResult is a channel listing plus the processed newest upload.
type ChannelResult struct {
	Channel  sources.Channel `json:"channel"`
	Latest   *Outcome        `json:"latest,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// AnalyzeChannel lists a channel's newest uploads with their statistics and
// processes the newest one. A failure on that video is a warning.
func (s *Service) AnalyzeChannel(ctx context.Context, in engine.ChannelInput) (ChannelResult, error) {
	var res ChannelResult
	if s.channels == nil {
		return res, fmt.Errorf("channels: youtube client %w", ErrNotConfigured)
	}
	if strings.TrimSpace(in.URL) == "" {
		return res, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}
	ch, err := s.channels.Channel(ctx, in.URL, in.Limit)
	if err != nil {
		return res, err
	}
	res.Channel = ch
	if len(ch.Videos) == 0 {
		res.Warnings = append(res.Warnings, "channel has no public uploads")
		return res, nil
	}

	newest := ch.Videos[0]
	out, err := s.Process(ctx, "https://www.youtube.com/watch?v="+newest.VideoID, in.Language)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("video %s: %v", newest.VideoID, err))
		return res, nil
	}
	res.Latest = &out
	return res, nil
}
