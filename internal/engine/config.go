package engine

import (
	"net/http"
	"time"
)

// Config holds all service configuration, built once in main and passed into constructors.
type Config struct {
	LLMAPIKey          string
	LLMAPIKeyFallbacks []string
	LLMAPIBase         string
	LLMModel           string
	LLMTemperature     float64
	LLMMaxTokens       int
	LLMRequestsPerSec  float64
	MaxTranscriptChars int // transcript chars sent to the LLM per call

	Language string // default spoken language for transcripts ("es")

	YtDlpPath     string
	FFmpegPath    string
	WhisperPath   string
	ScratchDir    string
	KeepArtifacts bool // keep downloaded audio after transcription

	WhisperModelDir    string
	WhisperModelSize   string // tiny, base, small, medium, large
	WhisperDevice      string // cpu or gpu
	WhisperModelURL    string // base URL for ggml model downloads; empty disables
	WhisperConcurrency int

	CaptionsTimeout time.Duration
	DownloadTimeout time.Duration
	HLSTimeout      time.Duration
	SpeechTimeout   time.Duration

	CaptionsRequestsPerSec float64
	YouTubeAPIKey          string // YouTube Data API v3 key for channel listings
	SpotifyToken           string
	SpotifyMarket          string

	DatabaseURL string // Postgres; empty = SQLite
	SQLitePath  string

	RedisURL             string
	CacheTTL             time.Duration
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // optional Chrome-fingerprinted client for watch pages
}

// WithDefaults fills zero fields with working defaults.
func (c Config) WithDefaults() Config {
	if c.Language == "" {
		c.Language = "es"
	}
	if c.YtDlpPath == "" {
		c.YtDlpPath = "yt-dlp"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.WhisperPath == "" {
		c.WhisperPath = "whisper-cli"
	}
	if c.ScratchDir == "" {
		c.ScratchDir = "downloads"
	}
	if c.WhisperModelSize == "" {
		c.WhisperModelSize = "small"
	}
	if c.WhisperDevice == "" {
		c.WhisperDevice = "cpu"
	}
	if c.WhisperConcurrency <= 0 {
		c.WhisperConcurrency = 1
	}
	if c.MaxTranscriptChars <= 0 {
		c.MaxTranscriptChars = 12000
	}
	if c.SpotifyMarket == "" {
		c.SpotifyMarket = "ES"
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c
}
