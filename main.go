// go_review: perfume review transcripts and analysis.
//
// Turns a YouTube video, Spotify episode or direct media URL into a transcript
// (captions → yt-dlp → ffmpeg HLS → whisper.cpp), then into a summary and
// structured perfume ratings. Served as MCP tools and as a REST API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/anatolykoptev/go_review/internal/api"
	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/anatolykoptev/go_review/internal/engine/reviews"
	"github.com/anatolykoptev/go_review/internal/engine/sources"
	"github.com/anatolykoptev/go_review/internal/engine/transcript"
	"github.com/anatolykoptev/go_review/internal/reviewserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
	apiPort = env.Str("API_PORT", "8000")
)

func main() {
	cfg := loadConfig()

	cache := engine.NewCache(cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval)
	defer cache.Close()

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	youtube := sources.NewYouTube(cfg)
	deps := reviews.Deps{
		Pipeline: transcript.New(cfg, youtube, transcript.NewModelCache(cfg)),
		Analyzer: engine.NewAnalyzer(cfg),
		Store:    store,
		Cache:    cache,
		Videos:   youtube,
		Language: cfg.Language,
	}
	if cfg.YouTubeAPIKey != "" {
		deps.Channels = youtube
	}
	if cfg.SpotifyToken != "" {
		deps.Podcasts = sources.NewSpotify(cfg)
	}
	svc := reviews.NewService(deps)

	go serveAPI(svc)

	slog.Info("starting go_review",
		slog.String("mcp_port", mcpPort),
		slog.String("api_port", apiPort),
		slog.String("language", cfg.Language),
		slog.Bool("store", store != nil),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_review",
		Version: version,
	}, nil)

	reviewserver.RegisterTools(server, svc)
	slog.Info("tools registered", slog.Int("count", 10))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_review",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 900 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	keep, _ := strconv.ParseBool(env.Str("KEEP_ARTIFACTS", "false"))
	c := engine.Config{
		LLMAPIKey:          env.Str("LLM_API_KEY", ""),
		LLMAPIKeyFallbacks: env.List("LLM_API_KEY_FALLBACKS", ""),
		LLMAPIBase:         env.Str("LLM_API_BASE", "https://generativelanguage.googleapis.com/v1beta/openai"),
		LLMModel:           env.Str("LLM_MODEL", "gemini-2.5-flash"),
		LLMTemperature:     env.Float("LLM_TEMPERATURE", 0.3),
		LLMMaxTokens:       env.Int("LLM_MAX_TOKENS", 4096),
		LLMRequestsPerSec:  env.Float("LLM_RPS", 2),
		MaxTranscriptChars: env.Int("MAX_TRANSCRIPT_CHARS", 12000),

		Language: env.Str("TRANSCRIPT_LANGUAGE", "es"),

		YtDlpPath:     env.Str("YTDLP_PATH", "yt-dlp"),
		FFmpegPath:    env.Str("FFMPEG_PATH", "ffmpeg"),
		WhisperPath:   env.Str("WHISPER_PATH", "whisper-cli"),
		ScratchDir:    env.Str("SCRATCH_DIR", "downloads"),
		KeepArtifacts: keep,

		WhisperModelDir:    env.Str("WHISPER_MODEL_DIR", filepath.Join(os.Getenv("HOME"), ".go_review", "models")),
		WhisperModelSize:   env.Str("WHISPER_MODEL_SIZE", "small"),
		WhisperDevice:      env.Str("WHISPER_DEVICE", "cpu"),
		WhisperModelURL:    env.Str("WHISPER_MODEL_URL", ""),
		WhisperConcurrency: env.Int("WHISPER_CONCURRENCY", 1),

		CaptionsTimeout: env.Duration("CAPTIONS_TIMEOUT", 30*time.Second),
		DownloadTimeout: env.Duration("DOWNLOAD_TIMEOUT", 10*time.Minute),
		HLSTimeout:      env.Duration("HLS_TIMEOUT", 15*time.Minute),
		SpeechTimeout:   env.Duration("SPEECH_TIMEOUT", 30*time.Minute),

		CaptionsRequestsPerSec: env.Float("CAPTIONS_RPS", 2),
		YouTubeAPIKey:          env.Str("YOUTUBE_API_KEY", ""),
		SpotifyToken:           env.Str("SPOTIFY_API_TOKEN", ""),
		SpotifyMarket:          env.Str("SPOTIFY_MARKET", "ES"),

		DatabaseURL: env.Str("DATABASE_URL", ""),
		SQLitePath:  env.Str("SQLITE_PATH", filepath.Join(os.Getenv("HOME"), ".go_review", "reviews.db")),

		RedisURL:             env.Str("REDIS_URL", ""),
		CacheTTL:             env.Duration("CACHE_TTL", 6*time.Hour),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(15))

	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}

	bc, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
		slog.Info("stealth browser client initialized")
	}

	return c.WithDefaults()
}

// openStore prefers Postgres and falls back to SQLite. It returns nil when
// neither is usable; persistence operations then report ErrNoStore.
func openStore(cfg engine.Config) reviews.Store {
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		pg, err := reviews.ConnectPG(ctx, cfg.DatabaseURL)
		if err == nil {
			return pg
		}
		slog.Warn("postgres init failed, falling back to sqlite", slog.Any("error", err))
	}
	if cfg.SQLitePath == "" {
		return nil
	}
	s, err := reviews.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		slog.Warn("sqlite init failed, persistence disabled", slog.Any("error", err))
		return nil
	}
	slog.Info("sqlite store opened", slog.String("path", cfg.SQLitePath))
	return s
}

func serveAPI(svc *reviews.Service) {
	router := api.NewRouter(api.RouterConfig{
		Service:      svc,
		AllowOrigins: env.List("CORS_ORIGINS", "http://localhost:3000"),
		Version:      version,
	})
	srv := &http.Server{
		Addr:              ":" + apiPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("REST API listening", slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("REST API failed", slog.Any("error", err))
	}
}
