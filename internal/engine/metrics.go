package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the service.
var metrics struct {
	CaptionRequests   atomic.Int64
	CaptionHits       atomic.Int64
	DirectDownloads   atomic.Int64
	DirectFailures    atomic.Int64
	HLSDownloads      atomic.Int64
	HLSFailures       atomic.Int64
	SpeechRuns        atomic.Int64
	SpeechFailures    atomic.Int64
	ModelLoads        atomic.Int64
	PipelineSuccesses atomic.Int64
	PipelineFailures  atomic.Int64
	LLMCalls          atomic.Int64
	LLMErrors         atomic.Int64
	SpotifyRequests   atomic.Int64
	YouTubeAPICalls   atomic.Int64
}

var metricKeys = []string{
	"caption_requests", "caption_hits",
	"direct_downloads", "direct_failures",
	"hls_downloads", "hls_failures",
	"speech_runs", "speech_failures", "model_loads",
	"pipeline_successes", "pipeline_failures",
	"llm_calls", "llm_errors",
	"spotify_requests", "youtube_api_calls",
	"cache_hits", "cache_misses",
}

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"caption_requests":   metrics.CaptionRequests.Load(),
		"caption_hits":       metrics.CaptionHits.Load(),
		"direct_downloads":   metrics.DirectDownloads.Load(),
		"direct_failures":    metrics.DirectFailures.Load(),
		"hls_downloads":      metrics.HLSDownloads.Load(),
		"hls_failures":       metrics.HLSFailures.Load(),
		"speech_runs":        metrics.SpeechRuns.Load(),
		"speech_failures":    metrics.SpeechFailures.Load(),
		"model_loads":        metrics.ModelLoads.Load(),
		"pipeline_successes": metrics.PipelineSuccesses.Load(),
		"pipeline_failures":  metrics.PipelineFailures.Load(),
		"llm_calls":          metrics.LLMCalls.Load(),
		"llm_errors":         metrics.LLMErrors.Load(),
		"spotify_requests":   metrics.SpotifyRequests.Load(),
		"youtube_api_calls":  metrics.YouTubeAPICalls.Load(),
		"cache_hits":         hits,
		"cache_misses":       misses,
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the transcript and sources sub-packages.
func IncrCaptionRequests() { metrics.CaptionRequests.Add(1) }
func IncrCaptionHits()     { metrics.CaptionHits.Add(1) }
func IncrDirectDownloads() { metrics.DirectDownloads.Add(1) }
func IncrDirectFailures()  { metrics.DirectFailures.Add(1) }
func IncrHLSDownloads()    { metrics.HLSDownloads.Add(1) }
func IncrHLSFailures()     { metrics.HLSFailures.Add(1) }
func IncrSpeechRuns()      { metrics.SpeechRuns.Add(1) }
func IncrSpeechFailures()  { metrics.SpeechFailures.Add(1) }
func IncrModelLoads()      { metrics.ModelLoads.Add(1) }
func IncrSpotifyRequests() { metrics.SpotifyRequests.Add(1) }
func IncrYouTubeAPICalls() { metrics.YouTubeAPICalls.Add(1) }

// IncrPipeline records the terminal result of one pipeline run.
func IncrPipeline(ok bool) {
	if ok {
		metrics.PipelineSuccesses.Add(1)
		return
	}
	metrics.PipelineFailures.Add(1)
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 30*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
