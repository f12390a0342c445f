package transcript

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/anatolykoptev/go_review/internal/engine"
)

// AudioFormat is the only format artifacts are produced in: what the speech model reads.
const AudioFormat = "wav pcm_s16le mono 16000Hz"

// AudioArtifact is a decoded audio file owned by the invocation that created it.
type AudioArtifact struct {
	Path    string `json:"path"`
	MediaID string `json:"media_id"`
	Stage   Stage  `json:"stage"`
	Format  string `json:"format"`
	slot    Slot
}

// Remove deletes the artifact and every sibling file of its slot.
func (a AudioArtifact) Remove() error {
	if a.slot.Base == "" {
		if a.Path == "" {
			return nil
		}
		return os.Remove(a.Path)
	}
	return a.slot.Release()
}

// AudioFetcher downloads audio for a locator as mono 16 kHz PCM WAV.
// It neither caches nor cleans up; the caller owns returned artifacts.
type AudioFetcher struct {
	ytDlpPath  string
	ffmpegPath string
	scratch    Scratch
	runner     commandRunner
	// OnLog, if set, receives every subprocess invocation.
	OnLog func(CommandLog)
}

// NewAudioFetcher creates a fetcher from cfg tool paths and scratch dir.
func NewAudioFetcher(cfg engine.Config) *AudioFetcher {
	return &AudioFetcher{
		ytDlpPath:  cfg.YtDlpPath,
		ffmpegPath: cfg.FFmpegPath,
		scratch:    Scratch{Dir: cfg.ScratchDir},
		runner:     execRunner{},
	}
}

// buildYtDlpArgs asks for the best audio stream converted to mono 16 kHz WAV.
func buildYtDlpArgs(url, outTemplate, ffmpegPath string) []string {
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "wav",
		"--postprocessor-args", "ffmpeg:-ac 1 -ar 16000 -c:a pcm_s16le",
		"-o", outTemplate,
	}
	if strings.ContainsRune(ffmpegPath, os.PathSeparator) {
		args = append(args, "--ffmpeg-location", ffmpegPath)
	}
	return append(args, url)
}

// buildFFmpegArgs re-encodes any ffmpeg-readable input (an HLS manifest here)
// to mono 16 kHz PCM WAV.
func buildFFmpegArgs(inputURL, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputURL,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// Direct downloads the best audio track with yt-dlp.
func (f *AudioFetcher) Direct(ctx context.Context, loc MediaLocator) AudioResult {
	engine.IncrDirectDownloads()
	res := f.produce(ctx, loc, StageDirect, f.ytDlpPath, func(slot Slot) []string {
		return buildYtDlpArgs(loc.URL, slot.Base+".%(ext)s", f.ffmpegPath)
	})
	if !res.OK() {
		engine.IncrDirectFailures()
	}
	return res
}

// HLS treats the locator as a streamable manifest and re-encodes it with ffmpeg.
func (f *AudioFetcher) HLS(ctx context.Context, loc MediaLocator) AudioResult {
	engine.IncrHLSDownloads()
	res := f.produce(ctx, loc, StageHLS, f.ffmpegPath, func(slot Slot) []string {
		return buildFFmpegArgs(loc.URL, slot.Path(".wav"))
	})
	if !res.OK() {
		engine.IncrHLSFailures()
	}
	return res
}

// Download tries Direct, then HLS only if Direct produced nothing.
func (f *AudioFetcher) Download(ctx context.Context, loc MediaLocator) AudioResult {
	if res := f.Direct(ctx, loc); res.OK() {
		return res
	}
	return f.HLS(ctx, loc)
}

// produce reserves a slot, runs one tool and checks that slot.wav exists afterwards.
func (f *AudioFetcher) produce(ctx context.Context, loc MediaLocator, stage Stage, tool string, args func(Slot) []string) AudioResult {
	slot, err := f.scratch.Reserve(loc.ID)
	if err != nil {
		return Unavailable[AudioArtifact]("%v", err)
	}
	log, err := runLogged(ctx, f.runner, f.OnLog, tool, args(slot))
	if err != nil {
		_ = slot.Release()
		slog.Warn("audio: tool failed", slog.String("stage", string(stage)),
			slog.String("id", loc.ID), slog.Int("exit", log.ExitCode))
		return Unavailable[AudioArtifact]("%s", failureReason(log, err))
	}
	out := slot.Path(".wav")
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		_ = slot.Release()
		return Unavailable[AudioArtifact]("%s completed but %s is missing or empty", tool, out)
	}
	return Found(AudioArtifact{Path: out, MediaID: loc.ID, Stage: stage, Format: AudioFormat, slot: slot})
}
