package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_review/internal/engine"
	"golang.org/x/time/rate"
)

// YouTube caption fetching.
// Primary:  scrape watch page ytInitialPlayerResponse → caption track → timedtext XML
// Fallback: ANDROID Innertube /player → captionTracks → timedtext XML

var (
	// ErrNoCaptions means the video exposes no caption tracks at all.
	ErrNoCaptions = errors.New("no captions")
	// ErrLanguageUnavailable means captions exist but none in the requested language.
	ErrLanguageUnavailable = errors.New("captions not available in requested language")
)

// YouTube fetches caption fragments and watch-page metadata.
type YouTube struct {
	cfg     engine.Config
	limiter *rate.Limiter
	baseURL string
	dataURL string
}

// NewYouTube creates a YouTube provider. cfg.HTTPClient must be set.
func NewYouTube(cfg engine.Config) *YouTube {
	limit := rate.Inf
	if cfg.CaptionsRequestsPerSec > 0 {
		limit = rate.Limit(cfg.CaptionsRequestsPerSec)
	}
	return &YouTube{cfg: cfg, limiter: rate.NewLimiter(limit, 2), baseURL: ytBaseURL, dataURL: ytDataURL}
}

// VideoInfo is the metadata shown on a video's watch page.
type VideoInfo struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Channel string `json:"channel,omitempty"`
}

// watchPage is what one watch page fetch yields.
type watchPage struct {
	info   VideoInfo
	tracks []captionTrack
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

func matchesLang(code, lang string) bool {
	code, lang = strings.ToLower(code), strings.ToLower(lang)
	return code == lang || strings.HasPrefix(code, lang+"-")
}

// pickTrack selects a caption track in lang: manual before auto-generated,
// exact code before regional variants. Tracks that need a PoToken are skipped.
func pickTrack(tracks []captionTrack, lang string) (captionTrack, error) {
	if len(tracks) == 0 {
		return captionTrack{}, ErrNoCaptions
	}
	var inLang []captionTrack
	for _, t := range tracks {
		if matchesLang(t.LanguageCode, lang) {
			inLang = append(inLang, t)
		}
	}
	if len(inLang) == 0 {
		return captionTrack{}, fmt.Errorf("%w: %s", ErrLanguageUnavailable, lang)
	}
	usable := inLang[:0]
	for _, t := range inLang {
		if !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, fmt.Errorf("%w: all %s tracks require PoToken", ErrLanguageUnavailable, lang)
	}
	for _, manual := range []bool{true, false} {
		for _, exact := range []bool{true, false} {
			for _, t := range usable {
				if (t.Kind != "asr") == manual && strings.EqualFold(t.LanguageCode, lang) == exact {
					return t, nil
				}
			}
		}
	}
	return usable[0], nil
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// extractJSON returns the first balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}

// parseWatchPage pulls the title, channel and caption tracks out of watch page HTML.
func parseWatchPage(videoID string, body []byte) (watchPage, error) {
	page := watchPage{info: VideoInfo{ID: videoID}}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		page.info.Title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
		if page.info.Title == "" {
			page.info.Title = strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), " - YouTube")
		}
		page.info.Channel = strings.TrimSpace(doc.Find(`span[itemprop="author"] link[itemprop="name"]`).AttrOr("content", ""))
	}

	idx := bytes.Index(body, []byte(ytInitialPlayerResponseMarker))
	if idx < 0 {
		return page, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return page, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}
	var playerResp innertubePlayerResp
	if err := json.Unmarshal(jsonData, &playerResp); err != nil {
		return page, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	page.tracks = playerResp.tracks()
	return page, nil
}

func (y *YouTube) fetchWatchPage(ctx context.Context, videoID, lang string) (watchPage, error) {
	headers := engine.ChromeHeaders()
	headers["accept-language"] = lang + ",en;q=0.8"
	body, status, err := engine.FetchPage(ctx, y.cfg, y.baseURL+"/watch?v="+videoID, headers)
	if err != nil {
		return watchPage{}, fmt.Errorf("watch page: %w", err)
	}
	if status != http.StatusOK {
		return watchPage{}, fmt.Errorf("watch page: HTTP %d", status)
	}
	return parseWatchPage(videoID, body)
}

// fetchTimedText fetches a timedtext XML caption URL and returns its cleaned lines in order.
func (y *YouTube) fetchTimedText(ctx context.Context, baseURL string) ([]string, error) {
	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return y.cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch timedtext: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}

	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	fragments := make([]string, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		if text := engine.CleanHTML(line.Text); text != "" {
			fragments = append(fragments, text)
		}
	}
	return fragments, nil
}

// Fragments returns the caption fragments of videoID in lang, in playback order.
// Errors wrap ErrNoCaptions or ErrLanguageUnavailable when YouTube has nothing to offer.
func (y *YouTube) Fragments(ctx context.Context, videoID, lang string) ([]string, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	page, err := y.fetchWatchPage(ctx, videoID, lang)
	tracks := page.tracks
	if err != nil || len(tracks) == 0 {
		if err != nil {
			slog.Warn("youtube: page scrape failed, trying player",
				slog.String("id", videoID), slog.Any("error", err))
		}
		playerResp, perr := y.fetchPlayer(ctx, videoID, lang)
		if perr != nil {
			return nil, perr
		}
		tracks = playerResp.tracks()
		if len(tracks) == 0 {
			if ps := playerResp.PlayabilityStatus; ps != nil && ps.Reason != "" {
				return nil, fmt.Errorf("%w: %s", ErrNoCaptions, ps.Reason)
			}
			return nil, ErrNoCaptions
		}
	}

	track, err := pickTrack(tracks, lang)
	if err != nil {
		return nil, err
	}
	return y.fetchTimedText(ctx, track.BaseURL)
}

// Info returns the title and channel shown on the watch page.
func (y *YouTube) Info(ctx context.Context, videoID string) (VideoInfo, error) {
	page, err := y.fetchWatchPage(ctx, videoID, "en")
	if page.info.Title == "" && err != nil {
		return VideoInfo{ID: videoID}, err
	}
	return page.info, nil
}
