package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/anatolykoptev/go_review/internal/engine"
)

// Channel listings go through the YouTube Data API v3:
// channels (snippet, uploads playlist) → playlistItems (newest ids) → videos (stats).

const ytDataURL = "https://www.googleapis.com/youtube/v3"

// ErrYouTubeAPIKey is returned when no Data API key is configured.
var ErrYouTubeAPIKey = errors.New("youtube: YOUTUBE_API_KEY not configured")

var (
	ytChannelIDRe = regexp.MustCompile(`(?:^|/channel/)(UC[A-Za-z0-9_-]{22})`)
	ytHandleRe    = regexp.MustCompile(`(?:^|/)(@[A-Za-z0-9._-]{3,})`)
	ytUserRe      = regexp.MustCompile(`/(?:user|c)/([A-Za-z0-9._-]+)`)
)

// Channel is a YouTube channel with its most recent uploads, newest first.
type Channel struct {
	ID          string         `json:"channel_id"`
	Title       string         `json:"channel_title"`
	Description string         `json:"description"`
	Videos      []ChannelVideo `json:"videos"`
}

// ChannelVideo is one upload with its public statistics.
type ChannelVideo struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	PublishedDate string `json:"published_date"`
	Views         int64  `json:"views"`
	Likes         int64  `json:"likes"`
	CommentsCount int64  `json:"comments_count"`
}

// channelRef is how a channel URL identifies the channel.
type channelRef struct {
	param, value string // id, forHandle or forUsername
}

// parseChannelRef accepts /channel/UC..., /@handle, /user/name, /c/name or a bare id or handle.
func parseChannelRef(raw string) (channelRef, error) {
	raw = strings.TrimSpace(raw)
	if m := ytChannelIDRe.FindStringSubmatch(raw); m != nil {
		return channelRef{"id", m[1]}, nil
	}
	if m := ytHandleRe.FindStringSubmatch(raw); m != nil {
		return channelRef{"forHandle", m[1]}, nil
	}
	if m := ytUserRe.FindStringSubmatch(raw); m != nil {
		return channelRef{"forUsername", m[1]}, nil
	}
	return channelRef{}, fmt.Errorf("youtube: no channel in %q", raw)
}

type ytChannelsResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytPlaylistItemsResp struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type ytVideosResp struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string `json:"title"`
			PublishedAt string `json:"publishedAt"`
		} `json:"snippet"`
		// The API returns counts as decimal strings; hidden counts are absent.
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (y *YouTube) dataGet(ctx context.Context, path string, params url.Values, out any) error {
	if y.cfg.YouTubeAPIKey == "" {
		return ErrYouTubeAPIKey
	}
	if err := y.limiter.Wait(ctx); err != nil {
		return err
	}
	engine.IncrYouTubeAPICalls()
	params.Set("key", y.cfg.YouTubeAPIKey)
	u := y.dataURL + path + "?" + params.Encode()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return y.cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return fmt.Errorf("youtube %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("youtube %s: HTTP %d: %s", path, resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4*1024*1024)).Decode(out); err != nil {
		return fmt.Errorf("youtube %s: decode: %w", path, err)
	}
	return nil
}

// Channel returns the channel's title, description and up to limit of its
// newest uploads with view, like and comment counts.
func (y *YouTube) Channel(ctx context.Context, channelURL string, limit int) (Channel, error) {
	ref, err := parseChannelRef(channelURL)
	if err != nil {
		return Channel{}, err
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	var ch ytChannelsResp
	if err := y.dataGet(ctx, "/channels", url.Values{
		"part":    {"snippet,contentDetails"},
		ref.param: {ref.value},
	}, &ch); err != nil {
		return Channel{}, err
	}
	if len(ch.Items) == 0 {
		return Channel{}, fmt.Errorf("youtube: channel %s not found", ref.value)
	}
	item := ch.Items[0]
	out := Channel{ID: item.ID, Title: item.Snippet.Title, Description: item.Snippet.Description, Videos: []ChannelVideo{}}

	uploads := item.ContentDetails.RelatedPlaylists.Uploads
	if uploads == "" {
		return out, nil
	}
	var pl ytPlaylistItemsResp
	if err := y.dataGet(ctx, "/playlistItems", url.Values{
		"part":       {"contentDetails"},
		"playlistId": {uploads},
		"maxResults": {strconv.Itoa(limit)},
	}, &pl); err != nil {
		return Channel{}, err
	}
	ids := make([]string, 0, len(pl.Items))
	for _, it := range pl.Items {
		if id := it.ContentDetails.VideoID; id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return out, nil
	}

	var vids ytVideosResp
	if err := y.dataGet(ctx, "/videos", url.Values{
		"part": {"snippet,statistics"},
		"id":   {strings.Join(ids, ",")},
	}, &vids); err != nil {
		return Channel{}, err
	}
	byID := make(map[string]ChannelVideo, len(vids.Items))
	for _, v := range vids.Items {
		byID[v.ID] = ChannelVideo{
			VideoID:       v.ID,
			Title:         v.Snippet.Title,
			PublishedDate: v.Snippet.PublishedAt,
			Views:         parseCount(v.Statistics.ViewCount),
			Likes:         parseCount(v.Statistics.LikeCount),
			CommentsCount: parseCount(v.Statistics.CommentCount),
		}
	}
	// Keep upload order; /videos does not promise it.
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out.Videos = append(out.Videos, v)
		}
	}
	return out, nil
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
