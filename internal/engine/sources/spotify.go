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

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/anatolykoptev/go_review/internal/engine"
)

const spotifyAPIURL = "https://api.spotify.com/v1"

// ErrSpotifyToken is returned when no Spotify API token is configured.
var ErrSpotifyToken = errors.New("spotify: SPOTIFY_API_TOKEN not configured")

var spotifyShowRe = regexp.MustCompile(`show/([A-Za-z0-9]+)`)

// Show is a Spotify podcast with its most recent episodes.
type Show struct {
	ID            string    `json:"show_id"`
	Name          string    `json:"show_name"`
	Publisher     string    `json:"publisher"`
	Description   string    `json:"description"`
	MediaType     string    `json:"media_type"`
	TotalEpisodes int       `json:"total_episodes"`
	Followers     *int      `json:"followers"`
	Episodes      []Episode `json:"episodes"`
}

// Episode is one podcast episode. AudioPreviewURL is usually a 30 s clip.
type Episode struct {
	ID              string `json:"episode_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ReleaseDate     string `json:"release_date"`
	DurationMS      int    `json:"duration_ms"`
	AudioPreviewURL string `json:"audio_preview_url,omitempty"`
	Language        string `json:"language,omitempty"`
}

type spotifyShowResp struct {
	Name          string `json:"name"`
	Publisher     string `json:"publisher"`
	Description   string `json:"description"`
	MediaType     string `json:"media_type"`
	TotalEpisodes int    `json:"total_episodes"`
	Followers     *struct {
		Total int `json:"total"`
	} `json:"followers"`
}

type spotifyEpisodesResp struct {
	Items []struct {
		ID              string  `json:"id"`
		Name            string  `json:"name"`
		Description     string  `json:"description"`
		HTMLDescription string  `json:"html_description"`
		ReleaseDate     string  `json:"release_date"`
		DurationMS      int     `json:"duration_ms"`
		AudioPreviewURL *string `json:"audio_preview_url"`
		Language        string  `json:"language"`
	} `json:"items"`
}

// Spotify is a minimal Web API client for podcast shows and episodes.
type Spotify struct {
	cfg     engine.Config
	baseURL string
}

// NewSpotify creates a Spotify client using cfg.SpotifyToken and cfg.SpotifyMarket.
func NewSpotify(cfg engine.Config) *Spotify {
	return &Spotify{cfg: cfg, baseURL: spotifyAPIURL}
}

// ShowID extracts the show id from an open.spotify.com/show/<id> URL.
func ShowID(showURL string) (string, error) {
	m := spotifyShowRe.FindStringSubmatch(showURL)
	if m == nil {
		return "", fmt.Errorf("spotify: no show id in %q", showURL)
	}
	return m[1], nil
}

func (s *Spotify) get(ctx context.Context, path string, params url.Values, out any) error {
	if s.cfg.SpotifyToken == "" {
		return ErrSpotifyToken
	}
	engine.IncrSpotifyRequests()
	params.Set("market", s.cfg.SpotifyMarket)
	u := s.baseURL + path + "?" + params.Encode()

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+s.cfg.SpotifyToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return s.cfg.HTTPClient.Do(req)
	})
	if err != nil {
		return fmt.Errorf("spotify %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("spotify %s: HTTP %d: %s", path, resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4*1024*1024)).Decode(out); err != nil {
		return fmt.Errorf("spotify %s: decode: %w", path, err)
	}
	return nil
}

// Show fetches a show's main data. Episodes are left empty.
func (s *Spotify) Show(ctx context.Context, showURL string) (Show, error) {
	id, err := ShowID(showURL)
	if err != nil {
		return Show{}, err
	}
	var raw spotifyShowResp
	if err := s.get(ctx, "/shows/"+id, url.Values{}, &raw); err != nil {
		return Show{}, err
	}
	show := Show{
		ID:            id,
		Name:          raw.Name,
		Publisher:     raw.Publisher,
		Description:   raw.Description,
		MediaType:     raw.MediaType,
		TotalEpisodes: raw.TotalEpisodes,
	}
	if show.MediaType == "" {
		show.MediaType = "audio"
	}
	if raw.Followers != nil {
		n := raw.Followers.Total
		show.Followers = &n
	}
	return show, nil
}

// Episodes returns up to limit of the show's newest episodes.
// HTML descriptions are converted to markdown.
func (s *Spotify) Episodes(ctx context.Context, showID string, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}
	var raw spotifyEpisodesResp
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := s.get(ctx, "/shows/"+showID+"/episodes", params, &raw); err != nil {
		return nil, err
	}
	episodes := make([]Episode, 0, len(raw.Items))
	for _, it := range raw.Items {
		ep := Episode{
			ID:          it.ID,
			Name:        it.Name,
			Description: it.Description,
			ReleaseDate: it.ReleaseDate,
			DurationMS:  it.DurationMS,
			Language:    it.Language,
		}
		if it.HTMLDescription != "" {
			if md, err := htmltomarkdown.ConvertString(it.HTMLDescription); err == nil {
				ep.Description = strings.TrimSpace(md)
			}
		}
		if it.AudioPreviewURL != nil {
			ep.AudioPreviewURL = *it.AudioPreviewURL
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}
