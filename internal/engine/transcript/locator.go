package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Kind is the family of a media URL.
type Kind string

const (
	KindYouTube Kind = "youtube"
	KindSpotify Kind = "spotify"
	KindDirect  Kind = "direct"
)

// MediaLocator is a parsed media URL. It is immutable once parsed.
type MediaLocator struct {
	URL  string `json:"url"`
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
}

var (
	mediaIDRe     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	youtubePathRe = regexp.MustCompile(`^/(?:shorts|embed|live|v|e)/([^/?#]+)`)
	spotifyPathRe = regexp.MustCompile(`^(?:/intl-[a-z-]+)?/(episode|show)/([A-Za-z0-9]+)`)
	youtubeHosts  = map[string]bool{"youtube.com": true, "m.youtube.com": true, "music.youtube.com": true, "youtube-nocookie.com": true}
)

// ParseLocator extracts the media identifier from a YouTube, Spotify or direct http(s) URL.
// Direct URLs are identified by the first 16 hex chars of the URL's SHA-256.
func ParseLocator(raw string) (MediaLocator, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MediaLocator{}, fmt.Errorf("%w: empty URL", ErrInvalidLocator)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return MediaLocator{}, fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidLocator, raw)
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	switch {
	case host == "youtu.be":
		return youtubeLocator(raw, strings.Trim(u.Path, "/"))
	case youtubeHosts[host]:
		if u.Path == "/watch" {
			return youtubeLocator(raw, u.Query().Get("v"))
		}
		if m := youtubePathRe.FindStringSubmatch(u.Path); m != nil {
			return youtubeLocator(raw, m[1])
		}
		return MediaLocator{}, fmt.Errorf("%w: no video id in %q", ErrInvalidLocator, raw)
	case host == "open.spotify.com":
		m := spotifyPathRe.FindStringSubmatch(u.Path)
		if m == nil {
			return MediaLocator{}, fmt.Errorf("%w: no episode or show id in %q", ErrInvalidLocator, raw)
		}
		return MediaLocator{URL: raw, ID: m[2], Kind: KindSpotify}, nil
	}

	sum := sha256.Sum256([]byte(raw))
	return MediaLocator{URL: raw, ID: hex.EncodeToString(sum[:])[:16], Kind: KindDirect}, nil
}

func youtubeLocator(raw, id string) (MediaLocator, error) {
	if !mediaIDRe.MatchString(id) {
		return MediaLocator{}, fmt.Errorf("%w: no video id in %q", ErrInvalidLocator, raw)
	}
	return MediaLocator{URL: raw, ID: id, Kind: KindYouTube}, nil
}
