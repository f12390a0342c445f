package transcript

import (
	"errors"
	"testing"
)

func TestParseLocator(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantID   string
		wantKind Kind
		wantErr  bool
	}{
		{"watch", "https://www.youtube.com/watch?v=ABC123", "ABC123", KindYouTube, false},
		{"watch extra params", "https://youtube.com/watch?t=10&v=dQw4w9WgXcQ&list=x", "dQw4w9WgXcQ", KindYouTube, false},
		{"mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", KindYouTube, false},
		{"short link", "https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ", KindYouTube, false},
		{"shorts", "https://www.youtube.com/shorts/a_b-C1", "a_b-C1", KindYouTube, false},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ", KindYouTube, false},
		{"live", "https://www.youtube.com/live/dQw4w9WgXcQ?feature=share", "dQw4w9WgXcQ", KindYouTube, false},
		{"spotify episode", "https://open.spotify.com/episode/7makk4oTQel546B0PZlDM5?si=1", "7makk4oTQel546B0PZlDM5", KindSpotify, false},
		{"spotify intl show", "https://open.spotify.com/intl-es/show/4rOoJ6Egrf8K2IrywzwOMk", "4rOoJ6Egrf8K2IrywzwOMk", KindSpotify, false},
		{"direct hls", "https://cdn.example.com/live/master.m3u8", "", KindDirect, false},
		{"empty", "  ", "", "", true},
		{"not a url", "ABC123", "", "", true},
		{"ftp", "ftp://example.com/a.mp3", "", "", true},
		{"watch without id", "https://www.youtube.com/watch?list=PL1", "", "", true},
		{"channel page", "https://www.youtube.com/@perfumes", "", "", true},
		{"bad id chars", "https://youtu.be/ab%20cd", "", "", true},
		{"spotify artist", "https://open.spotify.com/artist/123", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocator(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLocator) {
					t.Fatalf("ParseLocator(%q) err = %v, want ErrInvalidLocator", tt.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocator(%q) error: %v", tt.raw, err)
			}
			if loc.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", loc.Kind, tt.wantKind)
			}
			if tt.wantID != "" && loc.ID != tt.wantID {
				t.Errorf("id = %q, want %q", loc.ID, tt.wantID)
			}
		})
	}
}

func TestParseLocatorDirectIDStable(t *testing.T) {
	a, err := ParseLocator("https://cdn.example.com/a.m3u8")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := ParseLocator("https://cdn.example.com/a.m3u8")
	c, _ := ParseLocator("https://cdn.example.com/b.m3u8")
	if len(a.ID) != 16 {
		t.Errorf("direct id length = %d, want 16", len(a.ID))
	}
	if a.ID != b.ID {
		t.Errorf("same URL produced different ids: %q vs %q", a.ID, b.ID)
	}
	if a.ID == c.ID {
		t.Errorf("different URLs produced same id %q", a.ID)
	}
}
