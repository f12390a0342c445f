package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const timedTextXML = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.0" dur="1.5">hola</text>
<text start="1.5" dur="1.0">  </text>
<text start="2.5" dur="2.0">it&amp;#39;s &lt;b&gt;mundo&lt;/b&gt;</text>
</transcript>`

// fakeYouTube serves a watch page, the Innertube player and timedtext from one server.
func fakeYouTube(t *testing.T, tracksJSON string, playerJSON string) *YouTube {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if tracksJSON == "" {
			fmt.Fprint(w, `<html><head><title>Sin datos - YouTube</title></head><body></body></html>`)
			return
		}
		fmt.Fprintf(w, `<html><head><meta property="og:title" content="Top 5 perfumes"></head><body>
<span itemprop="author"><link itemprop="name" content="Perfumista"></span>
<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":%s}},"note":"a } brace \" quote"};</script>
</body></html>`, strings.ReplaceAll(tracksJSON, "{{srv}}", srv.URL))
	})
	mux.HandleFunc(ytPlayerPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, playerJSON)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, timedTextXML)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	y := NewYouTube(engine.Config{HTTPClient: srv.Client()})
	y.baseURL = srv.URL
	return y
}

func TestYouTubeFragments(t *testing.T) {
	y := fakeYouTube(t, `[
		{"baseUrl":"{{srv}}/timedtext?lang=en","languageCode":"en"},
		{"baseUrl":"{{srv}}/timedtext?lang=es","languageCode":"es"}
	]`, `{}`)

	got, err := y.Fragments(context.Background(), "ABC123", "es")
	require.NoError(t, err)
	assert.Equal(t, []string{"hola", "it's mundo"}, got)
}

func TestYouTubeFragmentsLanguageUnavailable(t *testing.T) {
	y := fakeYouTube(t, `[{"baseUrl":"{{srv}}/timedtext?lang=en","languageCode":"en"}]`, `{}`)

	_, err := y.Fragments(context.Background(), "ABC123", "es")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLanguageUnavailable), "got %v", err)
}

func TestYouTubeFragmentsNoCaptions(t *testing.T) {
	y := fakeYouTube(t, "", `{"playabilityStatus":{"status":"OK"}}`)

	_, err := y.Fragments(context.Background(), "ABC123", "es")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCaptions), "got %v", err)
}

func TestYouTubeFragmentsPlayerFallback(t *testing.T) {
	var y *YouTube
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>no player here</body></html>`)
	})
	mux.HandleFunc(ytPlayerPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
			{"baseUrl":"%s/timedtext","languageCode":"es","kind":"asr"}]}}}`, srv.URL)
	})
	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, timedTextXML)
	})
	y = NewYouTube(engine.Config{HTTPClient: srv.Client()})
	y.baseURL = srv.URL

	got, err := y.Fragments(context.Background(), "ABC123", "es")
	require.NoError(t, err)
	assert.Equal(t, []string{"hola", "it's mundo"}, got)
}

func TestYouTubeInfo(t *testing.T) {
	y := fakeYouTube(t, `[]`, `{}`)
	info, err := y.Info(context.Background(), "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "ABC123", info.ID)
	assert.Equal(t, "Top 5 perfumes", info.Title)
	assert.Equal(t, "Perfumista", info.Channel)
}

func TestPickTrack(t *testing.T) {
	asrES := captionTrack{BaseURL: "u/asr-es", LanguageCode: "es", Kind: "asr"}
	manES := captionTrack{BaseURL: "u/man-es", LanguageCode: "es"}
	manMX := captionTrack{BaseURL: "u/man-mx", LanguageCode: "es-MX"}
	poES := captionTrack{BaseURL: "u/po-es&exp=xpe", LanguageCode: "es"}
	manEN := captionTrack{BaseURL: "u/man-en", LanguageCode: "en"}

	tests := []struct {
		name    string
		tracks  []captionTrack
		want    string
		wantErr error
	}{
		{"manual beats asr", []captionTrack{asrES, manES}, "u/man-es", nil},
		{"manual regional beats asr", []captionTrack{asrES, manMX}, "u/man-mx", nil},
		{"exact manual beats regional", []captionTrack{manMX, manES}, "u/man-es", nil},
		{"asr when only option", []captionTrack{manEN, asrES}, "u/asr-es", nil},
		{"potoken skipped", []captionTrack{poES, asrES}, "u/asr-es", nil},
		{"only potoken", []captionTrack{poES}, "", ErrLanguageUnavailable},
		{"other language only", []captionTrack{manEN}, "", ErrLanguageUnavailable},
		{"no tracks", nil, "", ErrNoCaptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickTrack(tt.tracks, "es")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.BaseURL)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1};var x`, `{"a":1}`},
		{`{"a":"}\"{"} tail`, `{"a":"}\"{"}`},
		{`{"a":"\\"}x`, `{"a":"\\"}`},
		{`{"a":{"b":2}}}`, `{"a":{"b":2}}`},
		{`nope`, ``},
		{`{"open":`, ``},
	}
	for _, tt := range tests {
		if got := string(extractJSON([]byte(tt.in))); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
