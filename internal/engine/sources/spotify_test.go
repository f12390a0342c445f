package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowID(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://open.spotify.com/show/4rOoJ6Egrf8K2IrywzwOMk?si=abc", "4rOoJ6Egrf8K2IrywzwOMk", false},
		{"https://open.spotify.com/show/4rOoJ6Egrf8K2IrywzwOMk", "4rOoJ6Egrf8K2IrywzwOMk", false},
		{"https://open.spotify.com/episode/xyz", "", true},
	}
	for _, tt := range tests {
		got, err := ShowID(tt.url)
		if tt.wantErr {
			assert.Error(t, err, tt.url)
			continue
		}
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.want, got)
	}
}

func newFakeSpotify(t *testing.T, token string) *Spotify {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/shows/SHOW1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		assert.Equal(t, "ES", r.URL.Query().Get("market"))
		fmt.Fprint(w, `{"name":"Perfumes al día","publisher":"Ana","description":"Reseñas","total_episodes":42,"followers":{"total":900}}`)
	})
	mux.HandleFunc("/shows/SHOW1/episodes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"items":[
			{"id":"E2","name":"Episodio 2","description":"plain","html_description":"<p>Hablamos de <b>Aventus</b></p>","release_date":"2024-05-01","duration_ms":1800000,"audio_preview_url":"https://p.scdn.co/mp3-preview/e2","language":"es"},
			{"id":"E1","name":"Episodio 1","description":"solo texto","audio_preview_url":null}
		]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s := NewSpotify(engine.Config{HTTPClient: srv.Client(), SpotifyToken: token, SpotifyMarket: "ES"})
	s.baseURL = srv.URL
	return s
}

func TestSpotifyShow(t *testing.T) {
	s := newFakeSpotify(t, "tok")
	show, err := s.Show(context.Background(), "https://open.spotify.com/show/SHOW1?si=x")
	require.NoError(t, err)
	assert.Equal(t, "SHOW1", show.ID)
	assert.Equal(t, "Perfumes al día", show.Name)
	assert.Equal(t, "audio", show.MediaType)
	assert.Equal(t, 42, show.TotalEpisodes)
	require.NotNil(t, show.Followers)
	assert.Equal(t, 900, *show.Followers)
}

func TestSpotifyEpisodes(t *testing.T) {
	s := newFakeSpotify(t, "tok")
	eps, err := s.Episodes(context.Background(), "SHOW1", 2)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, "Hablamos de **Aventus**", eps[0].Description)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/e2", eps[0].AudioPreviewURL)
	assert.Equal(t, "solo texto", eps[1].Description)
	assert.Empty(t, eps[1].AudioPreviewURL)
}

func TestSpotifyWithoutToken(t *testing.T) {
	s := NewSpotify(engine.Config{HTTPClient: http.DefaultClient, SpotifyMarket: "ES"})
	_, err := s.Show(context.Background(), "https://open.spotify.com/show/SHOW1")
	assert.ErrorIs(t, err, ErrSpotifyToken)
}
