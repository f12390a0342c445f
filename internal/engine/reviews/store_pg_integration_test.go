//go:build integration

package reviews

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/anatolykoptev/go_review/internal/engine"
)

func TestPGStore_Integration(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := ConnectPG(ctx, dbURL)
	if err != nil {
		t.Fatalf("ConnectPG: %v", err)
	}
	defer s.Close()

	videoID := "it-" + time.Now().Format("150405.000")
	nine := 9
	freqs := []engine.WordFreq{{Word: "ámbar", Count: 2}}
	perfumes := []engine.PerfumeParameter{{PerfumeName: "Sauvage", Brand: "Dior", Diseno: &nine}}
	ids, err := s.SaveAnalysis(ctx, videoID, freqs, perfumes)
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	exists, err := s.VideoExists(ctx, videoID)
	if err != nil || !exists {
		t.Fatalf("VideoExists = %v, %v", exists, err)
	}
	if _, err := s.SaveAnalysis(ctx, videoID, freqs, perfumes); !errors.Is(err, ErrAlreadyStored) {
		t.Fatalf("second SaveAnalysis = %v, want ErrAlreadyStored", err)
	}
	recs, err := s.ListPerfumes(ctx, videoID)
	if err != nil || len(recs) != 1 {
		t.Fatalf("ListPerfumes: %d, %v", len(recs), err)
	}
	if recs[0].Diseno == nil || *recs[0].Diseno != 9 || recs[0].Fragancia != nil {
		t.Errorf("record = %+v", recs[0])
	}
	if err := s.DeletePerfume(ctx, ids[0]); err != nil {
		t.Fatalf("DeletePerfume: %v", err)
	}
	if err := s.DeletePerfume(ctx, ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if _, err := s.SaveFeedback(ctx, Feedback{Type: "answer", Result: false, Content: "x"}); err != nil {
		t.Fatalf("SaveFeedback: %v", err)
	}
}
