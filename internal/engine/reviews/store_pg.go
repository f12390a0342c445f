package reviews

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/anatolykoptev/go_review/internal/engine"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PGStore is the Postgres Store backed by a pgx pool.
type PGStore struct {
	pool *pgxpool.Pool
}

// ConnectPG creates a pgx pool and runs schema migrations.
func ConnectPG(ctx context.Context, databaseURL string) (*PGStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("reviews postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Release()

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := conn.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Info("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (s *PGStore) VideoExists(ctx context.Context, videoID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM analyzed_media WHERE video_id = $1)`, videoID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check video %s: %w", videoID, err)
	}
	return exists, nil
}

// SaveAnalysis claims videoID through the analyzed_media primary key. A
// concurrent save of the same id blocks on that row until the first
// transaction ends, then sees the conflict.
func (s *PGStore) SaveAnalysis(ctx context.Context, videoID string, freqs []engine.WordFreq, perfumes []engine.PerfumeParameter) ([]int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`INSERT INTO analyzed_media (video_id) VALUES ($1) ON CONFLICT (video_id) DO NOTHING`, videoID)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", videoID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyStored
	}

	if len(freqs) > 0 {
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"wordcount"},
			[]string{"word", "count", "video_id"},
			pgx.CopyFromSlice(len(freqs), func(i int) ([]any, error) {
				return []any{freqs[i].Word, freqs[i].Count, videoID}, nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("save word counts for %s: %w", videoID, err)
		}
	}

	ids := make([]int64, 0, len(perfumes))
	for _, p := range perfumes {
		args := append([]any{videoID, p.PerfumeName, nullableBrand(p.Brand)}, ratingArgs(p)...)
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO perfumes (video_id, perfume_name, brand, fragancia, duracion, diseno, calidad, precio)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`, args...).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert perfume %q: %w", p.PerfumeName, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

func (s *PGStore) ListPerfumes(ctx context.Context, videoID string) ([]PerfumeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, video_id, perfume_name, brand, fragancia, duracion, diseno, calidad, precio, created_at
		FROM perfumes WHERE video_id = $1 ORDER BY id`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list perfumes for %s: %w", videoID, err)
	}
	defer rows.Close()

	var out []PerfumeRecord
	for rows.Next() {
		var (
			r         PerfumeRecord
			brand     *string
			createdAt time.Time
		)
		if err := rows.Scan(&r.ID, &r.VideoID, &r.PerfumeName, &brand,
			&r.Fragancia, &r.Duracion, &r.Diseno, &r.Calidad, &r.Precio, &createdAt); err != nil {
			return nil, fmt.Errorf("scan perfume: %w", err)
		}
		if brand != nil {
			r.Brand = *brand
		}
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) DeletePerfume(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM perfumes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete perfume %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SaveFeedback(ctx context.Context, fb Feedback) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO feedback (type, result, content, prompt)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, fb.Type, fb.Result, fb.Content, fb.Prompt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save feedback: %w", err)
	}
	return id, nil
}
