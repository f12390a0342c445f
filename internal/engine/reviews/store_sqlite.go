package reviews

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/anatolykoptev/go_review/internal/engine"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-file Store used when no Postgres URL is configured.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("sqlite: mkdir %s: %w", filepath.Dir(path), err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS feedback (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			type       TEXT NOT NULL,
			result     INTEGER NOT NULL,
			content    TEXT NOT NULL,
			prompt     TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS perfumes (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			video_id     TEXT NOT NULL,
			perfume_name TEXT NOT NULL,
			brand        TEXT,
			fragancia    INTEGER CHECK (fragancia BETWEEN 0 AND 10),
			duracion     INTEGER CHECK (duracion BETWEEN 0 AND 10),
			diseno       INTEGER CHECK (diseno BETWEEN 0 AND 10),
			calidad      INTEGER CHECK (calidad BETWEEN 0 AND 10),
			precio       INTEGER CHECK (precio BETWEEN 0 AND 10),
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_perfumes_video_id ON perfumes (video_id)`,
		`CREATE TABLE IF NOT EXISTS wordcount (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			word       TEXT NOT NULL,
			count      INTEGER NOT NULL,
			video_id   TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wordcount_video_id ON wordcount (video_id)`,
		`CREATE TABLE IF NOT EXISTS analyzed_media (
			video_id   TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		)`,
		`INSERT OR IGNORE INTO analyzed_media (video_id, created_at)
			SELECT video_id, MIN(created_at) FROM wordcount GROUP BY video_id`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

func (s *SQLiteStore) VideoExists(ctx context.Context, videoID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM analyzed_media WHERE video_id = ?`, videoID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check video %s: %w", videoID, err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, videoID string, freqs []engine.WordFreq, perfumes []engine.PerfumeParameter) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ts := now()
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO analyzed_media (video_id, created_at) VALUES (?, ?)`, videoID, ts)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", videoID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", videoID, err)
	}
	if n == 0 {
		return nil, ErrAlreadyStored
	}

	if len(freqs) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO wordcount (word, count, video_id, created_at) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return nil, fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()
		for _, f := range freqs {
			if _, err := stmt.ExecContext(ctx, f.Word, f.Count, videoID, ts); err != nil {
				return nil, fmt.Errorf("save word %q: %w", f.Word, err)
			}
		}
	}

	ids := make([]int64, 0, len(perfumes))
	for _, p := range perfumes {
		args := append([]any{videoID, p.PerfumeName, nullableBrand(p.Brand)}, ratingArgs(p)...)
		args = append(args, ts)
		res, err := tx.ExecContext(ctx, `
			INSERT INTO perfumes (video_id, perfume_name, brand, fragancia, duracion, diseno, calidad, precio, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return nil, fmt.Errorf("insert perfume %q: %w", p.PerfumeName, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("insert perfume %q: %w", p.PerfumeName, err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

func (s *SQLiteStore) ListPerfumes(ctx context.Context, videoID string) ([]PerfumeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, perfume_name, brand, fragancia, duracion, diseno, calidad, precio, created_at
		FROM perfumes WHERE video_id = ? ORDER BY id`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list perfumes for %s: %w", videoID, err)
	}
	defer rows.Close()

	var out []PerfumeRecord
	for rows.Next() {
		var (
			r       PerfumeRecord
			brand   sql.NullString
			ratings [5]sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.VideoID, &r.PerfumeName, &brand,
			&ratings[0], &ratings[1], &ratings[2], &ratings[3], &ratings[4], &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan perfume: %w", err)
		}
		r.Brand = brand.String
		r.Fragancia = nullInt(ratings[0])
		r.Duracion = nullInt(ratings[1])
		r.Diseno = nullInt(ratings[2])
		r.Calidad = nullInt(ratings[3])
		r.Precio = nullInt(ratings[4])
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeletePerfume(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM perfumes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete perfume %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, fb Feedback) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (type, result, content, prompt, created_at)
		VALUES (?, ?, ?, ?, ?)`, fb.Type, fb.Result, fb.Content, fb.Prompt, now())
	if err != nil {
		return 0, fmt.Errorf("save feedback: %w", err)
	}
	return res.LastInsertId()
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
