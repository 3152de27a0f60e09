package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_synopsis_store.go -package=mocks github.com/dgallion1/sumzero/internal/storage SynopsisStore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// SynopsisRecord is one cached synopsis.
type SynopsisRecord struct {
	Key        string // Request hash, see CacheKey
	Arc        int
	ChapterID  string
	Part       int
	HeaderLine string
	Model      string
	TokenCount int
	Text       string
	CreatedAt  time.Time
}

// SynopsisStore caches synopses by request hash.
type SynopsisStore interface {
	// Get returns nil and ErrNotFound on a miss.
	Get(ctx context.Context, key string) (*SynopsisRecord, error)
	// Put inserts or replaces a record.
	Put(ctx context.Context, rec *SynopsisRecord) error
	// ListByChapter returns a chapter's records ordered by part.
	ListByChapter(ctx context.Context, arc int, chapterID string) ([]*SynopsisRecord, error)
}

// CacheKey hashes everything that affects a completion.
func CacheKey(model string, maxTokens int, temperature float64, prompt string) string {
	h := sha256.New()
	for _, part := range []string{
		model,
		strconv.Itoa(maxTokens),
		strconv.FormatFloat(temperature, 'g', -1, 64),
		prompt,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SynopsisRepo implements SynopsisStore on SQLite.
type SynopsisRepo struct {
	db *sql.DB
}

func NewSynopsisRepo(db *sql.DB) *SynopsisRepo {
	return &SynopsisRepo{db: db}
}

const synopsisColumns = "key, arc, chapter_id, part, header_line, model, token_count, text, created_at"

func (r *SynopsisRepo) Get(ctx context.Context, key string) (*SynopsisRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+synopsisColumns+" FROM synopses WHERE key = ?", key)
	rec, err := scanSynopsis(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query synopsis: %w", err)
	}
	return rec, nil
}

func (r *SynopsisRepo) Put(ctx context.Context, rec *SynopsisRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO synopses (key, arc, chapter_id, part, header_line, model, token_count, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (key) DO UPDATE SET
		 text = excluded.text, header_line = excluded.header_line, created_at = CURRENT_TIMESTAMP`,
		rec.Key, rec.Arc, rec.ChapterID, rec.Part, rec.HeaderLine, rec.Model, rec.TokenCount, rec.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to store synopsis: %w", err)
	}
	return nil
}

func (r *SynopsisRepo) ListByChapter(ctx context.Context, arc int, chapterID string) ([]*SynopsisRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+synopsisColumns+" FROM synopses WHERE arc = ? AND chapter_id = ? ORDER BY part, created_at",
		arc, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list synopses: %w", err)
	}
	defer rows.Close()

	var out []*SynopsisRecord
	for rows.Next() {
		rec, err := scanSynopsis(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan synopsis: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSynopsis(s scanner) (*SynopsisRecord, error) {
	var rec SynopsisRecord
	var createdAt string
	if err := s.Scan(&rec.Key, &rec.Arc, &rec.ChapterID, &rec.Part, &rec.HeaderLine,
		&rec.Model, &rec.TokenCount, &rec.Text, &createdAt); err != nil {
		return nil, err
	}
	rec.CreatedAt = parseTimestamp(createdAt)
	return &rec, nil
}

// parseTimestamp accepts the formats SQLite and the driver produce.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
