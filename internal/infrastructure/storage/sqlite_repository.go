package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"FeedPublisher/internal/domain"
	"FeedPublisher/internal/ports"
)

const processedTable = "processed_entries"

// ErrAlreadyRecorded is wrapped in a duplicate StageError when an id is recorded twice.
var ErrAlreadyRecorded = errors.New("entry already recorded")

const schema = `CREATE TABLE IF NOT EXISTS processed_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	guid TEXT UNIQUE NOT NULL,
	post_id INTEGER,
	feed_url TEXT,
	title TEXT,
	processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteRepository keeps the ids of published entries in a local SQLite file.
type SQLiteRepository struct {
	db     *sql.DB
	qb     sq.StatementBuilderType
	logger *slog.Logger
}

var _ ports.DedupStore = (*SQLiteRepository)(nil)

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return NewSQLiteRepository(db, log), nil
}

// NewSQLiteRepository wraps an already initialised database.
func NewSQLiteRepository(db *sql.DB, log *slog.Logger) *SQLiteRepository {
	return &SQLiteRepository{
		db:     db,
		qb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		logger: log,
	}
}

// Seen reports whether the entry id has already been recorded.
func (r *SQLiteRepository) Seen(ctx context.Context, id string) (bool, error) {
	query, args, err := r.qb.Select("1").From(processedTable).Where(sq.Eq{"guid": id}).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query processed: %w", err)
	}
	return true, nil
}

// Record stores the entry. Recording an id twice keeps the first row and
// returns a duplicate StageError wrapping ErrAlreadyRecorded.
func (r *SQLiteRepository) Record(ctx context.Context, rec domain.DedupRecord) error {
	processedAt := rec.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now().UTC()
	}

	query, args, err := r.qb.Insert(processedTable).
		Columns("guid", "post_id", "feed_url", "title", "processed_at").
		Values(rec.ID, rec.PostID, rec.SourceFeed, rec.Title, processedAt).
		Suffix("ON CONFLICT(guid) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("insert processed: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		existing, getErr := r.Get(ctx, rec.ID)
		if r.logger != nil {
			r.logger.Warn("entry already recorded", "id", rec.ID, "post_id", rec.PostID,
				"recorded_post_id", existing.PostID, "recorded_at", existing.ProcessedAt, "lookup_error", getErr)
		}
		return domain.Fail(domain.StageRecord, domain.KindDuplicate, ErrAlreadyRecorded)
	}
	return nil
}

// Count returns the number of recorded entries.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.qb.Select("COUNT(*)").From(processedTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count processed: %w", err)
	}
	return n, nil
}

// Get loads the stored record for id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (domain.DedupRecord, error) {
	query, args, err := r.qb.Select("guid", "post_id", "feed_url", "title", "processed_at").
		From(processedTable).
		Where(sq.Eq{"guid": id}).
		ToSql()
	if err != nil {
		return domain.DedupRecord{}, fmt.Errorf("build get: %w", err)
	}

	var (
		rec    domain.DedupRecord
		postID sql.NullInt64
		feed   sql.NullString
		title  sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &postID, &feed, &title, &rec.ProcessedAt); err != nil {
		return domain.DedupRecord{}, fmt.Errorf("get processed %s: %w", id, err)
	}
	rec.PostID = postID.Int64
	rec.SourceFeed = feed.String
	rec.Title = title.String
	return rec, nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
