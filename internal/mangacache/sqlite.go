package mangacache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mangarecap/internal/logging"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// DBFileName is the database file created under the cache directory.
const DBFileName = "cache.db"

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteStore keeps manga contexts and chapter summaries in one database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
	keys   keyedMutex
}

// OpenSQLite opens or creates <dir>/cache.db and ensures the schema.
func OpenSQLite(dir string, logger *slog.Logger) (*SQLiteStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "cache directory is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, unavailable("open", fmt.Errorf("create cache directory: %w", err))
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, unavailable("open", fmt.Errorf("open sqlite db: %w", err))
	}
	// One connection keeps the pragmas below in effect for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, unavailable("open", fmt.Errorf("apply pragma %q: %w", pragma, execErr))
		}
	}

	store := &SQLiteStore{db: db, path: dbPath, logger: logging.NewComponentLogger(logger, "mangacache")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists); err != nil {
		return unavailable("init schema", err)
	}

	if tableExists > 0 {
		var version int
		err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
		if err == nil && version == schemaVersion {
			return nil
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return unavailable("init schema", fmt.Errorf("read schema version: %w", err))
		}
		if err == nil {
			return services.Wrap(services.ErrConfiguration, "cache", "init schema",
				fmt.Sprintf("database %s has schema version %d, expected %d; delete it to rebuild", s.path, version, schemaVersion), nil)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("init schema", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return unavailable("init schema", fmt.Errorf("create schema: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return unavailable("init schema", fmt.Errorf("record schema version: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return unavailable("init schema", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func (s *SQLiteStore) exec(ctx context.Context, operation, query string, args ...any) error {
	ctx = ensureContext(ctx)
	if err := retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	}); err != nil {
		return unavailable(operation, err)
	}
	return nil
}

func (s *SQLiteStore) GetMangaContext(ctx context.Context, mangaID string) (recap.MangaContext, bool, error) {
	mangaID, err := requireID("get manga context", mangaID)
	if err != nil {
		return recap.MangaContext{}, false, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT manga_id, title, synopsis, recurring_character_notes, genres_json, last_updated
         FROM manga_context WHERE manga_id = ?`, mangaID)
	var (
		mc          recap.MangaContext
		genresJSON  string
		lastUpdated string
	)
	err = row.Scan(&mc.MangaID, &mc.Title, &mc.Synopsis, &mc.RecurringCharacterNotes, &genresJSON, &lastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return recap.MangaContext{}, false, nil
	}
	if err != nil {
		return recap.MangaContext{}, false, unavailable("get manga context", err)
	}
	if genresJSON != "" {
		if err := json.Unmarshal([]byte(genresJSON), &mc.Genres); err != nil {
			return recap.MangaContext{}, false, unavailable("decode genres", err)
		}
	}
	mc.LastUpdated = parseTime(lastUpdated)
	return mc, true, nil
}

func (s *SQLiteStore) PutMangaContext(ctx context.Context, mc recap.MangaContext) error {
	if err := mc.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "cache", "put manga context", "", err)
	}
	mc.MangaID = strings.TrimSpace(mc.MangaID)
	genres, err := encodeGenres(mc.Genres)
	if err != nil {
		return services.Wrap(services.ErrValidation, "cache", "put manga context", "encode genres", err)
	}
	unlock := s.keys.lock(mc.MangaID)
	defer unlock()
	return s.exec(ctx, "put manga context",
		`INSERT INTO manga_context (manga_id, title, synopsis, recurring_character_notes, genres_json, last_updated)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(manga_id) DO UPDATE SET
             title = excluded.title,
             synopsis = excluded.synopsis,
             recurring_character_notes = excluded.recurring_character_notes,
             genres_json = excluded.genres_json,
             last_updated = excluded.last_updated`,
		mc.MangaID, mc.Title, mc.Synopsis, mc.RecurringCharacterNotes, genres, formatTime(mc.LastUpdated))
}

const chapterColumns = `manga_id, chapter_id, chapter_number, summary_text, page_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChapter(row rowScanner) (recap.ChapterSummary, error) {
	var (
		summary   recap.ChapterSummary
		createdAt string
	)
	if err := row.Scan(&summary.MangaID, &summary.ChapterID, &summary.ChapterNumber, &summary.SummaryText, &summary.PageCount, &createdAt); err != nil {
		return recap.ChapterSummary{}, err
	}
	summary.CreatedAt = parseTime(createdAt)
	return summary, nil
}

func (s *SQLiteStore) GetChapterSummary(ctx context.Context, mangaID, chapterID string) (recap.ChapterSummary, bool, error) {
	mangaID, err := requireID("get chapter summary", mangaID)
	if err != nil {
		return recap.ChapterSummary{}, false, err
	}
	if chapterID, err = requireID("get chapter summary", chapterID); err != nil {
		return recap.ChapterSummary{}, false, err
	}
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+chapterColumns+` FROM chapter_summary WHERE manga_id = ? AND chapter_id = ?`, mangaID, chapterID)
	summary, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return recap.ChapterSummary{}, false, nil
	}
	if err != nil {
		return recap.ChapterSummary{}, false, unavailable("get chapter summary", err)
	}
	return summary, true, nil
}

func (s *SQLiteStore) PutChapterSummary(ctx context.Context, summary recap.ChapterSummary) error {
	if err := summary.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "cache", "put chapter summary", "", err)
	}
	summary.MangaID = strings.TrimSpace(summary.MangaID)
	summary.ChapterID = strings.TrimSpace(summary.ChapterID)
	unlock := s.keys.lock(summary.MangaID)
	defer unlock()
	return s.exec(ctx, "put chapter summary",
		`INSERT INTO chapter_summary (`+chapterColumns+`)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(manga_id, chapter_id) DO UPDATE SET
             chapter_number = excluded.chapter_number,
             summary_text = excluded.summary_text,
             page_count = excluded.page_count,
             created_at = excluded.created_at`,
		summary.MangaID, summary.ChapterID, summary.ChapterNumber, summary.SummaryText, summary.PageCount, formatTime(summary.CreatedAt))
}

func (s *SQLiteStore) ListChapters(ctx context.Context, mangaID string) ([]recap.ChapterSummary, error) {
	mangaID, err := requireID("list chapters", mangaID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+chapterColumns+` FROM chapter_summary WHERE manga_id = ?`, mangaID)
	if err != nil {
		return nil, unavailable("list chapters", err)
	}
	defer rows.Close()

	var out []recap.ChapterSummary
	for rows.Next() {
		summary, err := scanChapter(rows)
		if err != nil {
			return nil, unavailable("list chapters", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list chapters", err)
	}
	sortChapters(out)
	return out, nil
}

func (s *SQLiteStore) PreviousSummaries(ctx context.Context, mangaID, before string, limit int) ([]recap.ChapterSummary, error) {
	chapters, err := s.ListChapters(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	return selectPrevious(chapters, before, limit), nil
}

func (s *SQLiteStore) ListManga(ctx context.Context) ([]MangaEntry, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `
        SELECT ids.manga_id,
               COALESCE(mc.title, ''),
               (SELECT COUNT(1) FROM chapter_summary cs WHERE cs.manga_id = ids.manga_id),
               COALESCE(mc.last_updated, '')
        FROM (SELECT manga_id FROM manga_context
              UNION SELECT manga_id FROM chapter_summary) ids
        LEFT JOIN manga_context mc ON mc.manga_id = ids.manga_id
        ORDER BY ids.manga_id`)
	if err != nil {
		return nil, unavailable("list manga", err)
	}
	defer rows.Close()

	var out []MangaEntry
	for rows.Next() {
		var (
			entry       MangaEntry
			lastUpdated string
		)
		if err := rows.Scan(&entry.MangaID, &entry.Title, &entry.ChapterCount, &lastUpdated); err != nil {
			return nil, unavailable("list manga", err)
		}
		entry.LastUpdated = parseTime(lastUpdated)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list manga", err)
	}
	return out, nil
}

func (s *SQLiteStore) ClearManga(ctx context.Context, mangaID string) error {
	mangaID, err := requireID("clear manga", mangaID)
	if err != nil {
		return err
	}
	unlock := s.keys.lock(mangaID)
	defer unlock()

	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return unavailable("clear manga", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, `DELETE FROM chapter_summary WHERE manga_id = ?`, mangaID); err != nil {
			return unavailable("clear manga", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM manga_context WHERE manga_id = ?`, mangaID); err != nil {
			return unavailable("clear manga", err)
		}
		if err := tx.Commit(); err != nil {
			return unavailable("clear manga", err)
		}
		s.logger.Info("manga cache cleared",
			logging.String(logging.FieldMangaID, mangaID),
			logging.String(logging.FieldEventType, "cache_cleared"))
		return nil
	})
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// encodeGenres stores an empty list as "" so it reads back as nil, matching
// the omitempty JSON documents of FileStore.
func encodeGenres(genres []string) (string, error) {
	if len(genres) == 0 {
		return "", nil
	}
	data, err := json.Marshal(genres)
	return string(data), err
}
