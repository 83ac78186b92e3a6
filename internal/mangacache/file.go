package mangacache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"mangarecap/internal/fileutil"
	"mangarecap/internal/logging"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

const (
	contextFileName = "context.json"
	chaptersDirName = "chapters"
	lockFileName    = ".lock"
	lockRetryDelay  = 25 * time.Millisecond
)

// FileStore keeps one JSON document per record:
//
//	<dir>/<manga>/context.json
//	<dir>/<manga>/chapters/ch_<chapter>.json
//
// <manga> and <chapter> are path-escaped IDs, so distinct IDs never share a
// file. Reads also check the IDs stored in the document, which covers
// case-insensitive filesystems.
//
// Writes are atomic renames, serialized per manga by an in-process mutex and
// a flock on <dir>/<manga>/.lock.
type FileStore struct {
	dir    string
	logger *slog.Logger
	keys   keyedMutex
}

// NewFileStore creates the cache root if needed.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "cache directory is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, unavailable("open", fmt.Errorf("create cache directory: %w", err))
	}
	return &FileStore{dir: dir, logger: logging.NewComponentLogger(logger, "mangacache")}, nil
}

func (s *FileStore) mangaDir(mangaID string) string {
	return filepath.Join(s.dir, encodePathKey(mangaID))
}

func (s *FileStore) chapterPath(mangaID, chapterID string) string {
	return filepath.Join(s.mangaDir(mangaID), chaptersDirName, "ch_"+encodePathKey(chapterID)+".json")
}

// withWriteLock serializes fn against other writers of the same manga.
func (s *FileStore) withWriteLock(ctx context.Context, mangaID string, fn func() error) error {
	unlock := s.keys.lock(mangaID)
	defer unlock()

	dir := s.mangaDir(mangaID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return unavailable("lock", err)
	}
	lock := flock.New(filepath.Join(dir, lockFileName))
	ok, err := lock.TryLockContext(ensureContext(ctx), lockRetryDelay)
	if err != nil {
		return unavailable("lock", err)
	}
	if !ok {
		return unavailable("lock", errors.New("manga lock not acquired"))
	}
	defer func() { _ = lock.Unlock() }()
	return fn()
}

func (s *FileStore) GetMangaContext(ctx context.Context, mangaID string) (recap.MangaContext, bool, error) {
	mangaID, err := requireID("get manga context", mangaID)
	if err != nil {
		return recap.MangaContext{}, false, err
	}
	var mc recap.MangaContext
	found, err := readJSON(filepath.Join(s.mangaDir(mangaID), contextFileName), &mc)
	if err != nil || !found || mc.MangaID != mangaID {
		return recap.MangaContext{}, false, err
	}
	return mc, true, nil
}

func (s *FileStore) PutMangaContext(ctx context.Context, mc recap.MangaContext) error {
	if err := mc.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "cache", "put manga context", "", err)
	}
	mc.MangaID = strings.TrimSpace(mc.MangaID)
	return s.withWriteLock(ctx, mc.MangaID, func() error {
		if err := fileutil.WriteJSONAtomic(filepath.Join(s.mangaDir(mc.MangaID), contextFileName), mc); err != nil {
			return unavailable("put manga context", err)
		}
		s.logger.Debug("manga context cached", logging.String(logging.FieldMangaID, mc.MangaID))
		return nil
	})
}

func (s *FileStore) GetChapterSummary(ctx context.Context, mangaID, chapterID string) (recap.ChapterSummary, bool, error) {
	mangaID, err := requireID("get chapter summary", mangaID)
	if err != nil {
		return recap.ChapterSummary{}, false, err
	}
	if chapterID, err = requireID("get chapter summary", chapterID); err != nil {
		return recap.ChapterSummary{}, false, err
	}
	var summary recap.ChapterSummary
	found, err := readJSON(s.chapterPath(mangaID, chapterID), &summary)
	if err != nil || !found || summary.MangaID != mangaID || summary.ChapterID != chapterID {
		return recap.ChapterSummary{}, false, err
	}
	return summary, true, nil
}

func (s *FileStore) PutChapterSummary(ctx context.Context, summary recap.ChapterSummary) error {
	if err := summary.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "cache", "put chapter summary", "", err)
	}
	summary.MangaID = strings.TrimSpace(summary.MangaID)
	summary.ChapterID = strings.TrimSpace(summary.ChapterID)
	return s.withWriteLock(ctx, summary.MangaID, func() error {
		if err := fileutil.WriteJSONAtomic(s.chapterPath(summary.MangaID, summary.ChapterID), summary); err != nil {
			return unavailable("put chapter summary", err)
		}
		s.logger.Debug("chapter summary cached",
			logging.String(logging.FieldMangaID, summary.MangaID),
			logging.String(logging.FieldChapterID, summary.ChapterID))
		return nil
	})
}

func (s *FileStore) ListChapters(ctx context.Context, mangaID string) ([]recap.ChapterSummary, error) {
	mangaID, err := requireID("list chapters", mangaID)
	if err != nil {
		return nil, err
	}
	paths, err := filepath.Glob(filepath.Join(s.mangaDir(mangaID), chaptersDirName, "ch_*.json"))
	if err != nil {
		return nil, unavailable("list chapters", err)
	}
	out := make([]recap.ChapterSummary, 0, len(paths))
	for _, path := range paths {
		var summary recap.ChapterSummary
		found, err := readJSON(path, &summary)
		if err != nil {
			return nil, err
		}
		if found && summary.MangaID == mangaID {
			out = append(out, summary)
		}
	}
	sortChapters(out)
	return out, nil
}

func (s *FileStore) PreviousSummaries(ctx context.Context, mangaID, before string, limit int) ([]recap.ChapterSummary, error) {
	chapters, err := s.ListChapters(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	return selectPrevious(chapters, before, limit), nil
}

func (s *FileStore) ListManga(ctx context.Context) ([]MangaEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, unavailable("list manga", err)
	}
	var out []MangaEntry
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.dir, entry.Name())
		var mc recap.MangaContext
		hasContext, err := readJSON(filepath.Join(dir, contextFileName), &mc)
		if err != nil {
			return nil, err
		}
		chapters, _ := filepath.Glob(filepath.Join(dir, chaptersDirName, "ch_*.json"))
		if !hasContext && len(chapters) == 0 {
			continue
		}
		item := MangaEntry{MangaID: mc.MangaID, Title: mc.Title, ChapterCount: len(chapters), LastUpdated: mc.LastUpdated}
		if item.MangaID == "" {
			if item.MangaID, err = url.PathUnescape(entry.Name()); err != nil {
				continue
			}
		}
		out = append(out, item)
	}
	slices.SortFunc(out, func(a, b MangaEntry) int { return strings.Compare(a.MangaID, b.MangaID) })
	return out, nil
}

func (s *FileStore) ClearManga(ctx context.Context, mangaID string) error {
	mangaID, err := requireID("clear manga", mangaID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(s.mangaDir(mangaID)); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return s.withWriteLock(ctx, mangaID, func() error {
		dir := s.mangaDir(mangaID)
		if err := os.Remove(filepath.Join(dir, contextFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return unavailable("clear manga", err)
		}
		if err := os.RemoveAll(filepath.Join(dir, chaptersDirName)); err != nil {
			return unavailable("clear manga", err)
		}
		s.logger.Info("manga cache cleared",
			logging.String(logging.FieldMangaID, mangaID),
			logging.String(logging.FieldEventType, "cache_cleared"))
		return nil
	})
}

// Close is a no-op; FileStore holds no open handles between calls.
func (s *FileStore) Close() error { return nil }

// encodePathKey escapes an ID into a single path element. Leading dots are
// escaped too so "." and ".." stay ordinary names.
func encodePathKey(id string) string {
	escaped := url.PathEscape(strings.TrimSpace(id))
	if strings.HasPrefix(escaped, ".") {
		escaped = "%2E" + escaped[1:]
	}
	return escaped
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, unavailable("read", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, unavailable("decode", fmt.Errorf("%s: %w", filepath.Base(path), err))
	}
	return true, nil
}
