package mangacache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"mangarecap/internal/config"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// Store is the keyed manga context and chapter summary store. Records are
// stored as given, timestamps included: a zero LastUpdated or CreatedAt reads
// back as zero, and an empty Genres list reads back as nil. IDs are trimmed
// and otherwise compared exactly, so "M1" and "m1" are different manga.
type Store interface {
	GetMangaContext(ctx context.Context, mangaID string) (recap.MangaContext, bool, error)
	// PutMangaContext overwrites any existing context for the manga.
	PutMangaContext(ctx context.Context, mc recap.MangaContext) error
	GetChapterSummary(ctx context.Context, mangaID, chapterID string) (recap.ChapterSummary, bool, error)
	// PutChapterSummary inserts or overwrites the summary for the chapter.
	PutChapterSummary(ctx context.Context, summary recap.ChapterSummary) error
	// PreviousSummaries returns up to limit summaries of chapters ordered
	// strictly before the given chapter number, oldest first.
	PreviousSummaries(ctx context.Context, mangaID, before string, limit int) ([]recap.ChapterSummary, error)
	ListManga(ctx context.Context) ([]MangaEntry, error)
	// ListChapters returns every cached chapter in reading order.
	ListChapters(ctx context.Context, mangaID string) ([]recap.ChapterSummary, error)
	ClearManga(ctx context.Context, mangaID string) error
	Close() error
}

// MangaEntry summarizes one cached manga for listings.
type MangaEntry struct {
	MangaID      string
	Title        string
	ChapterCount int
	LastUpdated  time.Time
}

const (
	backendFile   = "file"
	backendSQLite = "sqlite"
)

// Open builds the configured backend wrapped in a Memo.
func Open(cfg *config.Config, logger *slog.Logger) (Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", "config is nil", nil)
	}
	var (
		base Store
		err  error
	)
	switch cfg.Cache.Backend {
	case backendSQLite:
		base, err = OpenSQLite(cfg.Cache.Dir, logger)
	case backendFile, "":
		base, err = NewFileStore(cfg.Cache.Dir, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "cache", "open", fmt.Sprintf("unknown backend %q", cfg.Cache.Backend), nil)
	}
	if err != nil {
		return nil, err
	}
	return NewMemo(base, time.Duration(cfg.Cache.MemoryTTLSeconds)*time.Second), nil
}

// keyedMutex hands out one mutex per key. Entries are never removed; the key
// space is the set of manga touched by one process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func requireID(kind, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", services.Wrap(services.ErrValidation, "cache", kind, "identifier is required", nil)
	}
	return value, nil
}

func unavailable(operation string, err error) error {
	return services.Wrap(services.ErrCacheUnavailable, "cache", operation, "", err)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
