package mangacache

import (
	"context"
	"slices"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"mangarecap/internal/recap"
)

// Memo is an in-memory read-through layer over another Store. Writes, clears
// and read misses for one manga are serialized, and entries are dropped only
// after the base write returns, so a miss can never refill a value the
// in-flight write is replacing.
type Memo struct {
	base  Store
	items *gocache.Cache
	keys  keyedMutex
}

// NewMemo wraps base. A non-positive ttl disables memoization.
func NewMemo(base Store, ttl time.Duration) Store {
	if ttl <= 0 {
		return base
	}
	return &Memo{base: base, items: gocache.New(ttl, 2*ttl)}
}

func contextKey(mangaID string) string {
	return "ctx\x00" + strings.TrimSpace(mangaID)
}

func chapterKey(mangaID, chapterID string) string {
	return "ch\x00" + strings.TrimSpace(mangaID) + "\x00" + strings.TrimSpace(chapterID)
}

func listKey(mangaID string) string {
	return "list\x00" + strings.TrimSpace(mangaID)
}

func (m *Memo) lockManga(mangaID string) func() {
	return m.keys.lock(strings.TrimSpace(mangaID))
}

func (m *Memo) GetMangaContext(ctx context.Context, mangaID string) (recap.MangaContext, bool, error) {
	key := contextKey(mangaID)
	if v, ok := m.items.Get(key); ok {
		return v.(recap.MangaContext), true, nil
	}
	unlock := m.lockManga(mangaID)
	defer unlock()
	if v, ok := m.items.Get(key); ok {
		return v.(recap.MangaContext), true, nil
	}
	mc, found, err := m.base.GetMangaContext(ctx, mangaID)
	if err == nil && found {
		m.items.SetDefault(key, mc)
	}
	return mc, found, err
}

func (m *Memo) PutMangaContext(ctx context.Context, mc recap.MangaContext) error {
	unlock := m.lockManga(mc.MangaID)
	defer unlock()
	err := m.base.PutMangaContext(ctx, mc)
	m.items.Delete(contextKey(mc.MangaID))
	return err
}

func (m *Memo) GetChapterSummary(ctx context.Context, mangaID, chapterID string) (recap.ChapterSummary, bool, error) {
	key := chapterKey(mangaID, chapterID)
	if v, ok := m.items.Get(key); ok {
		return v.(recap.ChapterSummary), true, nil
	}
	unlock := m.lockManga(mangaID)
	defer unlock()
	if v, ok := m.items.Get(key); ok {
		return v.(recap.ChapterSummary), true, nil
	}
	summary, found, err := m.base.GetChapterSummary(ctx, mangaID, chapterID)
	if err == nil && found {
		m.items.SetDefault(key, summary)
	}
	return summary, found, err
}

func (m *Memo) PutChapterSummary(ctx context.Context, summary recap.ChapterSummary) error {
	unlock := m.lockManga(summary.MangaID)
	defer unlock()
	err := m.base.PutChapterSummary(ctx, summary)
	m.items.Delete(chapterKey(summary.MangaID, summary.ChapterID))
	m.items.Delete(listKey(summary.MangaID))
	return err
}

func (m *Memo) ListChapters(ctx context.Context, mangaID string) ([]recap.ChapterSummary, error) {
	key := listKey(mangaID)
	if v, ok := m.items.Get(key); ok {
		return slices.Clone(v.([]recap.ChapterSummary)), nil
	}
	unlock := m.lockManga(mangaID)
	defer unlock()
	if v, ok := m.items.Get(key); ok {
		return slices.Clone(v.([]recap.ChapterSummary)), nil
	}
	chapters, err := m.base.ListChapters(ctx, mangaID)
	if err == nil {
		m.items.SetDefault(key, slices.Clone(chapters))
	}
	return chapters, err
}

func (m *Memo) PreviousSummaries(ctx context.Context, mangaID, before string, limit int) ([]recap.ChapterSummary, error) {
	chapters, err := m.ListChapters(ctx, mangaID)
	if err != nil {
		return nil, err
	}
	return selectPrevious(chapters, before, limit), nil
}

// ListManga always reads through; listings are rare and span every manga.
func (m *Memo) ListManga(ctx context.Context) ([]MangaEntry, error) {
	return m.base.ListManga(ctx)
}

func (m *Memo) ClearManga(ctx context.Context, mangaID string) error {
	unlock := m.lockManga(mangaID)
	defer unlock()
	err := m.base.ClearManga(ctx, mangaID)
	prefix := chapterKey(mangaID, "")
	for key := range m.items.Items() {
		if strings.HasPrefix(key, prefix) {
			m.items.Delete(key)
		}
	}
	m.items.Delete(contextKey(mangaID))
	m.items.Delete(listKey(mangaID))
	return err
}

func (m *Memo) Close() error {
	m.items.Flush()
	return m.base.Close()
}
