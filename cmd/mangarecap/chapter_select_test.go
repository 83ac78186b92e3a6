package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mangarecap/internal/logging"
	"mangarecap/internal/recap"
	"mangarecap/internal/services/mangadex"
	"mangarecap/internal/testsupport"
)

type fakeDirectory struct {
	chapters map[string]mangadex.ChapterInfo
	feed     []mangadex.ChapterInfo
	lookups  int
}

func (f *fakeDirectory) Chapter(_ context.Context, chapterID string) (mangadex.ChapterInfo, error) {
	f.lookups++
	info, ok := f.chapters[chapterID]
	if !ok {
		return mangadex.ChapterInfo{}, errors.New("chapter not found")
	}
	return info, nil
}

func (f *fakeDirectory) ListChapters(context.Context, string) ([]mangadex.ChapterInfo, error) {
	return f.feed, nil
}

func TestResolveOnlineLooksUpChapterNumber(t *testing.T) {
	dir := &fakeDirectory{chapters: map[string]mangadex.ChapterInfo{
		"uuid-12": {ID: "uuid-12", MangaID: "m", Number: "12"},
		"oneshot": {ID: "oneshot", MangaID: "m"},
	}}
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	tests := []struct {
		name       string
		flags      chapterFlags
		wantNumber string
		wantKey    string
	}{
		{name: "looked up", flags: chapterFlags{mangaID: "m", chapter: "uuid-12"}, wantNumber: "12", wantKey: "12"},
		{name: "explicit number wins", flags: chapterFlags{mangaID: "m", chapter: "uuid-12", number: "7"}, wantNumber: "7", wantKey: "7"},
		{name: "unnumbered chapter", flags: chapterFlags{mangaID: "m", chapter: "oneshot"}, wantNumber: "", wantKey: "oneshot"},
		{name: "lookup failure falls back", flags: chapterFlags{mangaID: "m", chapter: "gone"}, wantNumber: "", wantKey: "gone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := tt.flags.resolveOnline(ctx, dir, store, logging.NewNop())
			if err != nil {
				t.Fatalf("resolveOnline: %v", err)
			}
			if ch.ChapterNumber != tt.wantNumber || ch.OrderKey() != tt.wantKey || ch.MangaID != "m" {
				t.Fatalf("chapter = %+v, want number %q key %q", ch, tt.wantNumber, tt.wantKey)
			}
		})
	}
}

func TestResolveOnlineNextPicksChapterAfterLatestSummary(t *testing.T) {
	feed := []mangadex.ChapterInfo{
		{ID: "c10", Number: "10"},
		{ID: "c2", Number: "2"},
		{ID: "c1", Number: "1"},
		{ID: "c9", Number: "9"},
		{ID: "c2b", Number: "2.5"},
	}
	dir := &fakeDirectory{feed: feed}
	cfg := testsupport.NewConfig(t, testsupport.WithCacheBackend("sqlite"))
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	flags := chapterFlags{mangaID: "m", next: true}

	ch, err := flags.resolveOnline(ctx, dir, store, logging.NewNop())
	if err != nil {
		t.Fatalf("empty cache: %v", err)
	}
	if ch.ChapterID != "c1" || ch.ChapterNumber != "1" {
		t.Fatalf("empty cache picked %+v, want c1", ch)
	}

	for _, s := range []recap.ChapterSummary{
		{MangaID: "m", ChapterID: "c1", ChapterNumber: "1", SummaryText: "one", PageCount: 3},
		{MangaID: "m", ChapterID: "c2", ChapterNumber: "2", SummaryText: "two", PageCount: 3},
	} {
		if err := store.PutChapterSummary(ctx, s); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	ch, err = flags.resolveOnline(ctx, dir, store, logging.NewNop())
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if ch.ChapterID != "c2b" || ch.ChapterNumber != "2.5" {
		t.Fatalf("picked %+v, want c2b after chapter 2", ch)
	}
	if dir.lookups != 0 {
		t.Fatalf("--next should not look up chapter numbers, got %d lookups", dir.lookups)
	}

	if err := store.PutChapterSummary(ctx, recap.ChapterSummary{MangaID: "m", ChapterID: "c10", ChapterNumber: "10", SummaryText: "ten", PageCount: 3}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := flags.resolveOnline(ctx, dir, store, logging.NewNop()); err == nil || !strings.Contains(err.Error(), "no chapter after 10") {
		t.Fatalf("expected caught-up error, got %v", err)
	}
}

func TestNextChapterSkipsSummarizedIDs(t *testing.T) {
	feed := []mangadex.ChapterInfo{{ID: "a", Number: "3"}, {ID: "b", Number: "4"}}
	cached := []recap.ChapterSummary{{MangaID: "m", ChapterID: "b"}}
	// "b" orders last as an ID key, so only the summarized-ID rule applies.
	if _, ok := nextChapter(feed, cached); ok {
		t.Fatal("expected no chapter after a non-numeric latest key")
	}
	cached = []recap.ChapterSummary{{MangaID: "m", ChapterID: "a", ChapterNumber: "3"}}
	got, ok := nextChapter(feed, cached)
	if !ok || got.ID != "b" {
		t.Fatalf("next = %+v ok=%v, want b", got, ok)
	}
}
