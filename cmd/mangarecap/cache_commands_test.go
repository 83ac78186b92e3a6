package main

import (
	"context"
	"testing"
	"time"

	"mangarecap/internal/logging"
	"mangarecap/internal/mangacache"
	"mangarecap/internal/recap"
)

func TestCacheListShowClear(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "Cache is empty")

	store, err := mangacache.Open(env.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	ctx := context.Background()
	now := time.Now().UTC()
	if err := store.PutMangaContext(ctx, recap.MangaContext{
		MangaID:     "hero-saga",
		Title:       "Hero Saga",
		Genres:      []string{"action", "slice of life"},
		LastUpdated: now,
	}); err != nil {
		t.Fatalf("PutMangaContext: %v", err)
	}
	for _, n := range []string{"2", "10", "1"} {
		if err := store.PutChapterSummary(ctx, recap.ChapterSummary{
			MangaID:       "hero-saga",
			ChapterID:     "ch-" + n,
			ChapterNumber: n,
			SummaryText:   "Summary of chapter " + n + ".",
			PageCount:     20,
			CreatedAt:     now,
		}); err != nil {
			t.Fatalf("PutChapterSummary(%s): %v", n, err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close cache: %v", err)
	}

	out, _, err = runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "hero-saga")
	requireContains(t, out, "Hero Saga")

	out, _, err = runCLI(t, []string{"cache", "show", "hero-saga"}, env.configPath)
	if err != nil {
		t.Fatalf("cache show: %v", err)
	}
	requireContains(t, out, "Action, Slice Of Life")
	requireContains(t, out, "Summary of chapter 10.")

	out, _, err = runCLI(t, []string{"cache", "clear", "hero-saga"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, "Cleared cache for hero-saga")

	out, _, err = runCLI(t, []string{"cache", "show", "hero-saga"}, env.configPath)
	if err != nil {
		t.Fatalf("cache show after clear: %v", err)
	}
	requireContains(t, out, "Nothing cached for hero-saga")
}
