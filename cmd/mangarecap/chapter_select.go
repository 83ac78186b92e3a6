package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"mangarecap/internal/logging"
	"mangarecap/internal/mangacache"
	"mangarecap/internal/pipeline"
	"mangarecap/internal/recap"
	"mangarecap/internal/services/mangadex"
)

// chapterDirectory is the MangaDex lookup surface used to pick a chapter.
type chapterDirectory interface {
	Chapter(ctx context.Context, chapterID string) (mangadex.ChapterInfo, error)
	ListChapters(ctx context.Context, mangaID string) ([]mangadex.ChapterInfo, error)
}

// resolveOnline turns the online flags into a chapter. With --next the
// chapter comes from the feed; otherwise a missing --number is looked up so
// cached summaries order by chapter number rather than by ID.
func (f *chapterFlags) resolveOnline(ctx context.Context, dir chapterDirectory, store mangacache.Store, logger *slog.Logger) (pipeline.Chapter, error) {
	mangaID := strings.TrimSpace(f.mangaID)
	if f.next {
		return selectNextChapter(ctx, dir, store, mangaID, logger)
	}

	ch := pipeline.Chapter{
		MangaID:       mangaID,
		ChapterID:     strings.TrimSpace(f.chapter),
		ChapterNumber: strings.TrimSpace(f.number),
	}
	if ch.ChapterNumber != "" {
		return ch, nil
	}
	info, err := dir.Chapter(ctx, ch.ChapterID)
	switch {
	case err != nil:
		logging.WarnWithContext(logger, "chapter number lookup failed", "chapter_number_degraded",
			logging.String(logging.FieldChapterID, ch.ChapterID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "pass --number to set the chapter number"),
			logging.String(logging.FieldImpact, "chapter is ordered by its ID in the summary cache"),
		)
	case info.Number == "":
		logger.Info("chapter has no number; ordering by chapter id",
			logging.String(logging.FieldChapterID, ch.ChapterID))
	default:
		ch.ChapterNumber = info.Number
		if info.MangaID != "" && info.MangaID != mangaID {
			logging.WarnWithContext(logger, "chapter belongs to a different manga", "chapter_manga_mismatch",
				logging.String(logging.FieldMangaID, mangaID),
				logging.String("chapter_manga_id", info.MangaID),
				logging.String(logging.FieldImpact, "summary is cached under --manga"),
			)
		}
	}
	return ch, nil
}

func selectNextChapter(ctx context.Context, dir chapterDirectory, store mangacache.Store, mangaID string, logger *slog.Logger) (pipeline.Chapter, error) {
	feed, err := dir.ListChapters(ctx, mangaID)
	if err != nil {
		return pipeline.Chapter{}, err
	}
	cached, err := store.ListChapters(ctx, mangaID)
	if err != nil {
		return pipeline.Chapter{}, fmt.Errorf("read cached chapters: %w", err)
	}
	latest := ""
	if len(cached) > 0 {
		latest = cached[len(cached)-1].OrderKey()
	}
	next, ok := nextChapter(feed, cached)
	if !ok {
		if latest == "" {
			return pipeline.Chapter{}, fmt.Errorf("manga %s has no readable chapters", mangaID)
		}
		return pipeline.Chapter{}, fmt.Errorf("manga %s has no chapter after %s", mangaID, latest)
	}
	reason := "first listed chapter"
	if latest != "" {
		reason = "after cached chapter " + latest
	}
	logger.Info("next chapter selected", logging.Args(append(logging.DecisionAttrs("next_chapter", next.ID, reason),
		logging.String(logging.FieldMangaID, mangaID),
		logging.String("chapter_number", next.Number),
	)...)...)
	return pipeline.Chapter{MangaID: mangaID, ChapterID: next.ID, ChapterNumber: next.Number}, nil
}

// nextChapter returns the first feed chapter ordered after the latest cached
// summary that has not been summarized yet. cached must be in reading order.
func nextChapter(feed []mangadex.ChapterInfo, cached []recap.ChapterSummary) (mangadex.ChapterInfo, bool) {
	done := make(map[string]bool, len(cached))
	for _, s := range cached {
		done[s.ChapterID] = true
	}
	latest := ""
	if len(cached) > 0 {
		latest = cached[len(cached)-1].OrderKey()
	}
	ordered := slices.Clone(feed)
	slices.SortStableFunc(ordered, func(a, b mangadex.ChapterInfo) int {
		return mangacache.CompareChapterKeys(a.OrderKey(), b.OrderKey())
	})
	for _, c := range ordered {
		if done[c.ID] {
			continue
		}
		if latest == "" || mangacache.CompareChapterKeys(c.OrderKey(), latest) > 0 {
			return c, true
		}
	}
	return mangadex.ChapterInfo{}, false
}
