package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	mangaIDKey   contextKey = "manga_id"
	chapterIDKey contextKey = "chapter_id"
	stageKey     contextKey = "stage"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithChapter annotates context with the manga and chapter being processed.
func WithChapter(ctx context.Context, mangaID, chapterID string) context.Context {
	if mangaID != "" {
		ctx = context.WithValue(ctx, mangaIDKey, mangaID)
	}
	if chapterID != "" {
		ctx = context.WithValue(ctx, chapterIDKey, chapterID)
	}
	return ctx
}

// MangaIDFromContext returns the manga identifier if present.
func MangaIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(mangaIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// ChapterIDFromContext returns the chapter identifier if present.
func ChapterIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(chapterIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}
