package logging

import (
	"context"
	"log/slog"

	"mangarecap/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldStage is the standardized key for assembler stage names.
	FieldStage = "stage"
	// FieldRunID is the standardized key for pipeline run identifiers.
	FieldRunID     = "run_id"
	FieldMangaID   = "manga_id"
	FieldChapterID = "chapter_id"
	FieldPageIndex = "page_index"
	// FieldEventType names what happened, e.g. stage_complete.
	FieldEventType = "event_type"
	// FieldErrorHint is the operator's next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact       = "impact"
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.MangaIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldMangaID, id))
	}
	if id, ok := services.ChapterIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldChapterID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
