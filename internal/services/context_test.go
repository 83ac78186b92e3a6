package services_test

import (
	"context"
	"testing"

	"mangarecap/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithChapter(ctx, "manga-1", "ch-9")
	ctx = services.WithStage(ctx, "TIMED")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if id, ok := services.MangaIDFromContext(ctx); !ok || id != "manga-1" {
		t.Fatalf("unexpected manga id: %v %v", id, ok)
	}
	if id, ok := services.ChapterIDFromContext(ctx); !ok || id != "ch-9" {
		t.Fatalf("unexpected chapter id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "TIMED" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	ctx = services.WithChapter(ctx, "", "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.MangaIDFromContext(ctx); ok {
		t.Fatal("expected no manga value")
	}
}
