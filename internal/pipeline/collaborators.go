package pipeline

import (
	"context"
	"time"

	"mangarecap/internal/encoder"
	"mangarecap/internal/mangacache"
	"mangarecap/internal/recap"
)

// PageSource yields a chapter's pages in reading order. Implementations may
// download into dir.
type PageSource interface {
	FetchPages(ctx context.Context, chapterID, dir string) ([]recap.Page, error)
}

// Classifier labels and describes one page.
type Classifier interface {
	Classify(ctx context.Context, page recap.Page) (recap.Classification, error)
}

// Narrator scripts a chapter from its content pages.
type Narrator interface {
	Narrate(ctx context.Context, req recap.NarrationRequest) (recap.NarrationResult, error)
}

// SpeechSynthesizer renders one segment to outPath and returns its length.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, seg recap.NarrationSegment, outPath string) (time.Duration, error)
}

// MusicSource finds a background track for a mood. An empty path with a nil
// error means no music is available.
type MusicSource interface {
	Fetch(ctx context.Context, mood, dir string) (string, error)
}

// ContextSource supplies manga metadata for the first context of a manga.
type ContextSource interface {
	MangaContext(ctx context.Context, mangaID string) (recap.MangaContext, error)
}

// MediaProber measures page images and narration audio.
type MediaProber interface {
	ImageSize(ctx context.Context, path string) (int, int, error)
	AudioDuration(ctx context.Context, path string) (time.Duration, error)
}

// Encoder renders a finished job to a video file.
type Encoder interface {
	Encode(ctx context.Context, job encoder.Job) (encoder.Output, error)
}

// Dependencies wires collaborators into an Assembler. Speech, Music and
// Context are optional.
type Dependencies struct {
	Pages      PageSource
	Classifier Classifier
	Narrator   Narrator
	Speech     SpeechSynthesizer
	Music      MusicSource
	Context    ContextSource
	Prober     MediaProber
	Encoder    Encoder
	Store      mangacache.Store
}
