package pipeline

import (
	"strings"

	"mangarecap/internal/audio"
	"mangarecap/internal/encoder"
	"mangarecap/internal/recap"
	"mangarecap/internal/timing"
)

// Stage is a state the assembler reaches for a chapter.
type Stage string

const (
	StageNone       Stage = ""
	StageClassified Stage = "CLASSIFY_DONE"
	StageTimed      Stage = "TIMED"
	StageComposited Stage = "COMPOSITED"
	StageSubtitled  Stage = "SUBTITLED"
	StageMixed      Stage = "MIXED"
	StageEncoded    Stage = "ENCODED"
	StageCached     Stage = "CACHED"
)

// Stages lists the states in order.
var Stages = []Stage{
	StageClassified,
	StageTimed,
	StageComposited,
	StageSubtitled,
	StageMixed,
	StageEncoded,
	StageCached,
}

// Chapter identifies the chapter to render and any prerecorded media.
type Chapter struct {
	MangaID       string
	ChapterID     string
	ChapterNumber string
	// Title, Synopsis and Genres seed the manga context when none is cached
	// and no context source is configured.
	Title    string
	Synopsis string
	Genres   []string
	// OutputPath overrides the default <output_dir>/<manga>/<chapter>.mp4.
	OutputPath string
	// NarrationAudio is a prerecorded whole-chapter narration track.
	NarrationAudio string
	// SegmentAudio holds prerecorded clips, one per narration segment.
	SegmentAudio []string
	// Music is a background track that bypasses the music source.
	Music string
	// Mood overrides the dominant page mood.
	Mood string
}

// OrderKey returns the value chapters are ordered by in the cache.
func (c Chapter) OrderKey() string {
	if n := strings.TrimSpace(c.ChapterNumber); n != "" {
		return n
	}
	return strings.TrimSpace(c.ChapterID)
}

// Result is what a run produced. Fields are filled as stages complete, so a
// failed run still reports everything up to the failure.
type Result struct {
	RunID    string
	Stage    Stage
	Pages    []recap.Page
	Segments []recap.NarrationSegment
	// TimingSource reports whether durations came from audio or estimates.
	TimingSource timing.Source
	Timeline     recap.Timeline
	Cues         []recap.SubtitleCue
	Mood         string
	Mix          audio.Plan
	Output       encoder.Output
	SRTPath      string
	Summary      recap.ChapterSummary
	Cached       bool
}

// ContentPages returns the number of pages classified as content.
func (r Result) ContentPages() int {
	return len(recap.ContentIndices(r.Pages))
}
