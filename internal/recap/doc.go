// Package recap defines the data model shared by every stage of a chapter
// recap: cached manga context and chapter summaries, classified pages,
// narration segments, motion plans, subtitle cues and the timeline that ties
// them together.
//
// Types here are plain values. Validation helpers enforce the structural
// invariants (description present only for content pages, narration following
// reading order, non-empty summaries) so collaborator output can be checked at
// the boundary before it reaches the timing and compositing stages.
//
// All durations are time.Duration so that sums over a timeline are exact
// integer arithmetic; convert with Seconds() only at presentation boundaries.
package recap
