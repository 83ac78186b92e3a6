// Package pipeline assembles one manga chapter into a recap video.
//
// The Assembler is a strict state machine:
//
//	CLASSIFY_DONE → TIMED → COMPOSITED → SUBTITLED → MIXED → ENCODED → CACHED
//
// Each stage consumes only the previous stage's output. Page classification
// is the one fan-out point; results are re-joined in reading order before
// timing. Failures abort the run with a *services.StageError naming the stage
// that was being attempted, and the Cache Store is written only by CACHED, so
// aborted or cancelled runs never record a chapter summary.
//
// Collaborators (page source, classifier, narrator, speech, music, encoder,
// media prober) are interfaces so offline manifests, network services and
// test fakes plug in interchangeably.
package pipeline
