// Package freesound finds background music for a chapter mood.
//
// The local music directory is searched first using a fixed mood to filename
// table; when nothing matches, the Freesound text search is queried with a
// fixed mood to query table and the best-rated preview is downloaded. An
// empty path with a nil error means no music is available, which callers
// treat as a narration-only mix.
package freesound
