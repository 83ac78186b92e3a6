// Package encoder renders a chapter timeline to a video file with ffmpeg.
//
// BuildArgs is pure: it turns a Job into the full ffmpeg argument list, one
// still image input per page, a per-page scale/pad/zoompan chain, concat, an
// optional mood grade, caption burn-in through libass and the narration plus
// ducked music mix. FFmpeg.Encode writes the captions file, runs ffmpeg into
// a partial file and renames it into place only on success, so an aborted
// run never leaves a final output behind.
package encoder
