// Package subtitles turns narration segments into timed caption cues.
//
// Render wraps each segment to the cue style's line and line-count limits and
// splits the segment's timeline window into contiguous cues, one per chunk of
// wrapped lines. WriteASS produces the styled script burned in by the encoder;
// WriteSRT, ParseSRT and ValidateSRT handle the plain sidecar track.
package subtitles
