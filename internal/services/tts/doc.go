// Package tts synthesizes narration audio one segment at a time with the
// edge-tts command line tool and measures each clip with ffprobe, so the
// timing allocator can use real per-segment durations.
package tts
