// Package timing turns narration segments into the chapter timeline.
//
// Allocate decides how long each segment is narrated (measured per-segment
// audio, a measured total split by text length, or an estimate from the
// speaking rate), spreads each segment across the pages it describes, and
// raises short pages to the display floor. All arithmetic is done on integer
// durations so plan durations always sum to the timeline total.
package timing
