// Package audio plans how narration and background music combine.
//
// Mix places narration clips on the chapter timeline, checks that the
// narration audio agrees with the time the timeline allotted to it, and
// derives the music ducking envelope. The resulting Plan is pure data; the
// encoder renders it as ffmpeg filters.
package audio
