package subtitles

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
	"mangarecap/internal/timing"
)

// Render builds the cue track for a chapter. Segment i is shown during
// tl.Windows[i]; its cues cover that window exactly, with no gap or overlap.
func Render(segments []recap.NarrationSegment, tl recap.Timeline, style recap.CueStyle) ([]recap.SubtitleCue, error) {
	if len(tl.Windows) != len(segments) {
		return nil, invalid("render", fmt.Errorf("%d windows for %d segments", len(tl.Windows), len(segments)))
	}
	if style.MaxCharsPerLine <= 0 || style.MaxLines <= 0 {
		return nil, invalid("render", fmt.Errorf("style %q has no line limits", style.Name))
	}

	var cues []recap.SubtitleCue
	for i, seg := range segments {
		window := tl.Windows[i]
		if window.SegmentIndex != seg.Index {
			return nil, invalid("render", fmt.Errorf("window %d belongs to segment %d", i, window.SegmentIndex))
		}
		chunks := Chunk(Wrap(seg.Text, style.MaxCharsPerLine), style.MaxLines)
		if len(chunks) == 0 {
			return nil, invalid("render", fmt.Errorf("segment %d has no text", seg.Index))
		}
		weights := make([]int64, len(chunks))
		for k, chunk := range chunks {
			weights[k] = int64(utf8.RuneCountInString(strings.Join(chunk, "")))
		}
		spans := timing.Apportion(window.Duration(), weights)

		start := window.Start
		for k, chunk := range chunks {
			end := start + spans[k]
			if k == len(chunks)-1 {
				end = window.End
			}
			if end <= start {
				return nil, invalid("render", fmt.Errorf("segment %d window %s is too short for %d cues", seg.Index, window.Duration(), len(chunks)))
			}
			cues = append(cues, recap.SubtitleCue{
				Start:         start,
				End:           end,
				Text:          strings.Join(chunk, " "),
				Lines:         chunk,
				PageIndexHint: tl.PageAt(start),
				SegmentIndex:  seg.Index,
				Style:         style.Name,
			})
			start = end
		}
	}
	return Clip(cues, tl.Total), nil
}

// Clip drops cues that start at or after total and trims the last one to end
// at total.
func Clip(cues []recap.SubtitleCue, total time.Duration) []recap.SubtitleCue {
	out := cues[:0:0]
	for _, c := range cues {
		if c.Start >= total {
			continue
		}
		if c.End > total {
			c.End = total
		}
		out = append(out, c)
	}
	return out
}

// CheckTrack verifies cue ordering: each cue has positive length and none
// overlaps its predecessor.
func CheckTrack(cues []recap.SubtitleCue) error {
	for i, c := range cues {
		if c.End <= c.Start {
			return fmt.Errorf("cue %d: end %s not after start %s", i, c.End, c.Start)
		}
		if i > 0 && c.Start < cues[i-1].End {
			return fmt.Errorf("cue %d overlaps cue %d", i, i-1)
		}
	}
	return nil
}

func invalid(operation string, err error) error {
	return services.Wrap(services.ErrTimingInconsistency, "subtitles", operation, "", err)
}
