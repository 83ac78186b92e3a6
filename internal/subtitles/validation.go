package subtitles

import (
	"fmt"
	"time"
)

// durationTolerance is how far the last cue may end from the video length
// before the track is reported as mismatched.
const durationTolerance = 500 * time.Millisecond

// ValidateSRT checks parsed cues for format issues. An empty result means the
// track passed. A non-positive total skips the duration check.
func ValidateSRT(cues []Cue, total time.Duration) []string {
	if len(cues) == 0 {
		return []string{"empty_subtitle_file"}
	}
	var issues []string
	var last time.Duration
	for i, c := range cues {
		if c.End <= c.Start {
			issues = append(issues, fmt.Sprintf("non_positive_cue: #%d", c.Index))
		}
		if i > 0 {
			prev := cues[i-1]
			if c.Start < prev.Start {
				issues = append(issues, fmt.Sprintf("out_of_order: #%d", c.Index))
			} else if c.Start < prev.End {
				issues = append(issues, fmt.Sprintf("overlap: #%d/#%d", prev.Index, c.Index))
			}
		}
		last = max(last, c.End)
	}
	if total > 0 {
		delta := total - last
		if delta < 0 {
			issues = append(issues, fmt.Sprintf("cue_past_end: delta=%.3fs", delta.Seconds()))
		} else if delta > durationTolerance {
			issues = append(issues, fmt.Sprintf("duration_mismatch: delta=%.1fs", delta.Seconds()))
		}
	}
	return issues
}
