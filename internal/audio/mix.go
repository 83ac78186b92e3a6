package audio

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

const (
	DefaultAmbientVolume = 0.3
	DefaultDuckVolume    = 0.08
	DefaultGapThreshold  = time.Second
	DefaultTolerance     = 300 * time.Millisecond
)

// WholeTrack marks a clip that covers the whole narration rather than one
// segment.
const WholeTrack = -1

// Clip is one narration audio file with its measured length.
type Clip struct {
	Path         string
	Duration     time.Duration
	SegmentIndex int
}

// Input is everything Mix needs.
type Input struct {
	Timeline  recap.Timeline
	Narration []Clip
	// Music is an optional background track, looped to the timeline length.
	Music         string
	AmbientVolume float64
	DuckVolume    float64
	// GapThreshold is the narration pause length above which music returns
	// to ambient volume.
	GapThreshold time.Duration
	Tolerance    time.Duration
}

// Placement is a narration clip positioned on the timeline.
type Placement struct {
	Path     string
	Offset   time.Duration
	Duration time.Duration
}

// Interval is a half-open span of the timeline.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// Plan is the resolved audio mix.
type Plan struct {
	Narration     []Placement
	Music         string
	Ducked        []Interval
	AmbientVolume float64
	DuckVolume    float64
	Total         time.Duration
}

// Silent reports whether the plan has no audio at all.
func (p Plan) Silent() bool { return len(p.Narration) == 0 && p.Music == "" }

// HasMusic reports whether a music bed is mixed in.
func (p Plan) HasMusic() bool { return p.Music != "" }

// Mix builds the audio plan for a timeline.
func Mix(in Input) (Plan, error) {
	tl := in.Timeline
	if tl.Total <= 0 {
		return Plan{}, mixErr("validate", fmt.Errorf("timeline has no duration"))
	}
	ambient, duck := in.AmbientVolume, in.DuckVolume
	if ambient <= 0 {
		ambient = DefaultAmbientVolume
	}
	if duck <= 0 {
		duck = DefaultDuckVolume
	}
	gap := in.GapThreshold
	if gap <= 0 {
		gap = DefaultGapThreshold
	}
	tol := in.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	plan := Plan{
		Music:         strings.TrimSpace(in.Music),
		AmbientVolume: ambient,
		DuckVolume:    duck,
		Total:         tl.Total,
	}

	placements, err := place(tl, in.Narration, tol)
	if err != nil {
		return Plan{}, err
	}
	plan.Narration = placements
	if plan.HasMusic() {
		plan.Ducked = duckIntervals(placements, tl.Total, gap)
	}
	return plan, nil
}

func place(tl recap.Timeline, clips []Clip, tol time.Duration) ([]Placement, error) {
	if len(clips) == 0 {
		return nil, nil
	}
	for i, c := range clips {
		if strings.TrimSpace(c.Path) == "" || c.Duration <= 0 {
			return nil, mixErr("validate", fmt.Errorf("narration clip %d has no audio", i))
		}
	}

	var total time.Duration
	out := make([]Placement, 0, len(clips))
	if len(clips) == 1 && clips[0].SegmentIndex == WholeTrack {
		c := clips[0]
		out = append(out, Placement{Path: c.Path, Duration: c.Duration})
		total = c.Duration
	} else {
		if len(clips) != len(tl.Windows) {
			return nil, mixErr("place", fmt.Errorf("%d narration clips for %d segments", len(clips), len(tl.Windows)))
		}
		for i, c := range clips {
			w := tl.Windows[i]
			if c.SegmentIndex != w.SegmentIndex {
				return nil, mixErr("place", fmt.Errorf("clip %d is for segment %d, window is segment %d", i, c.SegmentIndex, w.SegmentIndex))
			}
			if over := c.Duration - w.Duration(); over > tol {
				return nil, mixErr("place", fmt.Errorf("segment %d audio %s overruns its %s window", w.SegmentIndex, c.Duration, w.Duration()))
			}
			out = append(out, Placement{Path: c.Path, Offset: w.Start, Duration: c.Duration})
			total += c.Duration
		}
	}

	if diff := total - tl.Narrated; diff > tol || diff < -tol {
		return nil, mixErr("check sync", fmt.Errorf("narration audio %s disagrees with timeline narration %s by %s", total, tl.Narrated, diff))
	}
	return out, nil
}

// duckIntervals returns the spans where music is lowered. Narration spans
// separated by a pause no longer than gap are merged.
func duckIntervals(placements []Placement, total, gap time.Duration) []Interval {
	spans := make([]Interval, 0, len(placements))
	for _, p := range placements {
		start := max(p.Offset, 0)
		end := min(p.Offset+p.Duration, total)
		if end > start {
			spans = append(spans, Interval{Start: start, End: end})
		}
	}
	slices.SortFunc(spans, func(a, b Interval) int { return cmp.Compare(a.Start, b.Start) })

	var merged []Interval
	for _, s := range spans {
		if n := len(merged); n > 0 && s.Start-merged[n-1].End <= gap {
			merged[n-1].End = max(merged[n-1].End, s.End)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// VolumeAt returns the music gain at offset t.
func (p Plan) VolumeAt(t time.Duration) float64 {
	for _, iv := range p.Ducked {
		if t >= iv.Start && t < iv.End {
			return p.DuckVolume
		}
	}
	return p.AmbientVolume
}

// VolumeExpression renders the music envelope for ffmpeg's volume filter,
// which must be evaluated per frame.
func (p Plan) VolumeExpression() string {
	ambient := formatFloat(p.AmbientVolume)
	if len(p.Ducked) == 0 {
		return ambient
	}
	terms := make([]string, len(p.Ducked))
	for i, iv := range p.Ducked {
		terms[i] = fmt.Sprintf("between(t,%s,%s)", formatSeconds(iv.Start), formatSeconds(iv.End))
	}
	return fmt.Sprintf("if(%s,%s,%s)", strings.Join(terms, "+"), formatFloat(p.DuckVolume), ambient)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func mixErr(operation string, err error) error {
	return services.Wrap(services.ErrAudioMix, "audio", operation, "", err)
}
