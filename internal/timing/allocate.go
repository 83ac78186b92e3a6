package timing

import (
	"fmt"
	"math"
	"time"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

const (
	// DefaultMinPageDuration is the shortest time any page stays on screen.
	DefaultMinPageDuration = 1500 * time.Millisecond
	// DefaultCharsPerSecond is the speaking rate used when no audio exists.
	DefaultCharsPerSecond = 15.0
)

// Source names where segment durations came from.
type Source string

const (
	SourceSegmentAudio Source = "segment_audio"
	SourceTotalAudio   Source = "total_audio"
	SourceEstimated    Source = "estimated"
)

// Input is everything the allocator needs for one chapter.
type Input struct {
	Pages    []recap.Page
	Segments []recap.NarrationSegment
	// AudioDuration is the measured length of a single narration track.
	AudioDuration time.Duration
	// SegmentDurations are measured per-segment audio lengths. When set,
	// they take precedence over AudioDuration.
	SegmentDurations []time.Duration
	MinPageDuration  time.Duration
	CharsPerSecond   float64
}

// Source reports which duration source Allocate will use.
func (in Input) Source() Source {
	switch {
	case len(in.SegmentDurations) > 0:
		return SourceSegmentAudio
	case in.AudioDuration > 0:
		return SourceTotalAudio
	default:
		return SourceEstimated
	}
}

// share is one segment's slice of one page's screen time.
type share struct {
	page     int
	segment  int
	duration time.Duration
}

// Allocate builds the timeline. Every content page must be referenced by at
// least one segment; recap.AttachUncoveredPages fixes up narrator output that
// skips pages. Plans carry page index, image ref and duration only.
func Allocate(in Input) (recap.Timeline, error) {
	if err := recap.ValidateSegments(in.Pages, in.Segments); err != nil {
		return recap.Timeline{}, inconsistent("validate segments", err)
	}
	floor := in.MinPageDuration
	if floor <= 0 {
		floor = DefaultMinPageDuration
	}

	durations, err := segmentDurations(in)
	if err != nil {
		return recap.Timeline{}, err
	}
	var narrated time.Duration
	for _, d := range durations {
		narrated += d
	}

	shares := splitAcrossPages(in.Segments, durations)

	// Group shares by page; shares are already in (page, segment) order.
	byPage := make(map[int][]int)
	var pageOrder []int
	for i, sh := range shares {
		if _, ok := byPage[sh.page]; !ok {
			pageOrder = append(pageOrder, sh.page)
		}
		byPage[sh.page] = append(byPage[sh.page], i)
	}
	for _, idx := range recap.ContentIndices(in.Pages) {
		if _, ok := byPage[idx]; !ok {
			return recap.Timeline{}, inconsistent("cover pages", fmt.Errorf("content page %d is not narrated", idx))
		}
	}

	var extension time.Duration
	for _, page := range pageOrder {
		members := byPage[page]
		var total time.Duration
		weights := make([]int64, len(members))
		for k, i := range members {
			total += shares[i].duration
			weights[k] = int64(shares[i].duration)
		}
		if total >= floor {
			continue
		}
		scaled := Apportion(floor, weights)
		for k, i := range members {
			shares[i].duration = scaled[k]
		}
		extension += floor - total
	}

	refs := make(map[int]string, len(in.Pages))
	for _, p := range in.Pages {
		refs[p.Index] = p.ImageRef
	}

	tl := recap.Timeline{Narrated: narrated, Extension: extension}
	windows := make([]recap.SegmentWindow, len(in.Segments))
	for i := range windows {
		windows[i].SegmentIndex = i
		windows[i].Start = -1
	}
	var cursor time.Duration
	for _, page := range pageOrder {
		plan := recap.MotionPlan{PageIndex: page, ImageRef: refs[page]}
		for _, i := range byPage[page] {
			sh := shares[i]
			w := &windows[sh.segment]
			if w.Start < 0 {
				w.Start = cursor
			}
			cursor += sh.duration
			w.End = cursor
			plan.Duration += sh.duration
		}
		tl.Plans = append(tl.Plans, plan)
	}
	tl.Windows = windows
	tl.Total = cursor

	if err := tl.Validate(); err != nil {
		return recap.Timeline{}, inconsistent("build timeline", err)
	}
	return tl, nil
}

func segmentDurations(in Input) ([]time.Duration, error) {
	n := len(in.Segments)
	switch in.Source() {
	case SourceSegmentAudio:
		if len(in.SegmentDurations) != n {
			return nil, inconsistent("segment audio", fmt.Errorf("%d segment durations for %d segments", len(in.SegmentDurations), n))
		}
		for i, d := range in.SegmentDurations {
			if d <= 0 {
				return nil, inconsistent("segment audio", fmt.Errorf("segment %d has non-positive audio duration %s", i, d))
			}
		}
		return append([]time.Duration(nil), in.SegmentDurations...), nil
	case SourceTotalAudio:
		weights := make([]int64, n)
		for i, seg := range in.Segments {
			weights[i] = int64(seg.RuneCount())
		}
		out := Apportion(in.AudioDuration, weights)
		for i, d := range out {
			if d <= 0 {
				return nil, inconsistent("split audio", fmt.Errorf("segment %d received no audio time", i))
			}
		}
		return out, nil
	default:
		cps := in.CharsPerSecond
		if cps <= 0 {
			cps = DefaultCharsPerSecond
		}
		out := make([]time.Duration, n)
		for i, seg := range in.Segments {
			if seg.EstimatedDuration > 0 {
				out[i] = seg.EstimatedDuration
				continue
			}
			seconds := float64(seg.RuneCount()) / cps
			out[i] = time.Duration(math.Round(seconds * float64(time.Second)))
			if out[i] <= 0 {
				return nil, inconsistent("estimate", fmt.Errorf("segment %d has no estimable duration", i))
			}
		}
		return out, nil
	}
}

// splitAcrossPages divides each segment evenly across its pages; the last
// page of a segment takes the integer remainder.
func splitAcrossPages(segments []recap.NarrationSegment, durations []time.Duration) []share {
	var out []share
	for i, seg := range segments {
		n := time.Duration(len(seg.SourcePages))
		each := durations[i] / n
		rem := durations[i] - each*n
		for j, page := range seg.SourcePages {
			d := each
			if j == len(seg.SourcePages)-1 {
				d += rem
			}
			out = append(out, share{page: page, segment: i, duration: d})
		}
	}
	return out
}

func inconsistent(operation string, err error) error {
	return services.Wrap(services.ErrTimingInconsistency, "timing", operation, "", err)
}
