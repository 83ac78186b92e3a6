package recap

import (
	"fmt"
	"math"
	"time"
)

// Frame is the output video size in pixels.
type Frame struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AspectRatio returns width/height, or 0 for an empty frame.
func (f Frame) AspectRatio() float64 {
	if f.Height <= 0 {
		return 0
	}
	return float64(f.Width) / float64(f.Height)
}

// Validate requires positive dimensions.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame: invalid dimensions %dx%d", f.Width, f.Height)
	}
	return nil
}

// Rect is an axis-aligned rectangle in canvas pixel space.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// rectEpsilon absorbs float rounding when comparing rect edges.
const rectEpsilon = 1e-6

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// AspectRatio returns W/H, or 0 for a degenerate rect.
func (r Rect) AspectRatio() float64 {
	if r.H <= 0 {
		return 0
	}
	return r.W / r.H
}

// Contains reports whether other lies entirely inside r.
func (r Rect) Contains(other Rect) bool {
	return other.X >= r.X-rectEpsilon &&
		other.Y >= r.Y-rectEpsilon &&
		other.Right() <= r.Right()+rectEpsilon &&
		other.Bottom() <= r.Bottom()+rectEpsilon
}

// Lerp interpolates between r and to; t is clamped to [0, 1].
func (r Rect) Lerp(to Rect, t float64) Rect {
	t = math.Max(0, math.Min(1, t))
	return Rect{
		X: r.X + (to.X-r.X)*t,
		Y: r.Y + (to.Y-r.Y)*t,
		W: r.W + (to.W-r.W)*t,
		H: r.H + (to.H-r.H)*t,
	}
}

// Padding is the size of the bars around fitted content.
type Padding struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// IsZero reports whether no bars are needed.
func (p Padding) IsZero() bool {
	return p.Left < rectEpsilon && p.Right < rectEpsilon && p.Top < rectEpsilon && p.Bottom < rectEpsilon
}

// Pillarbox reports left/right bars.
func (p Padding) Pillarbox() bool { return p.Left+p.Right >= rectEpsilon }

// Letterbox reports top/bottom bars.
func (p Padding) Letterbox() bool { return p.Top+p.Bottom >= rectEpsilon }

// MotionPlan is the Ken Burns path for one displayed page. Rects are in the
// padded canvas space; source pixels are never cropped.
type MotionPlan struct {
	PageIndex int           `json:"page_index"`
	ImageRef  string        `json:"image_ref,omitempty"`
	Canvas    Rect          `json:"canvas"`
	Content   Rect          `json:"content"`
	StartRect Rect          `json:"start_rect"`
	EndRect   Rect          `json:"end_rect"`
	Duration  time.Duration `json:"duration"`
	Zoom      float64       `json:"zoom"`
	Padding   Padding       `json:"padding"`
}

// CueStyle is the visual contract for subtitle rasterization.
type CueStyle struct {
	Name              string  `json:"name"`
	Font              string  `json:"font"`
	FontSize          int     `json:"font_size"`
	BoxBackground     bool    `json:"box_background"`
	BackgroundOpacity float64 `json:"background_opacity"`
	// Alignment uses numpad layout; 2 is bottom center.
	Alignment       int `json:"alignment"`
	MarginV         int `json:"margin_v"`
	MaxCharsPerLine int `json:"max_chars_per_line"`
	MaxLines        int `json:"max_lines"`
}

// DefaultCueStyle returns the bottom-center boxed narration style.
func DefaultCueStyle() CueStyle {
	return CueStyle{
		Name:              "Narration",
		Font:              "Arial",
		FontSize:          44,
		BoxBackground:     true,
		BackgroundOpacity: 0.75,
		Alignment:         2,
		MarginV:           150,
		MaxCharsPerLine:   32,
		MaxLines:          2,
	}
}

// SubtitleCue is one timed caption.
type SubtitleCue struct {
	Start         time.Duration `json:"start"`
	End           time.Duration `json:"end"`
	Text          string        `json:"text"`
	Lines         []string      `json:"lines"`
	PageIndexHint int           `json:"page_index_hint"`
	SegmentIndex  int           `json:"segment_index"`
	Style         string        `json:"style"`
}

// Duration returns End-Start.
func (c SubtitleCue) Duration() time.Duration { return c.End - c.Start }

// SegmentWindow is the span of the timeline a narration segment occupies.
type SegmentWindow struct {
	SegmentIndex int           `json:"segment_index"`
	Start        time.Duration `json:"start"`
	End          time.Duration `json:"end"`
}

// Duration returns End-Start.
func (w SegmentWindow) Duration() time.Duration { return w.End - w.Start }

// Timeline is the ordered concatenation of motion plans. All other timed
// artifacts derive from it.
type Timeline struct {
	Plans   []MotionPlan    `json:"plans"`
	Windows []SegmentWindow `json:"windows"`
	// Total is the exact sum of plan durations.
	Total time.Duration `json:"total"`
	// Narrated is the narration time distributed across segments.
	Narrated time.Duration `json:"narrated"`
	// Extension is the time added to satisfy the per-page floor.
	Extension time.Duration `json:"extension"`
}

// Sum returns the sum of plan durations.
func (t Timeline) Sum() time.Duration {
	var total time.Duration
	for _, p := range t.Plans {
		total += p.Duration
	}
	return total
}

// PlanStart returns the offset at which plan i starts.
func (t Timeline) PlanStart(i int) time.Duration {
	var start time.Duration
	for j := 0; j < i && j < len(t.Plans); j++ {
		start += t.Plans[j].Duration
	}
	return start
}

// PageAt returns the index of the page on screen at offset.
func (t Timeline) PageAt(offset time.Duration) int {
	var start time.Duration
	for _, p := range t.Plans {
		if offset < start+p.Duration {
			return p.PageIndex
		}
		start += p.Duration
	}
	if len(t.Plans) == 0 {
		return -1
	}
	return t.Plans[len(t.Plans)-1].PageIndex
}

// Validate checks the timeline's structural invariants.
func (t Timeline) Validate() error {
	if len(t.Plans) == 0 {
		return fmt.Errorf("timeline: no motion plans")
	}
	for i, p := range t.Plans {
		if p.Duration <= 0 {
			return fmt.Errorf("timeline: plan %d (page %d) has non-positive duration", i, p.PageIndex)
		}
		if i > 0 && p.PageIndex <= t.Plans[i-1].PageIndex {
			return fmt.Errorf("timeline: plan %d breaks reading order", i)
		}
	}
	if sum := t.Sum(); sum != t.Total {
		return fmt.Errorf("timeline: total %s does not equal plan sum %s", t.Total, sum)
	}
	var cursor time.Duration
	for i, w := range t.Windows {
		if w.Start != cursor {
			return fmt.Errorf("timeline: window %d starts at %s, expected %s", i, w.Start, cursor)
		}
		if w.End <= w.Start {
			return fmt.Errorf("timeline: window %d is empty", i)
		}
		cursor = w.End
	}
	if len(t.Windows) > 0 && cursor != t.Total {
		return fmt.Errorf("timeline: windows end at %s, total is %s", cursor, t.Total)
	}
	return nil
}
