package motion

import (
	"fmt"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// Dimensions is the pixel size of a source image.
type Dimensions struct {
	Width  int
	Height int
}

// Settings holds the chapter-wide compositor parameters.
type Settings struct {
	Frame   recap.Frame
	Seed    uint64
	ZoomMin float64
	ZoomMax float64
}

// ComposeTimeline fills in geometry for every plan in the timeline. dims is
// keyed by page index. Durations and order are left untouched.
func ComposeTimeline(tl recap.Timeline, dims map[int]Dimensions, settings Settings) (recap.Timeline, error) {
	out := tl
	out.Plans = make([]recap.MotionPlan, len(tl.Plans))
	for i, p := range tl.Plans {
		d, ok := dims[p.PageIndex]
		if !ok {
			return recap.Timeline{}, services.Wrap(services.ErrValidation, "motion", "compose timeline",
				"", fmt.Errorf("no image dimensions for page %d", p.PageIndex))
		}
		plan, err := Compose(Input{
			PageIndex:   p.PageIndex,
			ImageRef:    p.ImageRef,
			ImageWidth:  d.Width,
			ImageHeight: d.Height,
			Frame:       settings.Frame,
			Duration:    p.Duration,
			Seed:        settings.Seed,
			ZoomMin:     settings.ZoomMin,
			ZoomMax:     settings.ZoomMax,
		})
		if err != nil {
			return recap.Timeline{}, err
		}
		out.Plans[i] = plan
	}
	return out, nil
}
