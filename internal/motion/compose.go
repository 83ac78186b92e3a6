package motion

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

const (
	DefaultZoomMin = 1.08
	DefaultZoomMax = 1.12
)

// Input describes one page to plan.
type Input struct {
	PageIndex   int
	ImageRef    string
	ImageWidth  int
	ImageHeight int
	Frame       recap.Frame
	Duration    time.Duration
	Seed        uint64
	ZoomMin     float64
	ZoomMax     float64
}

// Compose returns the motion plan for one page.
func Compose(in Input) (recap.MotionPlan, error) {
	if err := in.Frame.Validate(); err != nil {
		return recap.MotionPlan{}, invalid(in.PageIndex, err)
	}
	if in.ImageWidth <= 0 || in.ImageHeight <= 0 {
		return recap.MotionPlan{}, invalid(in.PageIndex, fmt.Errorf("invalid image dimensions %dx%d", in.ImageWidth, in.ImageHeight))
	}
	if in.Duration <= 0 {
		return recap.MotionPlan{}, invalid(in.PageIndex, fmt.Errorf("non-positive duration %s", in.Duration))
	}
	zmin, zmax := in.ZoomMin, in.ZoomMax
	if zmin <= 0 {
		zmin = DefaultZoomMin
	}
	if zmax <= 0 {
		zmax = DefaultZoomMax
	}
	if zmin < 1 || zmax < zmin {
		return recap.MotionPlan{}, invalid(in.PageIndex, fmt.Errorf("invalid zoom range [%g, %g]", zmin, zmax))
	}

	rng := pageRand(in.Seed, in.PageIndex)
	zoom := zmin + rng.Float64()*(zmax-zmin)
	panX, panY := rng.Float64(), rng.Float64()

	fw, fh := float64(in.Frame.Width), float64(in.Frame.Height)
	canvas := recap.Rect{W: fw, H: fh}

	scale := min(fw/float64(in.ImageWidth), fh/float64(in.ImageHeight))
	fittedW := float64(in.ImageWidth) * scale
	fittedH := float64(in.ImageHeight) * scale
	padX := (fw - fittedW) / 2
	padY := (fh - fittedH) / 2

	contentW, contentH := fittedW/zoom, fittedH/zoom
	content := recap.Rect{X: (fw - contentW) / 2, Y: (fh - contentH) / 2, W: contentW, H: contentH}

	endW, endH := fw/zoom, fh/zoom
	end := recap.Rect{
		X: panAxis(content.X, content.W, endW, fw, panX),
		Y: panAxis(content.Y, content.H, endH, fh, panY),
		W: endW,
		H: endH,
	}

	plan := recap.MotionPlan{
		PageIndex: in.PageIndex,
		ImageRef:  in.ImageRef,
		Canvas:    canvas,
		Content:   content,
		StartRect: canvas,
		EndRect:   end,
		Duration:  in.Duration,
		Zoom:      zoom,
		Padding:   recap.Padding{Left: padX, Right: padX, Top: padY, Bottom: padY},
	}
	if err := CheckPlan(plan); err != nil {
		return recap.MotionPlan{}, invalid(in.PageIndex, err)
	}
	return plan, nil
}

// panAxis positions a viewport of size view along one axis so it stays inside
// [0, canvas] and still covers [start, start+size]. frac picks a point in the
// allowed range.
func panAxis(start, size, view, canvas, frac float64) float64 {
	lo := max(0, start+size-view)
	hi := min(start, canvas-view)
	if hi < lo {
		hi = lo
	}
	return lo + frac*(hi-lo)
}

// CheckPlan verifies that both viewports lie inside the canvas, keep the
// frame's aspect ratio, and contain the whole page.
func CheckPlan(plan recap.MotionPlan) error {
	want := plan.Canvas.AspectRatio()
	for name, r := range map[string]recap.Rect{"start": plan.StartRect, "end": plan.EndRect} {
		if !plan.Canvas.Contains(r) {
			return fmt.Errorf("%s rect %+v leaves canvas", name, r)
		}
		if !r.Contains(plan.Content) {
			return fmt.Errorf("%s rect %+v clips page content %+v", name, r, plan.Content)
		}
		if diff := r.AspectRatio() - want; diff > 1e-9 || diff < -1e-9 {
			return fmt.Errorf("%s rect aspect %.6f differs from frame %.6f", name, r.AspectRatio(), want)
		}
	}
	return nil
}

// pageRand derives a per-page generator from the chapter seed.
func pageRand(seed uint64, pageIndex int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(pageIndex)+0x9e3779b97f4a7c15))
}

// ChapterSeed hashes stable chapter identity into a motion seed.
func ChapterSeed(mangaID, chapterID string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(mangaID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(chapterID))
	return h.Sum64()
}

func invalid(page int, err error) error {
	return services.Wrap(services.ErrValidation, "motion", fmt.Sprintf("compose page %d", page), "", err)
}
