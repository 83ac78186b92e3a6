package motion

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"mangarecap/internal/recap"
)

// FrameCounts converts plan durations to whole frame counts. Rounding is done
// on the running total, so the counts sum to round(total*fps) and no page
// drifts by more than one frame.
func FrameCounts(plans []recap.MotionPlan, fps int) []int {
	out := make([]int, len(plans))
	var elapsed time.Duration
	prev := 0
	for i, p := range plans {
		elapsed += p.Duration
		end := int(math.Round(elapsed.Seconds() * float64(fps)))
		n := end - prev
		if n < 1 {
			n = 1
		}
		out[i] = n
		prev += n
	}
	return out
}

// ContentSize returns the even pixel size the page is scaled to before
// padding, and the offset of its top-left corner on the canvas.
func ContentSize(plan recap.MotionPlan) (w, h, x, y int) {
	w = evenFloor(plan.Content.W)
	h = evenFloor(plan.Content.H)
	x = int(math.Round((plan.Canvas.W - float64(w)) / 2))
	y = int(math.Round((plan.Canvas.H - float64(h)) / 2))
	return w, h, x, y
}

func evenFloor(v float64) int {
	n := int(math.Floor(v))
	if n%2 != 0 {
		n--
	}
	return max(n, 2)
}

// FilterZoompan renders the zoompan filter that moves the viewport linearly
// from StartRect to EndRect over frames output frames. The input is expected
// to be the padded canvas at Canvas size.
func FilterZoompan(plan recap.MotionPlan, fps, frames int) string {
	if frames < 1 {
		frames = 1
	}
	span := max(frames-1, 1)
	t := fmt.Sprintf("(on/%d)", span)
	s, e := plan.StartRect, plan.EndRect
	lerp := func(a, b float64) string {
		return fmt.Sprintf("(%s+(%s)*%s)", num(a), num(b-a), t)
	}
	zoom := fmt.Sprintf("%s/%s", num(plan.Canvas.W), lerp(s.W, e.W))
	return fmt.Sprintf("zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zoom, lerp(s.X, e.X), lerp(s.Y, e.Y), frames,
		int(plan.Canvas.W), int(plan.Canvas.H), fps)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
