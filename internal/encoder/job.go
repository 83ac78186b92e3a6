package encoder

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"mangarecap/internal/audio"
	"mangarecap/internal/recap"
)

// Job is everything needed to render one chapter.
type Job struct {
	Timeline     recap.Timeline
	Cues         []recap.SubtitleCue
	Mix          audio.Plan
	Frame        recap.Frame
	FPS          int
	Codec        string
	Preset       string
	CRF          int
	PadColor     string
	AudioBitrate string
	// Grade is a mood name from the grade table; "" disables grading.
	Grade        string
	Style        recap.CueStyle
	OutputPath   string
	WorkDir      string
	MinFreeBytes uint64
}

// Output describes a finished render.
type Output struct {
	Path         string
	SubtitlePath string
	Frames       int
	Duration     time.Duration
	Elapsed      time.Duration
}

// Validate checks the fields BuildArgs relies on.
func (j Job) Validate() error {
	if len(j.Timeline.Plans) == 0 {
		return errors.New("timeline has no pages")
	}
	if err := j.Frame.Validate(); err != nil {
		return err
	}
	if j.FPS <= 0 {
		return fmt.Errorf("invalid fps %d", j.FPS)
	}
	if strings.TrimSpace(j.OutputPath) == "" {
		return errors.New("output path required")
	}
	for _, p := range j.Timeline.Plans {
		if strings.TrimSpace(p.ImageRef) == "" {
			return fmt.Errorf("page %d has no image", p.PageIndex)
		}
		if int(p.Canvas.W) != j.Frame.Width || int(p.Canvas.H) != j.Frame.Height {
			return fmt.Errorf("page %d canvas %.0fx%.0f does not match frame %dx%d",
				p.PageIndex, p.Canvas.W, p.Canvas.H, j.Frame.Width, j.Frame.Height)
		}
	}
	return nil
}

// PartialPath returns the temporary path ffmpeg writes to before the final
// rename: <name>.partial<ext> next to the output.
func PartialPath(output string) string {
	ext := filepath.Ext(output)
	return strings.TrimSuffix(output, ext) + ".partial" + ext
}
