package subtitles

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"mangarecap/internal/recap"
)

// WriteASS writes an Advanced SubStation script for burn-in. PlayRes matches
// the output frame so font size and margins are in output pixels.
func WriteASS(w io.Writer, cues []recap.SubtitleCue, frame recap.Frame, style recap.CueStyle) error {
	bw := bufio.NewWriter(w)
	borderStyle := 1
	if style.BoxBackground {
		borderStyle = 3
	}
	fmt.Fprintf(bw, "[Script Info]\n")
	fmt.Fprintf(bw, "Title: Chapter Recap\n")
	fmt.Fprintf(bw, "ScriptType: v4.00+\n")
	fmt.Fprintf(bw, "WrapStyle: 2\n")
	fmt.Fprintf(bw, "ScaledBorderAndShadow: yes\n")
	fmt.Fprintf(bw, "PlayResX: %d\n", frame.Width)
	fmt.Fprintf(bw, "PlayResY: %d\n\n", frame.Height)

	fmt.Fprintf(bw, "[V4+ Styles]\n")
	fmt.Fprintf(bw, "Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(bw, "Style: %s,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,%s,-1,0,0,0,100,100,0,0,%d,2,0,%d,80,80,%d,1\n\n",
		style.Name, style.Font, style.FontSize, BackColour(style.BackgroundOpacity), borderStyle, style.Alignment, style.MarginV)

	fmt.Fprintf(bw, "[Events]\n")
	fmt.Fprintf(bw, "Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues {
		name := c.Style
		if name == "" {
			name = style.Name
		}
		lines := c.Lines
		if len(lines) == 0 {
			lines = []string{c.Text}
		}
		escaped := make([]string, len(lines))
		for i, l := range lines {
			escaped[i] = escapeASS(l)
		}
		fmt.Fprintf(bw, "Dialogue: 0,%s,%s,%s,,0,0,0,,%s\n",
			FormatASSTime(c.Start), FormatASSTime(c.End), name, strings.Join(escaped, `\N`))
	}
	return bw.Flush()
}

// BackColour renders a black box colour with ASS alpha (00 opaque, FF clear).
func BackColour(opacity float64) string {
	opacity = math.Max(0, math.Min(1, opacity))
	alpha := int(math.Round((1 - opacity) * 255))
	return fmt.Sprintf("&H%02X000000", alpha)
}

// FormatASSTime renders H:MM:SS.cc, truncating to centiseconds so adjacent
// cues share the same boundary.
func FormatASSTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := int64(d / (10 * time.Millisecond))
	h := cs / 360000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

var assEscaper = strings.NewReplacer(`\`, `\\`, "{", `\{`, "}", `\}`, "\n", `\N`)

func escapeASS(text string) string {
	return assEscaper.Replace(text)
}
