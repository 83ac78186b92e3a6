package encoder

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mangarecap/internal/motion"
)

// BuildArgs constructs the ffmpeg argument list (without the binary) that
// renders job to target. subtitlePath may be empty when there are no cues.
func BuildArgs(job Job, subtitlePath, target string) []string {
	plans := job.Timeline.Plans
	frames := motion.FrameCounts(plans, job.FPS)
	args := make([]string, 0, 48+2*len(plans))

	// --- Preamble ---
	args = append(args, "-hide_banner", "-nostdin", "-y", "-loglevel", "error", "-progress", "pipe:1", "-nostats")

	// --- Inputs: one still per page, then narration clips, then music ---
	for _, p := range plans {
		args = append(args, "-i", p.ImageRef)
	}
	narrationBase := len(plans)
	for _, n := range job.Mix.Narration {
		args = append(args, "-i", n.Path)
	}
	musicInput := narrationBase + len(job.Mix.Narration)
	if job.Mix.HasMusic() {
		args = append(args, "-stream_loop", "-1", "-i", job.Mix.Music)
	}

	graph, hasAudio := filterGraph(job, frames, subtitlePath, narrationBase, musicInput)
	args = append(args, "-filter_complex", graph, "-map", "[vout]")
	if hasAudio {
		args = append(args, "-map", "[aout]")
	}

	// --- Video codec ---
	args = append(args,
		"-c:v", job.Codec,
		"-preset", job.Preset,
		"-crf", strconv.Itoa(job.CRF),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(job.FPS),
	)

	// --- Audio codec ---
	if hasAudio {
		args = append(args, "-c:a", "aac", "-b:a", job.AudioBitrate)
	} else {
		args = append(args, "-an")
	}

	args = append(args, "-t", seconds(job.Timeline.Total), "-movflags", "+faststart", target)
	return args
}

func filterGraph(job Job, frames []int, subtitlePath string, narrationBase, musicInput int) (string, bool) {
	var chains []string

	// --- Per-page motion ---
	var concatInputs strings.Builder
	for i, p := range job.Timeline.Plans {
		w, h, x, y := motion.ContentSize(p)
		chains = append(chains, fmt.Sprintf("[%d:v]scale=%d:%d,setsar=1,pad=%d:%d:%d:%d:color=%s,%s,setsar=1,format=yuv420p[v%d]",
			i, w, h, job.Frame.Width, job.Frame.Height, x, y, job.PadColor,
			motion.FilterZoompan(p, job.FPS, frames[i]), i))
		fmt.Fprintf(&concatInputs, "[v%d]", i)
	}
	video := "vcat"
	chains = append(chains, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[%s]", concatInputs.String(), len(job.Timeline.Plans), video))

	if grade := GradeFilter(job.Grade); grade != "" {
		chains = append(chains, fmt.Sprintf("[%s]%s[vgrade]", video, grade))
		video = "vgrade"
	}
	if subtitlePath != "" {
		chains = append(chains, fmt.Sprintf("[%s]ass=filename=%s[vout]", video, escapeFilterValue(subtitlePath)))
	} else {
		chains = append(chains, fmt.Sprintf("[%s]null[vout]", video))
	}

	// --- Audio ---
	mix := job.Mix
	var narration string
	switch len(mix.Narration) {
	case 0:
	case 1:
		chains = append(chains, fmt.Sprintf("[%d:a]adelay=%d:all=1[narr]", narrationBase, mix.Narration[0].Offset.Milliseconds()))
		narration = "narr"
	default:
		var inputs strings.Builder
		for j, n := range mix.Narration {
			chains = append(chains, fmt.Sprintf("[%d:a]adelay=%d:all=1[n%d]", narrationBase+j, n.Offset.Milliseconds(), j))
			fmt.Fprintf(&inputs, "[n%d]", j)
		}
		chains = append(chains, fmt.Sprintf("%samix=inputs=%d:duration=longest:dropout_transition=0:normalize=0[narr]", inputs.String(), len(mix.Narration)))
		narration = "narr"
	}

	switch {
	case narration != "" && mix.HasMusic():
		chains = append(chains,
			fmt.Sprintf("[%d:a]volume='%s':eval=frame[music]", musicInput, mix.VolumeExpression()),
			"[narr][music]amix=inputs=2:duration=longest:dropout_transition=0:normalize=0,apad[aout]",
		)
	case narration != "":
		chains = append(chains, "[narr]apad[aout]")
	case mix.HasMusic():
		chains = append(chains, fmt.Sprintf("[%d:a]volume='%s':eval=frame[aout]", musicInput, mix.VolumeExpression()))
	default:
		return strings.Join(chains, ";"), false
	}
	return strings.Join(chains, ";"), true
}

// escapeFilterValue escapes a filter option value for use inside a
// filtergraph.
func escapeFilterValue(value string) string {
	r := strings.NewReplacer(`\`, `\\\\`, `'`, `\\\'`, `:`, `\\:`, `,`, `\,`, `;`, `\;`, `[`, `\[`, `]`, `\]`)
	return r.Replace(value)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
