package encoder

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"mangarecap/internal/audio"
	"mangarecap/internal/logging"
	"mangarecap/internal/motion"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

func testJob(t *testing.T) Job {
	t.Helper()
	frame := recap.Frame{Width: 1920, Height: 1080}
	var plans []recap.MotionPlan
	for i, d := range []time.Duration{2 * time.Second, 3 * time.Second} {
		plan, err := motion.Compose(motion.Input{
			PageIndex:   i,
			ImageRef:    filepath.Join("pages", "p"+string(rune('0'+i))+".png"),
			ImageWidth:  900,
			ImageHeight: 1200,
			Frame:       frame,
			Duration:    d,
			Seed:        7,
			ZoomMin:     1.08,
			ZoomMax:     1.12,
		})
		if err != nil {
			t.Fatalf("Compose: %v", err)
		}
		plans = append(plans, plan)
	}
	tl := recap.Timeline{
		Plans:    plans,
		Windows:  []recap.SegmentWindow{{SegmentIndex: 0, Start: 0, End: 5 * time.Second}},
		Total:    5 * time.Second,
		Narrated: 5 * time.Second,
	}
	return Job{
		Timeline:     tl,
		Cues:         []recap.SubtitleCue{{Start: 0, End: 5 * time.Second, Text: "Hello.", Lines: []string{"Hello."}}},
		Frame:        frame,
		FPS:          30,
		Codec:        "libx264",
		Preset:       "medium",
		CRF:          23,
		PadColor:     "black",
		AudioBitrate: "192k",
		Style:        recap.DefaultCueStyle(),
	}
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestBuildArgsVideoOnly(t *testing.T) {
	job := testJob(t)
	args := BuildArgs(job, "/work/captions.ass", "/out/ch.partial.mp4")

	if args[len(args)-1] != "/out/ch.partial.mp4" {
		t.Fatalf("target = %q", args[len(args)-1])
	}
	if argAfter(args, "-t") != "5.000" || argAfter(args, "-crf") != "23" || argAfter(args, "-r") != "30" {
		t.Fatalf("unexpected codec args: %v", args)
	}
	if !slices.Contains(args, "-an") || slices.Contains(args, "[aout]") {
		t.Fatal("silent job should disable audio")
	}
	graph := argAfter(args, "-filter_complex")
	for _, want := range []string{
		"[0:v]scale=", "[1:v]scale=", "pad=1920:1080:", "color=black",
		"zoompan=z=", ":d=60:", ":d=90:",
		"[v0][v1]concat=n=2:v=1:a=0[vcat]",
		"[vcat]ass=filename=/work/captions.ass[vout]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q:\n%s", want, graph)
		}
	}
	if strings.Contains(graph, "eq=") {
		t.Error("no grade expected")
	}
}

func TestBuildArgsNarrationAndMusic(t *testing.T) {
	job := testJob(t)
	job.Grade = "dark"
	job.Cues = nil
	job.Mix = audio.Plan{
		Narration: []audio.Placement{
			{Path: "seg0.mp3", Offset: 0, Duration: 2 * time.Second},
			{Path: "seg1.mp3", Offset: 2500 * time.Millisecond, Duration: 2 * time.Second},
		},
		Music:         "music.mp3",
		Ducked:        []audio.Interval{{Start: 0, End: 4500 * time.Millisecond}},
		AmbientVolume: 0.3,
		DuckVolume:    0.08,
		Total:         5 * time.Second,
	}
	args := BuildArgs(job, "", "out.mp4")

	inputs := []string{}
	for i, a := range args {
		if a == "-i" {
			inputs = append(inputs, args[i+1])
		}
	}
	if len(inputs) != 5 || inputs[2] != "seg0.mp3" || inputs[4] != "music.mp3" {
		t.Fatalf("inputs = %v", inputs)
	}
	if argAfter(args, "-stream_loop") != "-1" {
		t.Fatal("music should loop")
	}
	graph := argAfter(args, "-filter_complex")
	for _, want := range []string{
		"[vcat]eq=contrast=1.2:brightness=-0.1:saturation=0.6[vgrade]",
		"[vgrade]null[vout]",
		"[2:a]adelay=0:all=1[n0]",
		"[3:a]adelay=2500:all=1[n1]",
		"[n0][n1]amix=inputs=2:",
		"[4:a]volume='if(between(t,0.000,4.500),0.08,0.3)':eval=frame[music]",
		"[narr][music]amix=inputs=2:",
		"apad[aout]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("graph missing %q:\n%s", want, graph)
		}
	}
	if argAfter(args, "-c:a") != "aac" || argAfter(args, "-b:a") != "192k" {
		t.Fatalf("audio codec args: %v", args)
	}
}

func TestEncodeRenamesPartialOnSuccess(t *testing.T) {
	job := testJob(t)
	dir := t.TempDir()
	job.OutputPath = filepath.Join(dir, "out", "chapter.mp4")
	job.WorkDir = filepath.Join(dir, "work")

	enc := New("", logging.NewNop())
	var gotArgs []string
	enc.run = func(_ context.Context, binary string, args []string, progress io.Writer) (string, error) {
		if binary != "ffmpeg" {
			t.Errorf("binary = %q", binary)
		}
		gotArgs = args
		_, _ = io.WriteString(progress, "frame=10\nout_time_us=2500000\nprogress=continue\n")
		return "", os.WriteFile(args[len(args)-1], []byte("video"), 0o644)
	}
	out, err := enc.Encode(context.Background(), job)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if gotArgs[len(gotArgs)-1] != PartialPath(job.OutputPath) {
		t.Fatalf("ffmpeg target = %q", gotArgs[len(gotArgs)-1])
	}
	if data, err := os.ReadFile(job.OutputPath); err != nil || string(data) != "video" {
		t.Fatalf("output = %q, %v", data, err)
	}
	if _, err := os.Stat(PartialPath(job.OutputPath)); !os.IsNotExist(err) {
		t.Fatal("partial should be renamed away")
	}
	if out.Frames != 150 || out.SubtitlePath != filepath.Join(job.WorkDir, subtitleFileName) {
		t.Fatalf("output = %+v", out)
	}
	if data, err := os.ReadFile(out.SubtitlePath); err != nil || !strings.Contains(string(data), "Dialogue:") {
		t.Fatalf("captions = %q, %v", data, err)
	}
}

func TestEncodeFailureRemovesPartial(t *testing.T) {
	job := testJob(t)
	job.Cues = nil
	job.OutputPath = filepath.Join(t.TempDir(), "chapter.mp4")

	enc := New("ffmpeg", logging.NewNop())
	enc.run = func(_ context.Context, _ string, args []string, _ io.Writer) (string, error) {
		_ = os.WriteFile(args[len(args)-1], []byte("half"), 0o644)
		return "frame=3\n[aost#0:0] No space left on device\n", errors.New("exit status 1")
	}
	_, err := enc.Encode(context.Background(), job)
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
	if !strings.Contains(err.Error(), "output disk is full") || !strings.Contains(err.Error(), "No space left") {
		t.Fatalf("error lacks classification or stderr tail: %v", err)
	}
	for _, p := range []string{job.OutputPath, PartialPath(job.OutputPath)} {
		if _, statErr := os.Stat(p); !os.IsNotExist(statErr) {
			t.Fatalf("%s should not exist", p)
		}
	}
}

func TestEncodeRejectsInsufficientSpace(t *testing.T) {
	job := testJob(t)
	job.OutputPath = filepath.Join(t.TempDir(), "chapter.mp4")
	job.MinFreeBytes = ^uint64(0)
	enc := New("ffmpeg", logging.NewNop())
	enc.run = func(context.Context, string, []string, io.Writer) (string, error) {
		t.Fatal("ffmpeg should not run")
		return "", nil
	}
	if _, err := enc.Encode(context.Background(), job); !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestEncodeValidatesJob(t *testing.T) {
	job := testJob(t)
	job.OutputPath = filepath.Join(t.TempDir(), "x.mp4")
	job.Frame = recap.Frame{Width: 1280, Height: 720}
	if _, err := New("", logging.NewNop()).Encode(context.Background(), job); !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected ErrEncode for canvas mismatch, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"Unknown encoder 'libx265'":               "video codec is not available in this ffmpeg build",
		"No such filter: 'ass'":                   "ffmpeg is missing the ass filter",
		"pages/p1.png: No such file or directory": "an input file is missing or unreadable",
		"something odd":                           "ffmpeg failed",
	}
	for stderr, want := range tests {
		if got := Classify(stderr); got != want {
			t.Errorf("Classify(%q) = %q want %q", stderr, got, want)
		}
	}
}

func TestParseProgress(t *testing.T) {
	stream := "frame=1\nout_time_us=1000000\nprogress=continue\nout_time_us=N/A\nout_time_ms=4200000\nprogress=end\n"
	if got := ParseProgress(strings.NewReader(stream)); got != 4200*time.Millisecond {
		t.Fatalf("ParseProgress = %s", got)
	}
}

func TestPartialPath(t *testing.T) {
	if got := PartialPath("/a/b/ch 1.mp4"); got != "/a/b/ch 1.partial.mp4" {
		t.Fatalf("PartialPath = %q", got)
	}
}

func TestGradeFilter(t *testing.T) {
	if GradeFilter("Sad") == "" || GradeFilter("calm") != "" || GradeFilter("") != "" {
		t.Fatal("unexpected grade table lookup")
	}
}
