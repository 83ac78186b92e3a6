package subtitles

import (
	"strings"
	"testing"
	"time"

	"mangarecap/internal/recap"
)

func testStyle() recap.CueStyle {
	style := recap.DefaultCueStyle()
	style.MaxCharsPerLine = 20
	style.MaxLines = 2
	return style
}

func timelineFor(windows ...time.Duration) recap.Timeline {
	tl := recap.Timeline{}
	var cursor time.Duration
	for i, d := range windows {
		tl.Windows = append(tl.Windows, recap.SegmentWindow{SegmentIndex: i, Start: cursor, End: cursor + d})
		tl.Plans = append(tl.Plans, recap.MotionPlan{PageIndex: i, Duration: d})
		cursor += d
	}
	tl.Total = cursor
	return tl
}

func TestRenderCoversEachWindowExactly(t *testing.T) {
	segments := []recap.NarrationSegment{
		{Index: 0, Text: "A storm rolls over the harbor as Kai readies the old boat for one last dive.", SourcePages: []int{0}},
		{Index: 1, Text: "He jumps.", SourcePages: []int{1}},
	}
	tl := timelineFor(7*time.Second+333, 2*time.Second)
	cues, err := Render(segments, tl, testStyle())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if err := CheckTrack(cues); err != nil {
		t.Fatalf("CheckTrack: %v", err)
	}

	for i, w := range tl.Windows {
		var mine []recap.SubtitleCue
		for _, c := range cues {
			if c.SegmentIndex == i {
				mine = append(mine, c)
			}
		}
		if len(mine) == 0 {
			t.Fatalf("segment %d has no cues", i)
		}
		if mine[0].Start != w.Start || mine[len(mine)-1].End != w.End {
			t.Fatalf("segment %d cues span [%s,%s], window [%s,%s]", i, mine[0].Start, mine[len(mine)-1].End, w.Start, w.End)
		}
		for k := 1; k < len(mine); k++ {
			if mine[k].Start != mine[k-1].End {
				t.Fatalf("segment %d cue %d leaves a gap", i, k)
			}
		}
	}
	first := cues[0]
	if len(first.Lines) > 2 || first.Style != "Narration" {
		t.Fatalf("first cue = %+v", first)
	}
	for _, c := range cues {
		for _, l := range c.Lines {
			if len([]rune(l)) > 20 {
				t.Fatalf("line %q exceeds 20 cells", l)
			}
		}
	}
	if cues[len(cues)-1].PageIndexHint != 1 {
		t.Fatalf("last cue page hint = %d", cues[len(cues)-1].PageIndexHint)
	}
}

func TestRenderSplitsProportionallyToText(t *testing.T) {
	style := testStyle()
	style.MaxLines = 1
	segments := []recap.NarrationSegment{{Index: 0, Text: "aaaaaaaaaaaaaaaaaaaa bbbbbbbbbb", SourcePages: []int{0}}}
	cues, err := Render(segments, timelineFor(3*time.Second), style)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(cues) != 2 || cues[0].Duration() != 2*time.Second || cues[1].Duration() != time.Second {
		t.Fatalf("cues = %+v", cues)
	}
}

func TestRenderRejectsMismatchedWindows(t *testing.T) {
	segments := []recap.NarrationSegment{{Index: 0, Text: "x", SourcePages: []int{0}}}
	if _, err := Render(segments, timelineFor(time.Second, time.Second), testStyle()); err == nil {
		t.Fatal("expected error")
	}
}

func TestWrapHandlesWideAndLongWords(t *testing.T) {
	lines := Wrap("supercalifragilistic is long", 8)
	for _, l := range lines {
		if len(l) > 8 {
			t.Fatalf("line %q wider than 8", l)
		}
	}
	if strings.Join(lines, "") != "supercalifragilistic islong" {
		t.Fatalf("lines lost text: %q", lines)
	}

	cjk := Wrap("漢字漢字漢字", 4)
	if len(cjk) != 3 || cjk[0] != "漢字" {
		t.Fatalf("cjk lines = %q", cjk)
	}
}

func TestNormalizeComposesAndCollapses(t *testing.T) {
	got := Normalize("  Café\n\tnoir ")
	if got != "Café noir" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestClipTrimsToTotal(t *testing.T) {
	cues := []recap.SubtitleCue{
		{Start: 0, End: 2 * time.Second},
		{Start: 2 * time.Second, End: 5 * time.Second},
		{Start: 5 * time.Second, End: 6 * time.Second},
	}
	got := Clip(cues, 4*time.Second)
	if len(got) != 2 || got[1].End != 4*time.Second {
		t.Fatalf("Clip = %+v", got)
	}
}
