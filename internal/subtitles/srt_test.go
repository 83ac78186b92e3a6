package subtitles

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"mangarecap/internal/recap"
)

func TestWriteSRTParsesBack(t *testing.T) {
	cues := []recap.SubtitleCue{
		{Start: 0, End: 1500 * time.Millisecond, Lines: []string{"first line", "second"}},
		{Start: 1500 * time.Millisecond, End: 61*time.Minute + 250*time.Millisecond, Text: "late"},
	}
	var buf bytes.Buffer
	if err := WriteSRT(&buf, cues); err != nil {
		t.Fatalf("WriteSRT: %v", err)
	}
	if !strings.Contains(buf.String(), "00:00:01,500 --> 01:01:00,250") {
		t.Fatalf("unexpected timestamps:\n%s", buf.String())
	}
	parsed, err := ParseSRT(&buf)
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(parsed) != 2 || parsed[0].Text != "first line\nsecond" || parsed[1].End != cues[1].End {
		t.Fatalf("parsed = %+v", parsed)
	}
	if issues := ValidateSRT(parsed, cues[1].End); len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
}

func TestParseSRTSkipsMalformedBlocks(t *testing.T) {
	input := "1\r\n00:00:00,000 --> 00:00:01,000\r\nok\r\n\r\nx\n00:00:01,000 --> 00:00:02,000\nbad index\n\n3\nno timing\ntext\n"
	cues, err := ParseSRT(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(cues) != 1 || cues[0].Text != "ok" {
		t.Fatalf("cues = %+v", cues)
	}
}

func TestValidateSRTReportsIssues(t *testing.T) {
	cues := []Cue{
		{Index: 1, Start: 0, End: 2 * time.Second},
		{Index: 2, Start: time.Second, End: time.Second},
	}
	issues := ValidateSRT(cues, 10*time.Second)
	joined := strings.Join(issues, ";")
	for _, want := range []string{"non_positive_cue: #2", "overlap: #1/#2", "duration_mismatch"} {
		if !strings.Contains(joined, want) {
			t.Errorf("issues %q missing %q", joined, want)
		}
	}
	if got := ValidateSRT(nil, 0); len(got) != 1 || got[0] != "empty_subtitle_file" {
		t.Fatalf("empty issues = %v", got)
	}
}

func TestWriteASS(t *testing.T) {
	style := recap.DefaultCueStyle()
	cues := []recap.SubtitleCue{{Start: 1234 * time.Millisecond, End: 3 * time.Second, Lines: []string{"a {b}", `c\d`}, Style: style.Name}}
	var buf bytes.Buffer
	if err := WriteASS(&buf, cues, recap.Frame{Width: 1080, Height: 1920}, style); err != nil {
		t.Fatalf("WriteASS: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"PlayResX: 1080",
		"Style: Narration,Arial,44,&H00FFFFFF,&H000000FF,&H00000000,&H40000000,-1,0,0,0,100,100,0,0,3,2,0,2,80,80,150,1",
		`Dialogue: 0,0:00:01.23,0:00:03.00,Narration,,0,0,0,,a \{b\}\Nc\\d`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ASS output missing %q\n%s", want, out)
		}
	}
}
