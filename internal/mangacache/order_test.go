package mangacache

import (
	"testing"

	"mangarecap/internal/recap"
)

func TestCompareChapterKeys(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"9", "10", -1},
		{"10", "10.5", -1},
		{"2", "2", 0},
		{"12", "extra", -1},
		{"alpha", "beta", -1},
		{"omake", "3", 1},
	}
	for _, tt := range tests {
		if got := CompareChapterKeys(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareChapterKeys(%q, %q) = %d want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFormatPreviousSummaries(t *testing.T) {
	if got := FormatPreviousSummaries(nil); got != "" {
		t.Fatalf("empty = %q", got)
	}
	got := FormatPreviousSummaries([]recap.ChapterSummary{
		{ChapterID: "a", ChapterNumber: "4", SummaryText: "They met."},
		{ChapterID: "b", ChapterNumber: "5", SummaryText: " They fought. "},
	})
	want := "PREVIOUS CHAPTERS:\nChapter 4: They met.\nChapter 5: They fought."
	if got != want {
		t.Fatalf("FormatPreviousSummaries = %q\nwant %q", got, want)
	}
}

func TestSelectPreviousLimit(t *testing.T) {
	ordered := []recap.ChapterSummary{
		{ChapterNumber: "1"}, {ChapterNumber: "2"}, {ChapterNumber: "3"}, {ChapterNumber: "4"},
	}
	got := selectPrevious(ordered, "4", 2)
	if len(got) != 2 || got[0].ChapterNumber != "2" || got[1].ChapterNumber != "3" {
		t.Fatalf("selectPrevious = %+v", got)
	}
	if selectPrevious(ordered, "4", 0) != nil {
		t.Fatal("zero limit should return nil")
	}
}
