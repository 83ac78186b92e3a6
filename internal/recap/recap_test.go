package recap

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func contentPage(i int) Page {
	return Page{Index: i, ImageRef: "p.png", Label: LabelContent, Description: "panel"}
}

func metaPage(i int) Page {
	return Page{Index: i, ImageRef: "p.png", Label: LabelMeta}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in   string
		want Label
		ok   bool
	}{
		{"content", LabelContent, true},
		{" Story ", LabelContent, true},
		{"cover", LabelMeta, true},
		{"META", LabelMeta, true},
		{"banana", LabelMeta, false},
		{"", LabelMeta, false},
	}
	for _, tt := range tests {
		got, ok := ParseLabel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLabel(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestPageValidateDescriptionIffContent(t *testing.T) {
	if err := contentPage(0).Validate(); err != nil {
		t.Fatalf("content page: %v", err)
	}
	if err := metaPage(1).Validate(); err != nil {
		t.Fatalf("meta page: %v", err)
	}
	missing := contentPage(2)
	missing.Description = "  "
	if err := missing.Validate(); err == nil {
		t.Fatal("expected error for content page without description")
	}
	extra := metaPage(3)
	extra.Description = "cover art"
	if err := extra.Validate(); err == nil {
		t.Fatal("expected error for meta page with description")
	}
	if got := contentPage(4).AsMeta(); got.IsContent() || got.Description != "" {
		t.Fatalf("AsMeta did not downgrade: %+v", got)
	}
}

func TestValidatePagesRequiresAscendingIndices(t *testing.T) {
	pages := []Page{contentPage(0), metaPage(2), contentPage(1)}
	if err := ValidatePages(pages); err == nil {
		t.Fatal("expected ordering error")
	}
	pages = []Page{metaPage(0), contentPage(1), contentPage(3)}
	if err := ValidatePages(pages); err != nil {
		t.Fatalf("ValidatePages: %v", err)
	}
	if got := ContentIndices(pages); !slices.Equal(got, []int{1, 3}) {
		t.Fatalf("ContentIndices = %v", got)
	}
}

func TestChapterSummaryValidate(t *testing.T) {
	s := ChapterSummary{MangaID: "m", ChapterID: "c", PageCount: 4}
	if err := s.Validate(); err == nil || !strings.Contains(err.Error(), "summary_text") {
		t.Fatalf("expected summary_text error, got %v", err)
	}
	s.PageCount = 0
	if err := s.Validate(); err != nil {
		t.Fatalf("empty chapter should validate: %v", err)
	}
	s.ChapterNumber = ""
	if s.OrderKey() != "c" {
		t.Fatalf("OrderKey fallback = %q", s.OrderKey())
	}
}

func TestValidateSegments(t *testing.T) {
	pages := []Page{metaPage(0), contentPage(1), contentPage(2), contentPage(3)}
	good := []NarrationSegment{
		{Index: 0, Text: "a", SourcePages: []int{1, 2}},
		{Index: 1, Text: "b", SourcePages: []int{2, 3}},
	}
	if err := ValidateSegments(pages, good); err != nil {
		t.Fatalf("ValidateSegments: %v", err)
	}

	cases := map[string][]NarrationSegment{
		"empty":     nil,
		"meta ref":  {{Index: 0, Text: "a", SourcePages: []int{0}}},
		"no pages":  {{Index: 0, Text: "a"}},
		"backwards": {{Index: 0, Text: "a", SourcePages: []int{3}}, {Index: 1, Text: "b", SourcePages: []int{1}}},
		"unsorted":  {{Index: 0, Text: "a", SourcePages: []int{2, 1}}},
		"bad index": {{Index: 4, Text: "a", SourcePages: []int{1}}},
		"blank":     {{Index: 0, Text: " ", SourcePages: []int{1}}},
	}
	for name, segs := range cases {
		if err := ValidateSegments(pages, segs); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestAttachUncoveredPages(t *testing.T) {
	pages := []Page{contentPage(0), contentPage(1), contentPage(2), contentPage(3), contentPage(4), contentPage(5)}
	segs := []NarrationSegment{
		{Index: 0, Text: "a", SourcePages: []int{1, 3}},
		{Index: 1, Text: "b", SourcePages: []int{4}},
	}
	got, attached := AttachUncoveredPages(pages, segs)
	if !slices.Equal(attached, []int{0, 2, 5}) {
		t.Fatalf("attached = %v", attached)
	}
	if !slices.Equal(got[0].SourcePages, []int{0, 1, 2, 3}) {
		t.Fatalf("segment 0 pages = %v", got[0].SourcePages)
	}
	if !slices.Equal(got[1].SourcePages, []int{4, 5}) {
		t.Fatalf("segment 1 pages = %v", got[1].SourcePages)
	}
	if !slices.Equal(segs[0].SourcePages, []int{1, 3}) {
		t.Fatal("input segments were mutated")
	}
	if err := ValidateSegments(pages, got); err != nil {
		t.Fatalf("attached segments invalid: %v", err)
	}
}

func TestRectContainsAndLerp(t *testing.T) {
	outer := Rect{X: 0, Y: 0, W: 100, H: 200}
	inner := Rect{X: 10, Y: 20, W: 50, H: 50}
	if !outer.Contains(inner) || inner.Contains(outer) {
		t.Fatal("containment mismatch")
	}
	mid := outer.Lerp(inner, 0.5)
	want := Rect{X: 5, Y: 10, W: 75, H: 125}
	if mid != want {
		t.Fatalf("Lerp = %+v want %+v", mid, want)
	}
	if outer.Lerp(inner, 2) != inner {
		t.Fatal("Lerp should clamp t")
	}
}

func TestTimelineValidate(t *testing.T) {
	tl := Timeline{
		Plans: []MotionPlan{
			{PageIndex: 1, Duration: 2 * time.Second},
			{PageIndex: 2, Duration: 3 * time.Second},
		},
		Windows: []SegmentWindow{
			{SegmentIndex: 0, Start: 0, End: 4 * time.Second},
			{SegmentIndex: 1, Start: 4 * time.Second, End: 5 * time.Second},
		},
		Total: 5 * time.Second,
	}
	if err := tl.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if tl.PageAt(2500*time.Millisecond) != 2 || tl.PlanStart(1) != 2*time.Second {
		t.Fatal("PageAt/PlanStart mismatch")
	}

	gap := tl
	gap.Windows = []SegmentWindow{{Start: 0, End: 2 * time.Second}, {Start: 3 * time.Second, End: 5 * time.Second}}
	if err := gap.Validate(); err == nil {
		t.Fatal("expected gap error")
	}

	drift := tl
	drift.Total = 5*time.Second + time.Nanosecond
	if err := drift.Validate(); err == nil {
		t.Fatal("expected total mismatch error")
	}
}

func TestClassificationApply(t *testing.T) {
	base := Page{Index: 3, ImageRef: "p3.png"}
	got := Classification{Label: LabelContent, Description: " fight "}.Apply(base)
	if !got.IsContent() || got.Description != "fight" || got.ImageRef != "p3.png" {
		t.Fatalf("Apply content = %+v", got)
	}
	if got := (Classification{Label: LabelContent}).Apply(base); got.IsContent() {
		t.Fatal("content without description should downgrade")
	}
	if got := (Classification{Label: LabelMeta, Description: "cover"}).Apply(base); got.IsContent() || got.Description != "" {
		t.Fatalf("Apply meta = %+v", got)
	}
}

func TestNarrationResultSummaryFallback(t *testing.T) {
	r := NarrationResult{Segments: []NarrationSegment{{Text: "One."}, {Text: " Two. "}}}
	if r.SummaryText() != "One. Two." {
		t.Fatalf("SummaryText = %q", r.SummaryText())
	}
	r.Summary = "Short."
	if r.SummaryText() != "Short." {
		t.Fatalf("SummaryText = %q", r.SummaryText())
	}
}

func TestRestrictToContent(t *testing.T) {
	pages := []Page{contentPage(0), contentPage(1), metaPage(2), contentPage(3)}
	segs := []NarrationSegment{
		{Index: 0, Text: "a", SourcePages: []int{0, 1}},
		{Index: 1, Text: "b", SourcePages: []int{2}},
		{Index: 2, Text: "c", SourcePages: []int{2, 3}},
	}
	got, dropped := RestrictToContent(pages, segs)
	if !slices.Equal(dropped, []int{2, 2}) {
		t.Fatalf("dropped = %v", dropped)
	}
	if !slices.Equal(got[1].SourcePages, []int{1}) || !slices.Equal(got[2].SourcePages, []int{3}) {
		t.Fatalf("segments = %+v", got)
	}
	if !slices.Equal(segs[1].SourcePages, []int{2}) {
		t.Fatal("input segments were mutated")
	}
	if err := ValidateSegments(pages, got); err != nil {
		t.Fatalf("restricted segments invalid: %v", err)
	}

	lead := []NarrationSegment{{Index: 0, Text: "x", SourcePages: []int{2}}}
	got, _ = RestrictToContent([]Page{metaPage(0), metaPage(2), contentPage(4)}, lead)
	if !slices.Equal(got[0].SourcePages, []int{4}) {
		t.Fatalf("leading segment pages = %v", got[0].SourcePages)
	}
}
