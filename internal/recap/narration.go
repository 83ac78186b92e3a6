package recap

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// NarrationSegment is one narrated sentence group and the pages it describes.
type NarrationSegment struct {
	Index             int           `json:"segment_index"`
	Text              string        `json:"text"`
	SourcePages       []int         `json:"source_page_indices"`
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// RuneCount returns the character count used for proportional timing.
func (s NarrationSegment) RuneCount() int {
	return utf8.RuneCountInString(strings.TrimSpace(s.Text))
}

// FirstPage returns the first referenced page index.
func (s NarrationSegment) FirstPage() int {
	if len(s.SourcePages) == 0 {
		return -1
	}
	return s.SourcePages[0]
}

// LastPage returns the last referenced page index.
func (s NarrationSegment) LastPage() int {
	if len(s.SourcePages) == 0 {
		return -1
	}
	return s.SourcePages[len(s.SourcePages)-1]
}

// ValidateSegments checks that segments follow reading order and only reference
// content pages. Segment indices must be 0..n-1 in order.
func ValidateSegments(pages []Page, segments []NarrationSegment) error {
	if len(segments) == 0 {
		return fmt.Errorf("narration: no segments")
	}
	content := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		if p.IsContent() {
			content[p.Index] = struct{}{}
		}
	}
	lastPage := -1
	for i, seg := range segments {
		if seg.Index != i {
			return fmt.Errorf("segment %d: index %d out of sequence", i, seg.Index)
		}
		if strings.TrimSpace(seg.Text) == "" {
			return fmt.Errorf("segment %d: empty text", i)
		}
		if len(seg.SourcePages) == 0 {
			return fmt.Errorf("segment %d: no source pages", i)
		}
		if seg.EstimatedDuration < 0 {
			return fmt.Errorf("segment %d: negative estimated duration", i)
		}
		for j, page := range seg.SourcePages {
			if _, ok := content[page]; !ok {
				return fmt.Errorf("segment %d: page %d is not a content page", i, page)
			}
			if j > 0 && page <= seg.SourcePages[j-1] {
				return fmt.Errorf("segment %d: source pages must be strictly ascending", i)
			}
		}
		if seg.FirstPage() < lastPage {
			return fmt.Errorf("segment %d: starts at page %d before previous segment's last page %d", i, seg.FirstPage(), lastPage)
		}
		lastPage = seg.LastPage()
	}
	return nil
}

// AttachUncoveredPages returns a copy of segments where every content page is
// referenced by some segment. A page not referenced by any segment joins the
// segment whose page range covers it, or else the closest preceding segment
// (the first segment for pages before all narration). Reading order is kept.
func AttachUncoveredPages(pages []Page, segments []NarrationSegment) ([]NarrationSegment, []int) {
	out := make([]NarrationSegment, len(segments))
	covered := make(map[int]struct{})
	for i, seg := range segments {
		seg.SourcePages = slices.Clone(seg.SourcePages)
		out[i] = seg
		for _, p := range seg.SourcePages {
			covered[p] = struct{}{}
		}
	}
	if len(out) == 0 {
		return out, nil
	}

	var attached []int
	for _, idx := range ContentIndices(pages) {
		if _, ok := covered[idx]; ok {
			continue
		}
		target := 0
		for i, seg := range out {
			if seg.FirstPage() <= idx {
				target = i
			}
			if seg.FirstPage() <= idx && idx <= seg.LastPage() {
				break
			}
		}
		seg := out[target]
		pos, _ := slices.BinarySearch(seg.SourcePages, idx)
		seg.SourcePages = slices.Insert(seg.SourcePages, pos, idx)
		out[target] = seg
		covered[idx] = struct{}{}
		attached = append(attached, idx)
	}
	return out, attached
}

// JoinText concatenates segment texts in order.
func JoinText(segments []NarrationSegment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// NarrationRequest is what a narrator needs to script one chapter.
type NarrationRequest struct {
	MangaID       string           `json:"manga_id"`
	ChapterID     string           `json:"chapter_id"`
	ChapterNumber string           `json:"chapter_number,omitempty"`
	Context       *MangaContext    `json:"context,omitempty"`
	Previous      []ChapterSummary `json:"previous,omitempty"`
	// Pages holds the content pages only, in reading order.
	Pages       []Page `json:"pages"`
	TargetWords int    `json:"target_words,omitempty"`
}

// NarrationResult is a narrator's script for a chapter.
type NarrationResult struct {
	Segments []NarrationSegment `json:"segments"`
	// Summary is a short recap stored for later chapters. Empty means the
	// joined narration text is used instead.
	Summary string `json:"summary,omitempty"`
}

// SummaryText returns the summary, falling back to the joined narration.
func (r NarrationResult) SummaryText() string {
	if s := strings.TrimSpace(r.Summary); s != "" {
		return s
	}
	return JoinText(r.Segments)
}

// RestrictToContent returns a copy of segments with references to non-content
// pages removed, plus the dropped page indices. A segment left with no pages
// takes the previous segment's last page, or the first content page when it
// leads the chapter.
func RestrictToContent(pages []Page, segments []NarrationSegment) ([]NarrationSegment, []int) {
	content := ContentIndices(pages)
	isContent := make(map[int]struct{}, len(content))
	for _, idx := range content {
		isContent[idx] = struct{}{}
	}
	out := make([]NarrationSegment, len(segments))
	var dropped []int
	for i, seg := range segments {
		kept := make([]int, 0, len(seg.SourcePages))
		for _, p := range seg.SourcePages {
			if _, ok := isContent[p]; ok {
				kept = append(kept, p)
			} else {
				dropped = append(dropped, p)
			}
		}
		if len(kept) == 0 {
			switch {
			case i > 0 && out[i-1].LastPage() >= 0:
				kept = []int{out[i-1].LastPage()}
			case len(content) > 0:
				kept = []int{content[0]}
			}
		}
		seg.SourcePages = kept
		out[i] = seg
	}
	return out, dropped
}
