package recap

import (
	"fmt"
	"strings"
)

// Label classifies a chapter page.
type Label string

const (
	// LabelContent marks narrative pages that are narrated and displayed.
	LabelContent Label = "content"
	// LabelMeta marks covers, credits, ads and other non-story pages.
	LabelMeta Label = "meta"
)

// ParseLabel normalizes a classifier label. Anything other than a story or
// content label is treated as meta.
func ParseLabel(value string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "content", "story":
		return LabelContent, true
	case "meta", "cover", "credits", "ad":
		return LabelMeta, true
	default:
		return LabelMeta, false
	}
}

// Page is one chapter page in reading order.
type Page struct {
	Index       int    `json:"index"`
	ImageRef    string `json:"image_ref"`
	Label       Label  `json:"label"`
	Description string `json:"description,omitempty"`
}

// IsContent reports whether the page is narrated.
func (p Page) IsContent() bool {
	return p.Label == LabelContent
}

// Validate enforces that a description is present iff the page is content.
func (p Page) Validate() error {
	if p.Index < 0 {
		return fmt.Errorf("page %d: negative index", p.Index)
	}
	switch p.Label {
	case LabelContent:
		if strings.TrimSpace(p.Description) == "" {
			return fmt.Errorf("page %d: content page requires a description", p.Index)
		}
	case LabelMeta:
		if strings.TrimSpace(p.Description) != "" {
			return fmt.Errorf("page %d: meta page must not carry a description", p.Index)
		}
	default:
		return fmt.Errorf("page %d: unknown label %q", p.Index, p.Label)
	}
	return nil
}

// AsMeta returns a copy of the page downgraded to meta.
func (p Page) AsMeta() Page {
	p.Label = LabelMeta
	p.Description = ""
	return p
}

// ContentIndices returns the indices of content pages in reading order.
func ContentIndices(pages []Page) []int {
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if p.IsContent() {
			out = append(out, p.Index)
		}
	}
	return out
}

// ValidatePages checks every page and that indices are unique and ascending.
func ValidatePages(pages []Page) error {
	prev := -1
	for _, p := range pages {
		if err := p.Validate(); err != nil {
			return err
		}
		if p.Index <= prev {
			return fmt.Errorf("page %d: indices must be strictly ascending (previous %d)", p.Index, prev)
		}
		prev = p.Index
	}
	return nil
}

// Classification is a classifier's verdict for one page.
type Classification struct {
	Label       Label  `json:"label"`
	Description string `json:"description,omitempty"`
	Mood        string `json:"mood,omitempty"`
}

// Apply returns a copy of p carrying the classification. A content verdict
// without a description downgrades the page to meta.
func (c Classification) Apply(p Page) Page {
	p.Label = c.Label
	p.Description = strings.TrimSpace(c.Description)
	if p.Label != LabelContent || p.Description == "" {
		return p.AsMeta()
	}
	return p
}
