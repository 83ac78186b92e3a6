package manifest

import (
	"context"
	"fmt"
	"strings"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// FetchPages returns the manifest pages in order. Images are used in place,
// so dir is ignored.
func (m *Manifest) FetchPages(ctx context.Context, chapterID, _ string) ([]recap.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if chapterID != m.ChapterID {
		return nil, services.Wrap(services.ErrNotFound, "manifest", "fetch pages",
			fmt.Sprintf("manifest describes chapter %q, not %q", m.ChapterID, chapterID), nil)
	}
	pages := make([]recap.Page, len(m.Pages))
	for i, p := range m.Pages {
		pages[i] = recap.Page{Index: i, ImageRef: p.Image}
	}
	return pages, nil
}

// Classifier returns the manifest's page verdicts.
func (m *Manifest) Classifier() *StaticClassifier {
	return &StaticClassifier{pages: m.Pages}
}

// Narrator returns the manifest's narration script.
func (m *Manifest) Narrator() *StaticNarrator {
	return &StaticNarrator{narration: m.Narration}
}

// StaticClassifier answers from labels written in the manifest. A page
// without a label is content when it has a description; otherwise
// classification fails and the page is treated as meta.
type StaticClassifier struct {
	pages []PageEntry
}

// Classify returns the verdict recorded for page.Index.
func (c *StaticClassifier) Classify(ctx context.Context, page recap.Page) (recap.Classification, error) {
	if err := ctx.Err(); err != nil {
		return recap.Classification{}, err
	}
	if page.Index < 0 || page.Index >= len(c.pages) {
		return recap.Classification{}, services.Wrap(services.ErrClassification, "manifest", "classify",
			fmt.Sprintf("page %d is not in the manifest", page.Index), nil)
	}
	entry := c.pages[page.Index]
	desc := strings.TrimSpace(entry.Description)
	if entry.Label == "" {
		if desc == "" {
			return recap.Classification{}, services.Wrap(services.ErrClassification, "manifest", "classify",
				fmt.Sprintf("page %d has neither label nor description", page.Index), nil)
		}
		return recap.Classification{Label: recap.LabelContent, Description: desc, Mood: entry.Mood}, nil
	}
	label, _ := recap.ParseLabel(entry.Label)
	if label != recap.LabelContent {
		desc = ""
	}
	return recap.Classification{Label: label, Description: desc, Mood: entry.Mood}, nil
}

// StaticNarrator answers with the manifest's narration script.
type StaticNarrator struct {
	narration Narration
}

// Narrate returns the scripted segments. Page references are passed through
// unchanged; the assembler validates them against the classified pages.
func (n *StaticNarrator) Narrate(ctx context.Context, _ recap.NarrationRequest) (recap.NarrationResult, error) {
	if err := ctx.Err(); err != nil {
		return recap.NarrationResult{}, err
	}
	if len(n.narration.Segments) == 0 {
		return recap.NarrationResult{}, services.Wrap(services.ErrNarrationSynthesis, "manifest", "narrate",
			"manifest has no narration segments", nil)
	}
	segments := make([]recap.NarrationSegment, len(n.narration.Segments))
	for i, seg := range n.narration.Segments {
		segments[i] = recap.NarrationSegment{
			Index:       i,
			Text:        strings.TrimSpace(seg.Text),
			SourcePages: append([]int(nil), seg.Pages...),
		}
	}
	return recap.NarrationResult{Segments: segments, Summary: strings.TrimSpace(n.narration.Summary)}, nil
}
