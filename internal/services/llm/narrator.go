package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"mangarecap/internal/mangacache"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// Narrator scripts chapter narration with a text model.
type Narrator struct {
	client *Client
}

// NewNarrator wraps client for narration synthesis.
func NewNarrator(client *Client) *Narrator {
	return &Narrator{client: client}
}

type narrationPayload struct {
	Segments []struct {
		Text  string `json:"text"`
		Pages []int  `json:"pages"`
	} `json:"segments"`
	Summary string `json:"summary"`
}

// Narrate returns the segments and summary for req. Any failure wraps
// ErrNarrationSynthesis.
func (n *Narrator) Narrate(ctx context.Context, req recap.NarrationRequest) (recap.NarrationResult, error) {
	if len(req.Pages) == 0 {
		return recap.NarrationResult{}, services.Wrap(services.ErrNarrationSynthesis, "narrate", req.ChapterID, "no content pages", nil)
	}
	content, err := n.client.CompleteJSON(ctx, NarrationPrompt, BuildNarrationInput(req))
	if err != nil {
		return recap.NarrationResult{}, services.Wrap(services.ErrNarrationSynthesis, "narrate", req.ChapterID, "request", err)
	}
	return ParseNarration(content)
}

// BuildNarrationInput renders the user message for a narration request.
func BuildNarrationInput(req recap.NarrationRequest) string {
	var b strings.Builder
	if req.Context != nil {
		b.WriteString("MANGA INFO:\n")
		fmt.Fprintf(&b, "Title: %s\n", fallback(req.Context.Title, req.MangaID))
		fmt.Fprintf(&b, "Chapter: %s\n", fallback(req.ChapterNumber, req.ChapterID))
		if len(req.Context.Genres) > 0 {
			fmt.Fprintf(&b, "Genres: %s\n", strings.Join(req.Context.Genres, ", "))
		}
		if s := strings.TrimSpace(req.Context.Synopsis); s != "" {
			fmt.Fprintf(&b, "Description: %s\n", s)
		}
		if s := strings.TrimSpace(req.Context.RecurringCharacterNotes); s != "" {
			fmt.Fprintf(&b, "Characters: %s\n", s)
		}
		b.WriteString("\n")
	}
	if prev := mangacache.FormatPreviousSummaries(req.Previous); prev != "" {
		b.WriteString(prev)
		b.WriteString("\n\n")
	}
	if req.TargetWords > 0 {
		fmt.Fprintf(&b, "Aim for about %d words in total.\n\n", req.TargetWords)
	}
	b.WriteString("PAGES:\n")
	for _, p := range req.Pages {
		fmt.Fprintf(&b, "Page %d: %s\n", p.Index, strings.TrimSpace(p.Description))
	}
	return strings.TrimSpace(b.String())
}

// ParseNarration validates a narration JSON payload into segments. Page
// references are sorted and deduplicated; cross-checking them against the
// chapter's pages is left to the caller.
func ParseNarration(content string) (recap.NarrationResult, error) {
	var payload narrationPayload
	if err := DecodeLLMJSON(content, &payload); err != nil {
		return recap.NarrationResult{}, services.Wrap(services.ErrNarrationSynthesis, "narrate", "parse", "decode payload", err)
	}
	if len(payload.Segments) == 0 {
		return recap.NarrationResult{}, services.Wrap(services.ErrNarrationSynthesis, "narrate", "parse", "no segments", nil)
	}
	result := recap.NarrationResult{Summary: strings.TrimSpace(payload.Summary)}
	for i, seg := range payload.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			return recap.NarrationResult{}, services.Wrap(services.ErrNarrationSynthesis, "narrate", "parse", fmt.Sprintf("segment %d has no text", i), nil)
		}
		pages := slices.Clone(seg.Pages)
		slices.Sort(pages)
		pages = slices.Compact(pages)
		if len(pages) == 0 {
			return recap.NarrationResult{}, services.Wrap(services.ErrNarrationSynthesis, "narrate", "parse", fmt.Sprintf("segment %d has no pages", i), nil)
		}
		result.Segments = append(result.Segments, recap.NarrationSegment{Index: i, Text: text, SourcePages: pages})
	}
	return result, nil
}

func fallback(value, def string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return def
}
