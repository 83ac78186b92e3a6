package llm

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

func TestNarratorNarrate(t *testing.T) {
	var userPrompt string
	server := completionServer(t, "```json\n{\"segments\":[{\"text\":\"Zoro wakes.\",\"pages\":[2,1,2]},{\"text\":\"He fights.\",\"pages\":[3]}],\"summary\":\"Zoro fights.\"}\n```", func(body map[string]any) {
		messages, _ := body["messages"].([]any)
		if len(messages) == 2 {
			user, _ := messages[1].(map[string]any)
			userPrompt, _ = user["content"].(string)
		}
	})
	narrator := NewNarrator(NewClient(Config{APIKey: "test", BaseURL: server.URL}))
	req := recap.NarrationRequest{
		MangaID:   "op",
		ChapterID: "c12",
		Context:   &recap.MangaContext{MangaID: "op", Title: "One Piece", Genres: []string{"action"}},
		Previous:  []recap.ChapterSummary{{MangaID: "op", ChapterID: "c11", ChapterNumber: "11", SummaryText: "Luffy sets sail."}},
		Pages: []recap.Page{
			{Index: 1, Label: recap.LabelContent, Description: "Zoro asleep."},
			{Index: 2, Label: recap.LabelContent, Description: "Zoro wakes."},
			{Index: 3, Label: recap.LabelContent, Description: "Swords drawn."},
		},
	}
	got, err := narrator.Narrate(context.Background(), req)
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if len(got.Segments) != 2 || !slices.Equal(got.Segments[0].SourcePages, []int{1, 2}) || got.Segments[1].Index != 1 {
		t.Fatalf("segments = %+v", got.Segments)
	}
	if got.Summary != "Zoro fights." {
		t.Fatalf("summary = %q", got.Summary)
	}
	for _, want := range []string{"Title: One Piece", "PREVIOUS CHAPTERS:", "Chapter 11: Luffy sets sail.", "Page 3: Swords drawn."} {
		if !strings.Contains(userPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, userPrompt)
		}
	}
}

func TestNarratorRequiresPages(t *testing.T) {
	narrator := NewNarrator(NewClient(Config{APIKey: "test"}))
	_, err := narrator.Narrate(context.Background(), recap.NarrationRequest{ChapterID: "c"})
	if !errors.Is(err, services.ErrNarrationSynthesis) {
		t.Fatalf("expected ErrNarrationSynthesis, got %v", err)
	}
}

func TestParseNarrationRejectsMalformed(t *testing.T) {
	for _, payload := range []string{
		`[]`,
		`{"segments":[]}`,
		`{"segments":[{"text":"","pages":[1]}]}`,
		`{"segments":[{"text":"x","pages":[]}]}`,
	} {
		if _, err := ParseNarration(payload); !errors.Is(err, services.ErrNarrationSynthesis) {
			t.Errorf("%s: expected ErrNarrationSynthesis, got %v", payload, err)
		}
	}
}
