package recap

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MangaContext is the per-manga summary used to keep narration tone and
// terminology consistent across chapters. It is overwritten on refresh.
type MangaContext struct {
	MangaID                 string    `json:"manga_id"`
	Title                   string    `json:"title"`
	Synopsis                string    `json:"synopsis"`
	RecurringCharacterNotes string    `json:"recurring_character_notes"`
	Genres                  []string  `json:"genres,omitempty"`
	LastUpdated             time.Time `json:"last_updated"`
}

// Validate ensures the context can be keyed.
func (c MangaContext) Validate() error {
	if strings.TrimSpace(c.MangaID) == "" {
		return errors.New("manga context: manga_id is required")
	}
	return nil
}

// ChapterSummary records what happened in a finished chapter so the next
// chapter's narration can refer back to it.
type ChapterSummary struct {
	MangaID       string    `json:"manga_id"`
	ChapterID     string    `json:"chapter_id"`
	ChapterNumber string    `json:"chapter_number,omitempty"`
	SummaryText   string    `json:"summary_text"`
	PageCount     int       `json:"page_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate enforces keys and the non-empty summary rule for chapters with pages.
func (s ChapterSummary) Validate() error {
	if strings.TrimSpace(s.MangaID) == "" {
		return errors.New("chapter summary: manga_id is required")
	}
	if strings.TrimSpace(s.ChapterID) == "" {
		return errors.New("chapter summary: chapter_id is required")
	}
	if s.PageCount < 0 {
		return fmt.Errorf("chapter summary: negative page_count %d", s.PageCount)
	}
	if s.PageCount > 0 && strings.TrimSpace(s.SummaryText) == "" {
		return fmt.Errorf("chapter summary: summary_text is required when page_count is %d", s.PageCount)
	}
	return nil
}

// OrderKey returns the chapter number used for ordering, falling back to the
// chapter ID when no number was recorded.
func (s ChapterSummary) OrderKey() string {
	if n := strings.TrimSpace(s.ChapterNumber); n != "" {
		return n
	}
	return strings.TrimSpace(s.ChapterID)
}
