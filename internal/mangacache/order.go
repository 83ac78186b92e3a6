package mangacache

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"mangarecap/internal/recap"
)

// CompareChapterKeys orders chapter numbers numerically ("9" < "10" < "10.5").
// Non-numeric keys sort after numeric ones, lexically among themselves.
func CompareChapterKeys(a, b string) int {
	fa, okA := parseChapterNumber(a)
	fb, okB := parseChapterNumber(b)
	switch {
	case okA && okB:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func parseChapterNumber(value string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// sortChapters sorts summaries into reading order in place.
func sortChapters(summaries []recap.ChapterSummary) {
	slices.SortStableFunc(summaries, func(a, b recap.ChapterSummary) int {
		return CompareChapterKeys(a.OrderKey(), b.OrderKey())
	})
}

// selectPrevious returns up to limit summaries strictly before the given key,
// oldest first. The input must already be in reading order.
func selectPrevious(ordered []recap.ChapterSummary, before string, limit int) []recap.ChapterSummary {
	if limit <= 0 {
		return nil
	}
	before = strings.TrimSpace(before)
	var prev []recap.ChapterSummary
	for _, s := range ordered {
		if CompareChapterKeys(s.OrderKey(), before) < 0 {
			prev = append(prev, s)
		}
	}
	if len(prev) > limit {
		prev = prev[len(prev)-limit:]
	}
	return prev
}

// FormatPreviousSummaries renders summaries as the prior-chapter block used in
// narration prompts. It returns "" when there is nothing to show.
func FormatPreviousSummaries(summaries []recap.ChapterSummary) string {
	if len(summaries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("PREVIOUS CHAPTERS:")
	for _, s := range summaries {
		text := strings.TrimSpace(s.SummaryText)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "\nChapter %s: %s", s.OrderKey(), text)
	}
	return b.String()
}
