package subtitles

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFC and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Wrap breaks text into lines no wider than maxCells display cells. Words
// wider than a whole line are split across lines.
func Wrap(text string, maxCells int) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	if maxCells <= 0 {
		return []string{text}
	}
	var (
		lines []string
		line  strings.Builder
		width int
	)
	flush := func() {
		if line.Len() > 0 {
			lines = append(lines, line.String())
			line.Reset()
			width = 0
		}
	}
	for _, word := range strings.Fields(text) {
		ww := runewidth.StringWidth(word)
		if ww > maxCells {
			flush()
			lines = append(lines, hardSplit(word, maxCells)...)
			// The last piece may still take following words.
			last := lines[len(lines)-1]
			lines = lines[:len(lines)-1]
			line.WriteString(last)
			width = runewidth.StringWidth(last)
			continue
		}
		switch {
		case width == 0:
			line.WriteString(word)
			width = ww
		case width+1+ww <= maxCells:
			line.WriteByte(' ')
			line.WriteString(word)
			width += 1 + ww
		default:
			flush()
			line.WriteString(word)
			width = ww
		}
	}
	flush()
	return lines
}

func hardSplit(word string, maxCells int) []string {
	var (
		out   []string
		cur   strings.Builder
		width int
	)
	for _, r := range word {
		rw := runewidth.RuneWidth(r)
		if width+rw > maxCells && cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
			width = 0
		}
		cur.WriteRune(r)
		width += rw
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// Chunk groups lines into cue-sized chunks of at most maxLines lines.
func Chunk(lines []string, maxLines int) [][]string {
	if maxLines <= 0 {
		maxLines = 1
	}
	var out [][]string
	for len(lines) > 0 {
		n := min(maxLines, len(lines))
		out = append(out, lines[:n:n])
		lines = lines[n:]
	}
	return out
}
