package encoder

import "strings"

var gradeFilters = map[string]string{
	"tense":    "eq=contrast=1.1:brightness=-0.02:saturation=0.9",
	"action":   "eq=contrast=1.15:brightness=0.02:saturation=1.1",
	"sad":      "eq=contrast=0.95:brightness=-0.05:saturation=0.7",
	"comedic":  "eq=contrast=1.0:brightness=0.03:saturation=1.1",
	"romantic": "eq=contrast=0.95:brightness=0.02:saturation=1.2,colorbalance=rs=0.1:gs=-0.05:bs=-0.1",
	"dark":     "eq=contrast=1.2:brightness=-0.1:saturation=0.6",
	"happy":    "eq=contrast=1.05:brightness=0.05:saturation=1.15",
}

// GradeFilter returns the color grade filter for mood, or "" when the mood
// has no grade.
func GradeFilter(mood string) string {
	return gradeFilters[strings.ToLower(strings.TrimSpace(mood))]
}
