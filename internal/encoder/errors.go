package encoder

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for classifying ffmpeg stderr. The first match wins.
var (
	reDiskFull = regexp.MustCompile(`(?i)No space left on device|Disk quota exceeded`)

	reUnknownEncoder = regexp.MustCompile(`(?i)Unknown encoder|Encoder .* not found|Unrecognized option 'preset'`)

	reMissingFilter = regexp.MustCompile(`(?i)No such filter: '?(\w+)`)

	reMissingInput = regexp.MustCompile(`(?i)No such file or directory|Invalid data found when processing input`)
)

// Classify returns a short cause for an ffmpeg failure based on stderr.
func Classify(stderr string) string {
	switch {
	case reDiskFull.MatchString(stderr):
		return "output disk is full"
	case reUnknownEncoder.MatchString(stderr):
		return "video codec is not available in this ffmpeg build"
	case reMissingFilter.MatchString(stderr):
		m := reMissingFilter.FindStringSubmatch(stderr)
		return "ffmpeg is missing the " + m[1] + " filter"
	case reMissingInput.MatchString(stderr):
		return "an input file is missing or unreadable"
	default:
		return "ffmpeg failed"
	}
}

// tail returns the last n non-empty lines of stderr.
func tail(stderr string, n int) string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
