package deps

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// RequiredFilters are the ffmpeg filters the encoder's graph uses. The ass
// filter is only present in builds linked against libass.
var RequiredFilters = []string{"zoompan", "ass", "concat", "amix", "adelay", "volume"}

// CheckFFmpegFilters reports whether the ffmpeg build offers every filter in
// RequiredFilters.
func CheckFFmpegFilters(ctx context.Context, binary string) Status {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	status := Status{
		Name:        "FFmpeg filters",
		Command:     binary,
		Description: strings.Join(RequiredFilters, ", "),
	}
	out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output()
	if err != nil {
		status.Detail = fmt.Sprintf("list filters: %v", err)
		return status
	}
	missing := MissingFilters(string(out), RequiredFilters)
	if len(missing) > 0 {
		status.Detail = "missing filters: " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	return status
}

// MissingFilters parses `ffmpeg -filters` output and returns the wanted
// filters it does not list.
func MissingFilters(listing string, wanted []string) []string {
	have := make(map[string]struct{})
	scanner := bufio.NewScanner(strings.NewReader(listing))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		// Filter rows are "<flags> <name> <io> <description>".
		if len(fields) >= 3 && strings.Contains(fields[2], "->") {
			have[fields[1]] = struct{}{}
		}
	}
	var missing []string
	for _, name := range wanted {
		if _, ok := have[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
