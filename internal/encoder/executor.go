package encoder

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// runFunc executes ffmpeg, streaming -progress output to progress, and
// returns the captured stderr.
type runFunc func(ctx context.Context, binary string, args []string, progress io.Writer) (string, error)

func runCommand(ctx context.Context, binary string, args []string, progress io.Writer) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = progress
	err := cmd.Run()
	return stderr.String(), err
}

// progressWriter parses ffmpeg -progress key=value lines and reports the
// encoded position.
type progressWriter struct {
	buf    []byte
	report func(position time.Duration)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.line(string(w.buf[:i]))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

func (w *progressWriter) line(line string) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	// out_time_ms is microseconds despite the name; out_time_us is preferred.
	if !ok || (key != "out_time_us" && key != "out_time_ms") {
		return
	}
	us, err := strconv.ParseInt(value, 10, 64)
	if err != nil || us < 0 {
		return
	}
	if w.report != nil {
		w.report(time.Duration(us) * time.Microsecond)
	}
}

// ParseProgress reads a complete -progress stream and returns the last
// reported position.
func ParseProgress(r io.Reader) time.Duration {
	var last time.Duration
	w := &progressWriter{report: func(d time.Duration) { last = d }}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w.line(scanner.Text())
	}
	return last
}
