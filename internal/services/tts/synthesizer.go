package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"mangarecap/internal/config"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// DurationProber measures audio files.
type DurationProber interface {
	AudioDuration(ctx context.Context, path string) (time.Duration, error)
}

type runFunc func(ctx context.Context, binary string, args ...string) error

func runCommand(ctx context.Context, binary string, args ...string) error {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// Synthesizer renders narration segments to audio files.
type Synthesizer struct {
	binary string
	voice  string
	rate   string
	prober DurationProber
	run    runFunc
}

// NewSynthesizer builds a synthesizer from the tts config section.
func NewSynthesizer(cfg *config.Config, prober DurationProber) *Synthesizer {
	return &Synthesizer{
		binary: cfg.TTSBinary(),
		voice:  strings.TrimSpace(cfg.TTS.Voice),
		rate:   strings.TrimSpace(cfg.TTS.Rate),
		prober: prober,
		run:    runCommand,
	}
}

// Args returns the edge-tts argument list for one segment.
func (s *Synthesizer) Args(text, outPath string) []string {
	args := []string{"--text", text, "--write-media", outPath}
	if s.voice != "" {
		args = append(args, "--voice", s.voice)
	}
	if s.rate != "" {
		// edge-tts parses "-10%" as a flag unless it is attached with "=".
		args = append(args, "--rate="+s.rate)
	}
	return args
}

// Synthesize writes seg's narration to outPath and returns the measured
// clip duration.
func (s *Synthesizer) Synthesize(ctx context.Context, seg recap.NarrationSegment, outPath string) (time.Duration, error) {
	op := fmt.Sprintf("segment %d", seg.Index)
	text := strings.TrimSpace(seg.Text)
	if text == "" {
		return 0, services.Wrap(services.ErrValidation, "tts", op, "empty text", nil)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "tts", op, "create output dir", err)
	}
	if err := s.run(ctx, s.binary, s.Args(text, outPath)...); err != nil {
		_ = os.Remove(outPath)
		if errors.Is(ctx.Err(), context.Canceled) {
			return 0, ctx.Err()
		}
		return 0, services.Wrap(services.ErrExternalTool, "tts", op, "run "+s.binary, err)
	}
	d, err := s.prober.AudioDuration(ctx, outPath)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "tts", op, "measure clip", err)
	}
	return d, nil
}
