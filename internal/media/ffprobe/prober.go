package ffprobe

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"
)

// Prober measures media files for the assembler.
type Prober struct {
	binary string
	run    runFunc
}

// NewProber returns a prober that shells out to binary (default "ffprobe").
func NewProber(binary string) *Prober {
	return &Prober{binary: binary, run: runCommand}
}

// AudioDuration returns the playable length of an audio file.
func (p *Prober) AudioDuration(ctx context.Context, path string) (time.Duration, error) {
	result, err := inspect(ctx, p.run, p.binary, path)
	if err != nil {
		return 0, err
	}
	if result.AudioStreamCount() == 0 {
		return 0, fmt.Errorf("ffprobe: %s has no audio stream", path)
	}
	d := result.Duration()
	if d <= 0 {
		return 0, fmt.Errorf("ffprobe: %s reports no duration", path)
	}
	return d, nil
}

// ImageSize returns the pixel dimensions of an image file.
func (p *Prober) ImageSize(ctx context.Context, path string) (int, int, error) {
	if w, h, ok := decodeSize(path); ok {
		return w, h, nil
	}
	result, err := inspect(ctx, p.run, p.binary, path)
	if err != nil {
		return 0, 0, err
	}
	stream, ok := result.FirstVideo()
	if !ok || stream.Width <= 0 || stream.Height <= 0 {
		return 0, 0, fmt.Errorf("ffprobe: %s has no image stream", path)
	}
	return stream.Width, stream.Height, nil
}

func decodeSize(path string) (int, int, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
