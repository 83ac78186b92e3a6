package ffprobe

import (
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video", Width: 800, Height: 1200},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "12.345"},
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if v, ok := result.FirstVideo(); !ok || v.Width != 800 {
		t.Fatalf("FirstVideo = %+v, %v", v, ok)
	}
	if result.Duration() != 12345*time.Millisecond {
		t.Fatalf("unexpected duration: %v", result.Duration())
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "audio", Duration: "4.5"}},
		Format:  Format{Duration: "bad"},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN container duration, got %v", result.DurationSeconds())
	}
	if result.Duration() != 4500*time.Millisecond {
		t.Fatalf("Duration = %v", result.Duration())
	}
}

func stubProber(output string, err error) *Prober {
	return &Prober{binary: "ffprobe", run: func(context.Context, string, ...string) ([]byte, error) {
		return []byte(output), err
	}}
}

func TestProberAudioDuration(t *testing.T) {
	p := stubProber(`{"streams":[{"codec_type":"audio"}],"format":{"duration":"30.2"}}`, nil)
	d, err := p.AudioDuration(context.Background(), "n.mp3")
	if err != nil || d != 30200*time.Millisecond {
		t.Fatalf("AudioDuration = %v, %v", d, err)
	}

	noAudio := stubProber(`{"streams":[{"codec_type":"video"}],"format":{"duration":"3"}}`, nil)
	if _, err := noAudio.AudioDuration(context.Background(), "v.mp4"); err == nil {
		t.Fatal("expected error for file without audio")
	}

	failing := stubProber("", errors.New("exit status 1"))
	if _, err := failing.AudioDuration(context.Background(), "x.mp3"); err == nil {
		t.Fatal("expected error when ffprobe fails")
	}
}

func TestProberImageSizeDecodesHeaderFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 30, 40))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = f.Close()

	p := stubProber("", errors.New("ffprobe should not run"))
	w, h, err := p.ImageSize(context.Background(), path)
	if err != nil || w != 30 || h != 40 {
		t.Fatalf("ImageSize = %dx%d, %v", w, h, err)
	}

	webp := stubProber(`{"streams":[{"codec_type":"video","width":900,"height":1300}]}`, nil)
	w, h, err = webp.ImageSize(context.Background(), filepath.Join(t.TempDir(), "page.webp"))
	if err != nil || w != 900 || h != 1300 {
		t.Fatalf("ffprobe fallback = %dx%d, %v", w, h, err)
	}
}
