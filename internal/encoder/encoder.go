package encoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mangarecap/internal/logging"
	"mangarecap/internal/motion"
	"mangarecap/internal/preflight"
	"mangarecap/internal/services"
	"mangarecap/internal/subtitles"
)

const subtitleFileName = "captions.ass"

// FFmpeg renders jobs with an ffmpeg binary.
type FFmpeg struct {
	binary string
	logger *slog.Logger
	run    runFunc
}

// New returns an encoder that runs binary (default "ffmpeg").
func New(binary string, logger *slog.Logger) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{
		binary: binary,
		logger: logging.NewComponentLogger(logger, "encoder"),
		run:    runCommand,
	}
}

// Encode renders job to job.OutputPath. On any failure the partial output
// is removed and the error wraps ErrEncode.
func (f *FFmpeg) Encode(ctx context.Context, job Job) (Output, error) {
	if err := job.Validate(); err != nil {
		return Output{}, encodeErr("validate job", err)
	}
	outDir := filepath.Dir(job.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Output{}, encodeErr("create output dir", err)
	}
	if job.MinFreeBytes > 0 {
		free, err := preflight.FreeBytes(outDir)
		if err != nil {
			return Output{}, encodeErr("check free space", err)
		}
		if free < job.MinFreeBytes {
			return Output{}, encodeErr("check free space",
				fmt.Errorf("%d MiB free under %s, need %d MiB", free>>20, outDir, job.MinFreeBytes>>20))
		}
	}

	var subtitlePath string
	if len(job.Cues) > 0 {
		workDir := job.WorkDir
		if workDir == "" {
			workDir = outDir
		}
		subtitlePath = filepath.Join(workDir, subtitleFileName)
		if err := writeSubtitles(subtitlePath, job); err != nil {
			return Output{}, encodeErr("write captions", err)
		}
	}

	partial := PartialPath(job.OutputPath)
	args := BuildArgs(job, subtitlePath, partial)
	frames := 0
	for _, n := range motion.FrameCounts(job.Timeline.Plans, job.FPS) {
		frames += n
	}

	logger := logging.WithContext(ctx, f.logger)
	logger.Info("encode started",
		logging.String("output", job.OutputPath),
		logging.Int("pages", len(job.Timeline.Plans)),
		logging.Int("frames", frames),
		logging.Duration("total", job.Timeline.Total),
	)
	sampler := logging.NewProgressSampler(10)
	progress := &progressWriter{report: func(pos time.Duration) {
		if job.Timeline.Total <= 0 {
			return
		}
		pct := 100 * pos.Seconds() / job.Timeline.Total.Seconds()
		if sampler.ShouldLog(pct, "encode") {
			logger.Info("encode progress", logging.Float64("percent", min(pct, 100)))
		}
	}}

	started := time.Now()
	stderr, err := f.run(ctx, f.binary, args, progress)
	if err != nil {
		_ = os.Remove(partial)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Output{}, encodeErr("run ffmpeg", ctxErr)
		}
		cause := Classify(stderr)
		if t := tail(stderr, 5); t != "" {
			cause += ": " + t
		}
		return Output{}, services.Wrap(services.ErrEncode, "encode", "run ffmpeg", cause, err)
	}
	if err := os.Rename(partial, job.OutputPath); err != nil {
		_ = os.Remove(partial)
		return Output{}, encodeErr("finalize output", err)
	}

	out := Output{
		Path:         job.OutputPath,
		SubtitlePath: subtitlePath,
		Frames:       frames,
		Duration:     job.Timeline.Total,
		Elapsed:      time.Since(started),
	}
	logger.Info("encode completed",
		logging.String("output", out.Path),
		logging.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func writeSubtitles(path string, job Job) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	return subtitles.WriteASS(file, job.Cues, job.Frame, job.Style)
}

func encodeErr(operation string, err error) error {
	if errors.Is(err, services.ErrEncode) {
		return err
	}
	return services.Wrap(services.ErrEncode, "encode", operation, "", err)
}
