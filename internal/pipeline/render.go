package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"mangarecap/internal/audio"
	"mangarecap/internal/encoder"
	"mangarecap/internal/fileutil"
	"mangarecap/internal/logging"
	"mangarecap/internal/motion"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
	"mangarecap/internal/subtitles"
	"mangarecap/internal/textutil"
)

func (a *Assembler) frame() recap.Frame {
	return recap.Frame{Width: a.cfg.Video.Width, Height: a.cfg.Video.Height}
}

// compose measures every displayed page and plans its motion.
func (a *Assembler) compose(ctx context.Context, r *run, res *Result) error {
	dims := make(map[int]motion.Dimensions, len(res.Timeline.Plans))
	for _, plan := range res.Timeline.Plans {
		w, h, err := a.prober.ImageSize(ctx, plan.ImageRef)
		if err != nil {
			return services.Wrap(services.ErrValidation, "pipeline", "measure page",
				fmt.Sprintf("page %d", plan.PageIndex), err)
		}
		dims[plan.PageIndex] = motion.Dimensions{Width: w, Height: h}
	}
	tl, err := motion.ComposeTimeline(res.Timeline, dims, motion.Settings{
		Frame:   a.frame(),
		Seed:    motion.ChapterSeed(r.ch.MangaID, r.ch.ChapterID),
		ZoomMin: a.cfg.Motion.ZoomMin,
		ZoomMax: a.cfg.Motion.ZoomMax,
	})
	if err != nil {
		return err
	}
	res.Timeline = tl
	return nil
}

func (a *Assembler) subtitle(res *Result) error {
	cues, err := subtitles.Render(res.Segments, res.Timeline, a.cueStyle())
	if err != nil {
		return err
	}
	res.Cues = cues
	return nil
}

func (a *Assembler) cueStyle() recap.CueStyle {
	style := recap.DefaultCueStyle()
	s := a.cfg.Subtitles
	if s.Font != "" {
		style.Font = s.Font
	}
	if s.FontSize > 0 {
		style.FontSize = s.FontSize
	}
	if s.MarginV > 0 {
		style.MarginV = s.MarginV
	}
	if s.BackgroundOpacity > 0 {
		style.BackgroundOpacity = s.BackgroundOpacity
	}
	if s.MaxCharsPerLine > 0 {
		style.MaxCharsPerLine = s.MaxCharsPerLine
	}
	if s.MaxLinesPerCue > 0 {
		style.MaxLines = s.MaxLinesPerCue
	}
	return style
}

// mix picks the chapter mood and music and plans the audio track.
func (a *Assembler) mix(ctx context.Context, logger *slog.Logger, r *run, res *Result) error {
	res.Mood = a.chapterMood(r, res.Pages)
	music := a.musicTrack(ctx, logger, r, res.Mood)
	plan, err := audio.Mix(audio.Input{
		Timeline:      res.Timeline,
		Narration:     r.clips,
		Music:         music,
		AmbientVolume: a.cfg.Audio.AmbientVolume,
		DuckVolume:    a.cfg.Audio.DuckVolume,
		GapThreshold:  secondsToDuration(a.cfg.Audio.GapSeconds),
		Tolerance:     secondsToDuration(a.cfg.Audio.ToleranceSeconds),
	})
	if err != nil {
		return err
	}
	res.Mix = plan
	logger.Info("audio planned",
		logging.String("mood", res.Mood),
		logging.Int("narration_clips", len(plan.Narration)),
		logging.Bool("music", plan.HasMusic()),
		logging.Int("ducked_intervals", len(plan.Ducked)),
	)
	return nil
}

// chapterMood returns the override mood, else the most common content page
// mood (earliest page wins ties), else the configured default.
func (a *Assembler) chapterMood(r *run, pages []recap.Page) string {
	if m := normalizeMood(r.ch.Mood); m != "" {
		return m
	}
	counts := make(map[string]int)
	top := 0
	for _, p := range pages {
		if m := normalizeMood(r.moods[p.Index]); m != "" {
			counts[m]++
			top = max(top, counts[m])
		}
	}
	for _, p := range pages {
		if m := normalizeMood(r.moods[p.Index]); m != "" && counts[m] == top {
			return m
		}
	}
	return normalizeMood(a.cfg.Music.Mood)
}

func normalizeMood(mood string) string {
	return strings.ToLower(strings.TrimSpace(mood))
}

func (a *Assembler) musicTrack(ctx context.Context, logger *slog.Logger, r *run, mood string) string {
	if r.ch.Music != "" {
		return r.ch.Music
	}
	if !a.cfg.Music.Enabled || a.music == nil {
		return ""
	}
	path, err := a.music.Fetch(ctx, mood, filepath.Join(r.workDir, "music"))
	if err != nil {
		logging.WarnWithContext(logger, "background music unavailable", "music_degraded",
			logging.String("mood", mood),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check music.freesound_api_key or paths.music_dir"),
			logging.String(logging.FieldImpact, "video is narration-only"),
		)
		return ""
	}
	return path
}

// grade resolves video.grade against the chapter mood.
func (a *Assembler) grade(mood string) string {
	switch g := a.cfg.Video.Grade; g {
	case "":
		return ""
	case "auto":
		return mood
	default:
		return g
	}
}

// outputPath returns the chapter's final video path.
func (a *Assembler) outputPath(ch Chapter) string {
	if ch.OutputPath != "" {
		return ch.OutputPath
	}
	manga := textutil.SanitizeToken(ch.MangaID)
	return filepath.Join(a.cfg.Paths.OutputDir, manga,
		fmt.Sprintf("%s_ch%s.mp4", manga, textutil.SanitizeToken(ch.OrderKey())))
}

func (a *Assembler) encode(ctx context.Context, logger *slog.Logger, r *run, res *Result) error {
	job := encoder.Job{
		Timeline:     res.Timeline,
		Cues:         res.Cues,
		Mix:          res.Mix,
		Frame:        a.frame(),
		FPS:          a.cfg.Video.FPS,
		Codec:        a.cfg.Video.Codec,
		Preset:       a.cfg.Video.Preset,
		CRF:          a.cfg.Video.CRF,
		PadColor:     a.cfg.Video.PadColor,
		AudioBitrate: a.cfg.Video.AudioBitrate,
		Grade:        a.grade(res.Mood),
		Style:        a.cueStyle(),
		OutputPath:   a.outputPath(r.ch),
		WorkDir:      r.workDir,
		MinFreeBytes: uint64(max(a.cfg.Video.MinFreeMiB, 0)) << 20,
	}
	out, err := a.encoder.Encode(ctx, job)
	if err != nil {
		if errors.Is(err, services.ErrEncode) || ctx.Err() != nil {
			return err
		}
		return services.Wrap(services.ErrEncode, "pipeline", "encode", "", err)
	}
	res.Output = out

	if a.cfg.Subtitles.WriteSRT {
		r.srtPath = strings.TrimSuffix(out.Path, filepath.Ext(out.Path)) + ".srt"
		if err := writeSRT(r.srtPath, res.Cues); err != nil {
			logging.WarnWithContext(logger, "srt sidecar not written", "srt_failed",
				logging.String("path", r.srtPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output directory permissions"),
				logging.String(logging.FieldImpact, "captions remain burned into the video"),
			)
			r.srtPath = ""
		}
	}
	res.SRTPath = r.srtPath
	return nil
}

func writeSRT(path string, cues []recap.SubtitleCue) error {
	var buf bytes.Buffer
	if err := subtitles.WriteSRT(&buf, cues); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// cache records the chapter summary, and the manga context when this run
// created it.
func (a *Assembler) cache(ctx context.Context, logger *slog.Logger, r *run, res *Result) error {
	summary := recap.ChapterSummary{
		MangaID:       r.ch.MangaID,
		ChapterID:     r.ch.ChapterID,
		ChapterNumber: r.ch.ChapterNumber,
		SummaryText:   r.narration.SummaryText(),
		PageCount:     len(res.Pages),
		CreatedAt:     a.now().UTC(),
	}
	if err := summary.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "cache summary", "", err)
	}
	if r.newContext && r.mangaCtx != nil {
		if err := a.store.PutMangaContext(ctx, *r.mangaCtx); err != nil {
			if !errors.Is(err, services.ErrCacheUnavailable) {
				return err
			}
			a.warnCache(logger, "manga context not cached", err)
		}
	}
	if err := a.store.PutChapterSummary(ctx, summary); err != nil {
		return err
	}
	res.Summary = summary
	res.Cached = true
	return nil
}
