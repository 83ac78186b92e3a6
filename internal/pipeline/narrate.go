package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mangarecap/internal/audio"
	"mangarecap/internal/logging"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
	"mangarecap/internal/timing"
)

// allocate scripts the chapter, measures or synthesizes narration audio and
// builds the timeline.
func (a *Assembler) allocate(ctx context.Context, logger *slog.Logger, r *run, res *Result) error {
	a.loadContext(ctx, logger, r)

	segments, err := a.narrate(ctx, logger, r, res.Pages)
	if err != nil {
		return err
	}

	in := timing.Input{
		Pages:           res.Pages,
		Segments:        segments,
		MinPageDuration: secondsToDuration(a.cfg.Timing.MinPageSeconds),
		CharsPerSecond:  a.cfg.Timing.CharsPerSecond,
	}
	if err := a.narrationAudio(ctx, logger, r, segments, &in); err != nil {
		return err
	}
	tl, err := timing.Allocate(in)
	if err != nil {
		return err
	}
	res.Segments = segments
	res.TimingSource = in.Source()
	res.Timeline = tl
	logger.Info("timeline allocated",
		logging.String("timing_source", string(in.Source())),
		logging.Int("segments", len(segments)),
		logging.Int("displayed_pages", len(tl.Plans)),
		logging.Seconds("total_seconds", tl.Total),
		logging.Seconds("extension_seconds", tl.Extension),
	)
	return nil
}

// loadContext reads the manga context and prior chapter summaries. Cache
// failures degrade to narrating without context. A context built for a manga
// seen for the first time is only persisted when the run reaches CACHED.
func (a *Assembler) loadContext(ctx context.Context, logger *slog.Logger, r *run) {
	if a.store == nil {
		return
	}
	mc, ok, err := a.store.GetMangaContext(ctx, r.ch.MangaID)
	if err != nil {
		a.warnCache(logger, "manga context unavailable", err)
		return
	}
	if !ok {
		mc, ok = a.buildContext(ctx, logger, r.ch)
		r.newContext = ok
	}
	if ok {
		r.mangaCtx = &mc
	}

	limit := a.cfg.Pipeline.PreviousSummaries
	if limit <= 0 {
		return
	}
	previous, err := a.store.PreviousSummaries(ctx, r.ch.MangaID, r.ch.OrderKey(), limit)
	if err != nil {
		a.warnCache(logger, "previous chapter summaries unavailable", err)
		return
	}
	r.previous = previous
	logger.Debug("narration context loaded",
		logging.Bool("has_context", r.mangaCtx != nil),
		logging.Bool("new_context", r.newContext),
		logging.Int("previous_chapters", len(previous)),
	)
}

func (a *Assembler) buildContext(ctx context.Context, logger *slog.Logger, ch Chapter) (recap.MangaContext, bool) {
	if a.metadata != nil {
		mc, err := a.metadata.MangaContext(ctx, ch.MangaID)
		if err == nil {
			mc.MangaID = ch.MangaID
			mc.LastUpdated = a.now().UTC()
			return mc, true
		}
		logging.WarnWithContext(logger, "manga metadata lookup failed", "context_degraded",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check mangadex settings"),
			logging.String(logging.FieldImpact, "context built from chapter metadata"),
		)
	}
	if strings.TrimSpace(ch.Title) == "" && strings.TrimSpace(ch.Synopsis) == "" && len(ch.Genres) == 0 {
		return recap.MangaContext{}, false
	}
	return recap.MangaContext{
		MangaID:     ch.MangaID,
		Title:       strings.TrimSpace(ch.Title),
		Synopsis:    strings.TrimSpace(ch.Synopsis),
		Genres:      ch.Genres,
		LastUpdated: a.now().UTC(),
	}, true
}

func (a *Assembler) warnCache(logger *slog.Logger, msg string, err error) {
	logging.WarnWithContext(logger, msg, "cache_degraded",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Hint(services.ErrCacheUnavailable)),
		logging.String(logging.FieldImpact, "narration runs without prior context"),
	)
}

// narrate asks the narrator for a script and validates it against the
// classified pages.
func (a *Assembler) narrate(ctx context.Context, logger *slog.Logger, r *run, pages []recap.Page) ([]recap.NarrationSegment, error) {
	content := make([]recap.Page, 0, len(pages))
	for _, p := range pages {
		if p.IsContent() {
			content = append(content, p)
		}
	}
	req := recap.NarrationRequest{
		MangaID:       r.ch.MangaID,
		ChapterID:     r.ch.ChapterID,
		ChapterNumber: r.ch.ChapterNumber,
		Context:       r.mangaCtx,
		Previous:      r.previous,
		Pages:         content,
		TargetWords:   a.cfg.LLM.NarrationTarget,
	}
	result, err := a.narrator.Narrate(ctx, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, services.ErrNarrationSynthesis) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrNarrationSynthesis, "pipeline", "narrate", "", err)
	}
	if len(result.Segments) == 0 {
		return nil, services.Wrap(services.ErrNarrationSynthesis, "pipeline", "narrate", "narrator returned no segments", nil)
	}

	segments := make([]recap.NarrationSegment, len(result.Segments))
	for i, seg := range result.Segments {
		seg.Index = i
		seg.Text = strings.TrimSpace(seg.Text)
		segments[i] = seg
	}
	segments, dropped := recap.RestrictToContent(pages, segments)
	if len(dropped) > 0 {
		logging.WarnWithContext(logger, "narration referenced non-content pages", "narration_pages_dropped",
			logging.String("pages", fmt.Sprint(dropped)),
			logging.String(logging.FieldErrorHint, "check page classification"),
			logging.String(logging.FieldImpact, "segments moved to neighboring pages"),
		)
	}
	segments, attached := recap.AttachUncoveredPages(pages, segments)
	if len(attached) > 0 {
		logger.Info("attached unnarrated pages", logging.Args(append(
			logging.DecisionAttrs("page_attachment", fmt.Sprint(attached), "pages not referenced by any segment"),
			logging.String(logging.FieldEventType, "pages_attached"),
		)...)...)
	}
	if err := recap.ValidateSegments(pages, segments); err != nil {
		return nil, services.Wrap(services.ErrNarrationSynthesis, "pipeline", "validate narration", "", err)
	}
	result.Segments = segments
	r.narration = result
	return segments, nil
}

// narrationAudio fills the timing input from prerecorded audio, synthesized
// speech or nothing, in that order of preference.
func (a *Assembler) narrationAudio(ctx context.Context, logger *slog.Logger, r *run, segments []recap.NarrationSegment, in *timing.Input) error {
	r.clips = nil
	switch {
	case len(r.ch.SegmentAudio) > 0:
		if len(r.ch.SegmentAudio) != len(segments) {
			return services.Wrap(services.ErrTimingInconsistency, "pipeline", "segment audio",
				fmt.Sprintf("%d clips for %d segments", len(r.ch.SegmentAudio), len(segments)), nil)
		}
		for i, path := range r.ch.SegmentAudio {
			d, err := a.prober.AudioDuration(ctx, path)
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "pipeline", "measure segment audio", path, err)
			}
			r.clips = append(r.clips, audio.Clip{Path: path, Duration: d, SegmentIndex: i})
			in.SegmentDurations = append(in.SegmentDurations, d)
		}
	case r.ch.NarrationAudio != "":
		d, err := a.prober.AudioDuration(ctx, r.ch.NarrationAudio)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "pipeline", "measure narration audio", r.ch.NarrationAudio, err)
		}
		r.clips = []audio.Clip{{Path: r.ch.NarrationAudio, Duration: d, SegmentIndex: audio.WholeTrack}}
		in.AudioDuration = d
	case a.speech != nil:
		clips, durations, err := a.synthesize(ctx, r, segments)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.WarnWithContext(logger, "speech synthesis failed", "tts_degraded",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run mangarecap deps"),
				logging.String(logging.FieldImpact, "video has no narration audio; timing is estimated"),
			)
			return nil
		}
		r.clips = clips
		in.SegmentDurations = durations
	}
	return nil
}

func (a *Assembler) synthesize(ctx context.Context, r *run, segments []recap.NarrationSegment) ([]audio.Clip, []time.Duration, error) {
	dir := filepath.Join(r.workDir, "narration")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	clips := make([]audio.Clip, 0, len(segments))
	durations := make([]time.Duration, 0, len(segments))
	for _, seg := range segments {
		out := filepath.Join(dir, fmt.Sprintf("segment_%03d.mp3", seg.Index))
		d, err := a.speech.Synthesize(ctx, seg, out)
		if err != nil {
			return nil, nil, fmt.Errorf("segment %d: %w", seg.Index, err)
		}
		clips = append(clips, audio.Clip{Path: out, Duration: d, SegmentIndex: seg.Index})
		durations = append(durations, d)
	}
	return clips, durations, nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
