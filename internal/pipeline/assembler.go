package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"mangarecap/internal/audio"
	"mangarecap/internal/config"
	"mangarecap/internal/logging"
	"mangarecap/internal/mangacache"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
	"mangarecap/internal/textutil"
)

// Assembler runs chapters through the stage machine. It is safe to run
// different chapters concurrently; the Cache Store serializes writes per
// manga.
type Assembler struct {
	cfg        *config.Config
	pages      PageSource
	classifier Classifier
	narrator   Narrator
	speech     SpeechSynthesizer
	music      MusicSource
	metadata   ContextSource
	prober     MediaProber
	encoder    Encoder
	store      mangacache.Store
	logger     *slog.Logger

	// memo holds classifications keyed by image SHA-256.
	memo        *gocache.Cache
	limiter     *rate.Limiter
	concurrency int

	now      func() time.Time
	newRunID func() string
}

// New validates the wiring and returns an Assembler.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) (*Assembler, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new assembler", "config is nil", nil)
	}
	var missing []string
	if deps.Pages == nil {
		missing = append(missing, "page source")
	}
	if deps.Classifier == nil {
		missing = append(missing, "classifier")
	}
	if deps.Narrator == nil {
		missing = append(missing, "narrator")
	}
	if deps.Prober == nil {
		missing = append(missing, "media prober")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new assembler",
			fmt.Sprintf("missing %v", missing), nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	concurrency := cfg.Pipeline.ClassifyConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	if cfg.Pipeline.ClassifyRatePerSecond > 0 {
		limit = rate.Limit(cfg.Pipeline.ClassifyRatePerSecond)
	}
	ttl := time.Duration(cfg.Cache.MemoryTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}

	return &Assembler{
		cfg:         cfg,
		pages:       deps.Pages,
		classifier:  deps.Classifier,
		narrator:    deps.Narrator,
		speech:      deps.Speech,
		music:       deps.Music,
		metadata:    deps.Context,
		prober:      deps.Prober,
		encoder:     deps.Encoder,
		store:       deps.Store,
		logger:      logging.NewComponentLogger(logger, "assembler"),
		memo:        gocache.New(ttl, 10*time.Minute),
		limiter:     rate.NewLimiter(limit, concurrency),
		concurrency: concurrency,
		now:         time.Now,
		newRunID:    uuid.NewString,
	}, nil
}

// run is the per-chapter working state carried between stages.
type run struct {
	ch      Chapter
	workDir string
	// moods holds the classifier mood per page index.
	moods      map[int]string
	narration  recap.NarrationResult
	mangaCtx   *recap.MangaContext
	newContext bool
	previous   []recap.ChapterSummary
	clips      []audio.Clip
	srtPath    string
}

// Run renders a chapter and records its summary. On failure the returned
// Result holds everything produced up to the failed stage and the error is a
// *services.StageError.
func (a *Assembler) Run(ctx context.Context, ch Chapter) (Result, error) {
	if a.encoder == nil || a.store == nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "pipeline", "run",
			"encoder and cache store are required to render", nil)
	}
	r, res, err := a.prepare(ctx, ch)
	if err != nil {
		return res, err
	}
	ctx = r.withIDs(ctx, res.RunID)

	if err := a.runStage(ctx, &res, StageMixed, func(ctx context.Context, logger *slog.Logger) error {
		return a.mix(ctx, logger, r, &res)
	}); err != nil {
		return res, err
	}
	if err := a.runStage(ctx, &res, StageEncoded, func(ctx context.Context, logger *slog.Logger) error {
		return a.encode(ctx, logger, r, &res)
	}); err != nil {
		return res, err
	}
	err = a.runStage(ctx, &res, StageCached, func(ctx context.Context, logger *slog.Logger) error {
		return a.cache(ctx, logger, r, &res)
	})
	if err != nil {
		if !errors.Is(err, services.ErrCacheUnavailable) || ctx.Err() != nil {
			return res, err
		}
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "chapter summary not cached", "cache_degraded",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.String(logging.FieldImpact, "next chapter narrates without this chapter's summary"),
		)
	}
	a.cleanup(ctx, r)
	return res, nil
}

// Plan runs the chapter through SUBTITLED without mixing, encoding or
// writing the cache.
func (a *Assembler) Plan(ctx context.Context, ch Chapter) (Result, error) {
	r, res, err := a.prepare(ctx, ch)
	if err != nil {
		return res, err
	}
	a.cleanup(r.withIDs(ctx, res.RunID), r)
	return res, nil
}

func (a *Assembler) prepare(ctx context.Context, ch Chapter) (*run, Result, error) {
	res := Result{RunID: a.newRunID()}
	if ch.MangaID == "" || ch.ChapterID == "" {
		return nil, res, services.Wrap(services.ErrValidation, "pipeline", "prepare", "manga and chapter ids are required", nil)
	}
	r := &run{
		ch:    ch,
		moods: make(map[int]string),
		workDir: filepath.Join(a.cfg.Paths.WorkDir,
			textutil.SanitizeToken(ch.MangaID),
			fmt.Sprintf("%s-%s", textutil.SanitizeToken(ch.ChapterID), shortID(res.RunID))),
	}
	ctx = r.withIDs(ctx, res.RunID)
	a.logger.Info("assembling chapter",
		logging.String(logging.FieldRunID, res.RunID),
		logging.String(logging.FieldMangaID, ch.MangaID),
		logging.String(logging.FieldChapterID, ch.ChapterID),
		logging.String("work_dir", r.workDir),
	)
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return nil, res, services.NewStageError(string(StageClassified),
			services.Wrap(services.ErrConfiguration, "pipeline", "create work dir", r.workDir, err))
	}

	steps := []struct {
		stage Stage
		fn    func(context.Context, *slog.Logger) error
	}{
		{StageClassified, func(ctx context.Context, logger *slog.Logger) error { return a.fetchAndClassify(ctx, logger, r, &res) }},
		{StageTimed, func(ctx context.Context, logger *slog.Logger) error { return a.allocate(ctx, logger, r, &res) }},
		{StageComposited, func(ctx context.Context, logger *slog.Logger) error { return a.compose(ctx, r, &res) }},
		{StageSubtitled, func(ctx context.Context, logger *slog.Logger) error { return a.subtitle(&res) }},
	}
	for _, step := range steps {
		if err := a.runStage(ctx, &res, step.stage, step.fn); err != nil {
			return r, res, err
		}
	}
	return r, res, nil
}

func (r *run) withIDs(ctx context.Context, runID string) context.Context {
	ctx = services.WithRunID(ctx, runID)
	return services.WithChapter(ctx, r.ch.MangaID, r.ch.ChapterID)
}

// cleanup removes the work directory unless the config keeps it.
func (a *Assembler) cleanup(ctx context.Context, r *run) {
	if a.cfg.Pipeline.KeepWorkDir || r == nil || r.workDir == "" {
		return
	}
	if err := os.RemoveAll(r.workDir); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "work dir cleanup failed", "cleanup_failed",
			logging.String("work_dir", r.workDir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the directory manually"),
			logging.String(logging.FieldImpact, "disk space is not reclaimed"),
		)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
