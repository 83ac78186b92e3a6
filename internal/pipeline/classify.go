package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"mangarecap/internal/fileutil"
	"mangarecap/internal/logging"
	"mangarecap/internal/recap"
	"mangarecap/internal/services"
)

// fetchAndClassify loads the chapter pages and classifies them concurrently.
// Results are re-joined in reading order.
func (a *Assembler) fetchAndClassify(ctx context.Context, logger *slog.Logger, r *run, res *Result) error {
	pages, err := a.pages.FetchPages(ctx, r.ch.ChapterID, filepath.Join(r.workDir, "pages"))
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return services.Wrap(services.ErrNotFound, "pipeline", "fetch pages", "page source returned no pages", nil)
	}
	logger.Info("pages fetched", logging.Int("page_count", len(pages)))

	classified := make([]recap.Page, len(pages))
	moods := make([]string, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, page := range pages {
		g.Go(func() error {
			if err := a.limiter.Wait(gctx); err != nil {
				return err
			}
			verdict := a.classifyPage(gctx, logger, page)
			classified[i] = verdict.Apply(page)
			if classified[i].IsContent() {
				moods[i] = verdict.Mood
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := recap.ValidatePages(classified); err != nil {
		return services.Wrap(services.ErrValidation, "pipeline", "validate pages", "", err)
	}
	for i, p := range classified {
		if moods[i] != "" {
			r.moods[p.Index] = moods[i]
		}
	}
	res.Pages = classified
	content := len(recap.ContentIndices(classified))
	logger.Info("pages classified",
		logging.Int("content_pages", content),
		logging.Int("meta_pages", len(classified)-content),
	)
	if content == 0 {
		return services.Wrap(services.ErrValidation, "pipeline", "classify", "chapter has no content pages", nil)
	}
	return nil
}

// classifyPage returns the verdict for one page. Failures are downgraded to
// meta; successful verdicts are memoized by image hash.
func (a *Assembler) classifyPage(ctx context.Context, logger *slog.Logger, page recap.Page) recap.Classification {
	key, hashErr := fileutil.HashFile(page.ImageRef)
	if hashErr == nil {
		if cached, ok := a.memo.Get(key); ok {
			if verdict, ok := cached.(recap.Classification); ok {
				logger.Debug("classification memo hit", logging.Int(logging.FieldPageIndex, page.Index))
				return verdict
			}
		}
	}

	verdict, err := a.classifier.Classify(ctx, page)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "page classification failed", "classification_failed",
				logging.Int(logging.FieldPageIndex, page.Index),
				logging.String("image", page.ImageRef),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(services.ErrClassification)),
				logging.String(logging.FieldImpact, "page excluded from narration"),
			)
		}
		return recap.Classification{Label: recap.LabelMeta}
	}
	if hashErr == nil {
		a.memo.SetDefault(key, verdict)
	}
	return verdict
}
