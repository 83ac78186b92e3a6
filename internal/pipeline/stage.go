package pipeline

import (
	"context"
	"log/slog"
	"time"

	"mangarecap/internal/logging"
	"mangarecap/internal/services"
)

// runStage executes fn as the attempt to reach target. On success the result
// advances to target; on failure the error is wrapped in a StageError and the
// result keeps the last reached stage.
func (a *Assembler) runStage(ctx context.Context, res *Result, target Stage, fn func(ctx context.Context, logger *slog.Logger) error) error {
	stageCtx := services.WithStage(ctx, string(target))
	logger := logging.WithContext(stageCtx, a.logger)
	logger.Debug(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("from", string(res.Stage)),
	)
	started := time.Now()

	if err := fn(stageCtx, logger); err != nil {
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.String(logging.FieldErrorHint, services.Hint(err)),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return services.NewStageError(string(target), err)
	}
	if err := ctx.Err(); err != nil {
		return services.NewStageError(string(target), err)
	}

	res.Stage = target
	logger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
	)
	return nil
}
