package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// ErrCacheUnavailable marks cache read/write failures. Callers degrade to
	// running without context.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrClassification marks a per-page classifier failure. The page is
	// treated as meta.
	ErrClassification      = errors.New("classification error")
	ErrNarrationSynthesis  = errors.New("narration synthesis error")
	ErrTimingInconsistency = errors.New("timing inconsistency")
	ErrAudioMix            = errors.New("audio mix error")
	ErrEncode              = errors.New("encode error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err should abort a chapter run. Cache and per-page
// classification failures degrade instead.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrCacheUnavailable), errors.Is(err, ErrClassification):
		return false
	default:
		return true
	}
}

// StageError is returned when a pipeline stage aborts a run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewStageError wraps err with the failing stage. A nil err returns nil.
func NewStageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var existing *StageError
	if errors.As(err, &existing) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

// FailedStage extracts the stage name from a StageError chain.
func FailedStage(err error) (string, bool) {
	var se *StageError
	if errors.As(err, &se) && se.Stage != "" {
		return se.Stage, true
	}
	return "", false
}

// Hint returns a short operator hint for a marker, used as error_hint in logs.
func Hint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCacheUnavailable):
		return "check cache.dir permissions and free space"
	case errors.Is(err, ErrClassification):
		return "page excluded as meta; verify llm settings"
	case errors.Is(err, ErrNarrationSynthesis):
		return "verify llm.api_key and llm.model"
	case errors.Is(err, ErrTimingInconsistency):
		return "narration segments do not match classified pages"
	case errors.Is(err, ErrAudioMix):
		return "narration audio and timeline disagree; re-run tts"
	case errors.Is(err, ErrEncode):
		return "inspect ffmpeg output and free disk space"
	case errors.Is(err, ErrConfiguration):
		return "run mangarecap config validate"
	case errors.Is(err, ErrExternalTool):
		return "run mangarecap deps"
	default:
		return "see error detail"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
