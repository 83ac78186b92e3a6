package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are not checked
// here because offline manifest runs need none; RequireLLM and friends are
// called by the commands that do.
func (c *Config) Validate() error {
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateMotion(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateSubtitles(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return nil
}

// RequireLLM reports a configuration error when no LLM API key is available.
func (c *Config) RequireLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'mangarecap config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("cache.backend must be \"file\" or \"sqlite\", got %q", c.Cache.Backend)
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		return errors.New("cache.dir must be set")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if err := ensurePositiveMap(map[string]int{
		"video.width":  c.Video.Width,
		"video.height": c.Video.Height,
		"video.fps":    c.Video.FPS,
	}); err != nil {
		return err
	}
	if c.Video.Width%2 != 0 || c.Video.Height%2 != 0 {
		return errors.New("video.width and video.height must be even")
	}
	if c.Video.CRF < 0 || c.Video.CRF > 51 {
		return errors.New("video.crf must be between 0 and 51")
	}
	if c.Video.MinFreeMiB < 0 {
		return errors.New("video.min_free_mib must be >= 0")
	}
	if !slices.Contains(validGrades, c.Video.Grade) {
		return fmt.Errorf("video.grade %q is not one of %s", c.Video.Grade, strings.Join(validGrades[1:], ", "))
	}
	return nil
}

var validGrades = []string{"", "auto", "tense", "action", "sad", "comedic", "romantic", "dark", "happy"}

func (c *Config) validateMotion() error {
	if c.Motion.ZoomMin < 1 {
		return errors.New("motion.zoom_min must be >= 1")
	}
	if c.Motion.ZoomMax < c.Motion.ZoomMin {
		return errors.New("motion.zoom_max must be >= motion.zoom_min")
	}
	if c.Motion.ZoomMax > 2 {
		return errors.New("motion.zoom_max must be <= 2")
	}
	return nil
}

func (c *Config) validateTiming() error {
	if c.Timing.MinPageSeconds <= 0 {
		return errors.New("timing.min_page_seconds must be positive")
	}
	if c.Timing.CharsPerSecond <= 0 {
		return errors.New("timing.chars_per_second must be positive")
	}
	return nil
}

func (c *Config) validateSubtitles() error {
	if err := ensurePositiveMap(map[string]int{
		"subtitles.max_chars_per_line": c.Subtitles.MaxCharsPerLine,
		"subtitles.max_lines_per_cue":  c.Subtitles.MaxLinesPerCue,
		"subtitles.font_size":          c.Subtitles.FontSize,
	}); err != nil {
		return err
	}
	if c.Subtitles.MarginV < 0 {
		return errors.New("subtitles.margin_v must be >= 0")
	}
	if c.Subtitles.BackgroundOpacity < 0 || c.Subtitles.BackgroundOpacity > 1 {
		return errors.New("subtitles.background_opacity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateAudio() error {
	for key, value := range map[string]float64{
		"audio.ambient_volume": c.Audio.AmbientVolume,
		"audio.duck_volume":    c.Audio.DuckVolume,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	if c.Audio.DuckVolume > c.Audio.AmbientVolume {
		return errors.New("audio.duck_volume must not exceed audio.ambient_volume")
	}
	if c.Audio.GapSeconds < 0 {
		return errors.New("audio.gap_seconds must be >= 0")
	}
	if c.Audio.ToleranceSeconds < 0 {
		return errors.New("audio.tolerance_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ClassifyConcurrency <= 0 {
		return errors.New("pipeline.classify_concurrency must be positive")
	}
	if c.Pipeline.ClassifyRatePerSecond < 0 {
		return errors.New("pipeline.classify_rate_per_second must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
