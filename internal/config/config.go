package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working, output and auxiliary directories.
type Paths struct {
	WorkDir   string `toml:"work_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	MusicDir  string `toml:"music_dir"`
}

// Cache selects and configures the manga context/summary store.
type Cache struct {
	Backend          string `toml:"backend"`
	Dir              string `toml:"dir"`
	MemoryTTLSeconds int    `toml:"memory_ttl_seconds"`
}

// Video contains output frame and encoder settings.
type Video struct {
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	FPS          int    `toml:"fps"`
	Codec        string `toml:"codec"`
	Preset       string `toml:"preset"`
	CRF          int    `toml:"crf"`
	PadColor     string `toml:"pad_color"`
	AudioBitrate string `toml:"audio_bitrate"`
	MinFreeMiB   int    `toml:"min_free_mib"`
	// Grade applies a fixed color grade for a mood; "auto" uses the
	// chapter's dominant page mood and "" disables grading.
	Grade string `toml:"grade"`
}

// Motion bounds the Ken Burns zoom factor.
type Motion struct {
	ZoomMin float64 `toml:"zoom_min"`
	ZoomMax float64 `toml:"zoom_max"`
}

// Timing contains page duration rules.
type Timing struct {
	MinPageSeconds float64 `toml:"min_page_seconds"`
	CharsPerSecond float64 `toml:"chars_per_second"`
}

// Subtitles contains caption wrapping and style settings.
type Subtitles struct {
	MaxCharsPerLine   int     `toml:"max_chars_per_line"`
	MaxLinesPerCue    int     `toml:"max_lines_per_cue"`
	Font              string  `toml:"font"`
	FontSize          int     `toml:"font_size"`
	MarginV           int     `toml:"margin_v"`
	BackgroundOpacity float64 `toml:"background_opacity"`
	WriteSRT          bool    `toml:"write_srt"`
}

// Audio contains music ducking and narration sync settings.
type Audio struct {
	AmbientVolume    float64 `toml:"ambient_volume"`
	DuckVolume       float64 `toml:"duck_volume"`
	GapSeconds       float64 `toml:"gap_seconds"`
	ToleranceSeconds float64 `toml:"tolerance_seconds"`
}

// LLM contains OpenRouter connection settings used by the classifier and
// narrator.
type LLM struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	NarrationModel  string `toml:"narration_model"`
	Referer         string `toml:"referer"`
	Title           string `toml:"title"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	NarrationTarget int    `toml:"narration_target_words"`
}

// MangaDex contains page source settings.
type MangaDex struct {
	BaseURL        string `toml:"base_url"`
	DataSaver      bool   `toml:"data_saver"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Music contains background music lookup settings.
type Music struct {
	Enabled         bool   `toml:"enabled"`
	Mood            string `toml:"mood"`
	FreesoundAPIKey string `toml:"freesound_api_key"`
	FreesoundURL    string `toml:"freesound_url"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// TTS contains speech synthesis settings.
type TTS struct {
	Enabled bool   `toml:"enabled"`
	Binary  string `toml:"binary"`
	Voice   string `toml:"voice"`
	Rate    string `toml:"rate"`
}

// Pipeline contains assembler concurrency and context settings.
type Pipeline struct {
	ClassifyConcurrency   int     `toml:"classify_concurrency"`
	ClassifyRatePerSecond float64 `toml:"classify_rate_per_second"`
	PreviousSummaries     int     `toml:"previous_summaries"`
	KeepWorkDir           bool    `toml:"keep_work_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for mangarecap.
//
// Configuration sections by subsystem:
//   - Paths: working, output, log and local music directories
//   - Cache: manga context and chapter summary store
//   - Video, Motion, Timing, Subtitles, Audio: assembly engine knobs
//   - LLM: page classification and narration via OpenRouter
//   - MangaDex: chapter page source
//   - Music: local music directory and Freesound fallback
//   - TTS: per-segment narration audio
//   - Pipeline: classification fan-out and prior-chapter context
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Cache     Cache     `toml:"cache"`
	Video     Video     `toml:"video"`
	Motion    Motion    `toml:"motion"`
	Timing    Timing    `toml:"timing"`
	Subtitles Subtitles `toml:"subtitles"`
	Audio     Audio     `toml:"audio"`
	LLM       LLM       `toml:"llm"`
	MangaDex  MangaDex  `toml:"mangadex"`
	Music     Music     `toml:"music"`
	TTS       TTS       `toml:"tts"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mangarecap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work, output and log directories. The music
// directory is optional and only created on a best-effort basis.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.MusicDir) != "" {
		_ = os.MkdirAll(c.Paths.MusicDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media probing.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// TTSBinary returns the speech synthesis executable.
func (c *Config) TTSBinary() string {
	if b := strings.TrimSpace(c.TTS.Binary); b != "" {
		return b
	}
	return defaultTTSBinary
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "mangarecap", "manga_cache")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/mangarecap/manga_cache"
	}
	return filepath.Join(home, ".cache", "mangarecap", "manga_cache")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	redacted := *c
	if redacted.LLM.APIKey != "" {
		redacted.LLM.APIKey = "***"
	}
	if redacted.Music.FreesoundAPIKey != "" {
		redacted.Music.FreesoundAPIKey = "***"
	}
	return toml.Marshal(redacted)
}

// LLMConfig contains the connection settings for one LLM use.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the classification LLM connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}

// NarrationLLM returns the narration LLM settings. Falls back to the
// classification model when narration_model is not set.
func (c *Config) NarrationLLM() LLMConfig {
	cfg := c.GetLLM()
	if model := strings.TrimSpace(c.LLM.NarrationModel); model != "" {
		cfg.Model = model
	}
	return cfg
}
