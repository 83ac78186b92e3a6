package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeVideo()
	c.normalizeLLM()
	c.normalizeMangaDex()
	c.normalizeMusic()
	c.normalizeTTS()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.MusicDir, err = expandPath(c.Paths.MusicDir); err != nil {
		return fmt.Errorf("paths.music_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if c.Cache.MemoryTTLSeconds < 0 {
		c.Cache.MemoryTTLSeconds = 0
	}
	return nil
}

func (c *Config) normalizeVideo() {
	c.Video.Codec = strings.TrimSpace(c.Video.Codec)
	if c.Video.Codec == "" {
		c.Video.Codec = defaultVideoCodec
	}
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	if c.Video.Preset == "" {
		c.Video.Preset = defaultVideoPreset
	}
	c.Video.PadColor = strings.TrimSpace(c.Video.PadColor)
	if c.Video.PadColor == "" {
		c.Video.PadColor = defaultPadColor
	}
	c.Video.AudioBitrate = strings.TrimSpace(c.Video.AudioBitrate)
	if c.Video.AudioBitrate == "" {
		c.Video.AudioBitrate = defaultAudioBitrate
	}
	c.Video.Grade = strings.ToLower(strings.TrimSpace(c.Video.Grade))
	c.Subtitles.Font = strings.TrimSpace(c.Subtitles.Font)
	if c.Subtitles.Font == "" {
		c.Subtitles.Font = defaultSubtitleFont
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.NarrationModel = strings.TrimSpace(c.LLM.NarrationModel)
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.NarrationTarget <= 0 {
		c.LLM.NarrationTarget = defaultNarrationTargetWords
	}
}

func (c *Config) normalizeMangaDex() {
	c.MangaDex.BaseURL = strings.TrimRight(strings.TrimSpace(c.MangaDex.BaseURL), "/")
	if c.MangaDex.BaseURL == "" {
		c.MangaDex.BaseURL = defaultMangaDexBaseURL
	}
	if c.MangaDex.TimeoutSeconds <= 0 {
		c.MangaDex.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
}

func (c *Config) normalizeMusic() {
	c.Music.Mood = strings.ToLower(strings.TrimSpace(c.Music.Mood))
	if c.Music.Mood == "" {
		c.Music.Mood = defaultMusicMood
	}
	c.Music.FreesoundAPIKey = strings.TrimSpace(c.Music.FreesoundAPIKey)
	if c.Music.FreesoundAPIKey == "" {
		if value, ok := os.LookupEnv("FREESOUND_API_KEY"); ok {
			c.Music.FreesoundAPIKey = strings.TrimSpace(value)
		}
	}
	c.Music.FreesoundURL = strings.TrimRight(strings.TrimSpace(c.Music.FreesoundURL), "/")
	if c.Music.FreesoundURL == "" {
		c.Music.FreesoundURL = defaultFreesoundURL
	}
	if c.Music.TimeoutSeconds <= 0 {
		c.Music.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
}

func (c *Config) normalizeTTS() {
	c.TTS.Binary = strings.TrimSpace(c.TTS.Binary)
	if c.TTS.Binary == "" {
		c.TTS.Binary = defaultTTSBinary
	}
	c.TTS.Voice = strings.TrimSpace(c.TTS.Voice)
	if c.TTS.Voice == "" {
		c.TTS.Voice = defaultTTSVoice
	}
	c.TTS.Rate = strings.TrimSpace(c.TTS.Rate)
	if c.TTS.Rate == "" {
		c.TTS.Rate = defaultTTSRate
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.ClassifyConcurrency <= 0 {
		c.Pipeline.ClassifyConcurrency = defaultClassifyConcurrency
	}
	if c.Pipeline.PreviousSummaries < 0 {
		c.Pipeline.PreviousSummaries = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
