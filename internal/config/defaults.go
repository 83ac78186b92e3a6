package config

const (
	defaultConfigPath            = "~/.config/mangarecap/config.toml"
	defaultWorkDir               = "~/.local/share/mangarecap/work"
	defaultOutputDir             = "~/Videos/mangarecap"
	defaultLogDir                = "~/.local/share/mangarecap/logs"
	defaultMusicDir              = "~/.local/share/mangarecap/music"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultCacheBackend          = "file"
	defaultCacheMemoryTTLSeconds = 1800
	defaultVideoWidth            = 1080
	defaultVideoHeight           = 1920
	defaultVideoFPS              = 30
	defaultVideoCodec            = "libx264"
	defaultVideoPreset           = "medium"
	defaultVideoCRF              = 23
	defaultPadColor              = "black"
	defaultAudioBitrate          = "192k"
	defaultMinFreeMiB            = 512
	defaultGrade                 = "auto"
	defaultZoomMin               = 1.08
	defaultZoomMax               = 1.12
	defaultMinPageSeconds        = 1.5
	defaultCharsPerSecond        = 15.0
	defaultMaxCharsPerLine       = 32
	defaultMaxLinesPerCue        = 2
	defaultSubtitleFont          = "Arial"
	defaultSubtitleFontSize      = 44
	defaultSubtitleMarginV       = 150
	defaultBackgroundOpacity     = 0.75
	defaultAmbientVolume         = 0.3
	defaultDuckVolume            = 0.08
	defaultGapSeconds            = 1.0
	defaultToleranceSeconds      = 0.3
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-2.5-flash"
	defaultLLMReferer            = "https://github.com/mangarecap/mangarecap"
	defaultLLMTitle              = "mangarecap"
	defaultLLMTimeoutSeconds     = 90
	defaultNarrationTargetWords  = 180
	defaultMangaDexBaseURL       = "https://api.mangadex.org"
	defaultMangaDexLanguage      = "en"
	defaultHTTPTimeoutSeconds    = 30
	defaultMusicMood             = "calm"
	defaultFreesoundURL          = "https://freesound.org/apiv2"
	defaultTTSBinary             = "edge-tts"
	defaultTTSVoice              = "en-US-GuyNeural"
	defaultTTSRate               = "+0%"
	defaultClassifyConcurrency   = 4
	defaultClassifyRate          = 2.0
	defaultPreviousSummaries     = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			MusicDir:  defaultMusicDir,
		},
		Cache: Cache{
			Backend:          defaultCacheBackend,
			Dir:              defaultCacheDir(),
			MemoryTTLSeconds: defaultCacheMemoryTTLSeconds,
		},
		Video: Video{
			Width:        defaultVideoWidth,
			Height:       defaultVideoHeight,
			FPS:          defaultVideoFPS,
			Codec:        defaultVideoCodec,
			Preset:       defaultVideoPreset,
			CRF:          defaultVideoCRF,
			PadColor:     defaultPadColor,
			AudioBitrate: defaultAudioBitrate,
			MinFreeMiB:   defaultMinFreeMiB,
			Grade:        defaultGrade,
		},
		Motion: Motion{
			ZoomMin: defaultZoomMin,
			ZoomMax: defaultZoomMax,
		},
		Timing: Timing{
			MinPageSeconds: defaultMinPageSeconds,
			CharsPerSecond: defaultCharsPerSecond,
		},
		Subtitles: Subtitles{
			MaxCharsPerLine:   defaultMaxCharsPerLine,
			MaxLinesPerCue:    defaultMaxLinesPerCue,
			Font:              defaultSubtitleFont,
			FontSize:          defaultSubtitleFontSize,
			MarginV:           defaultSubtitleMarginV,
			BackgroundOpacity: defaultBackgroundOpacity,
		},
		Audio: Audio{
			AmbientVolume:    defaultAmbientVolume,
			DuckVolume:       defaultDuckVolume,
			GapSeconds:       defaultGapSeconds,
			ToleranceSeconds: defaultToleranceSeconds,
		},
		LLM: LLM{
			BaseURL:         defaultLLMBaseURL,
			Model:           defaultLLMModel,
			Referer:         defaultLLMReferer,
			Title:           defaultLLMTitle,
			TimeoutSeconds:  defaultLLMTimeoutSeconds,
			NarrationTarget: defaultNarrationTargetWords,
		},
		MangaDex: MangaDex{
			BaseURL:        defaultMangaDexBaseURL,
			Language:       defaultMangaDexLanguage,
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
		},
		Music: Music{
			Enabled:        true,
			Mood:           defaultMusicMood,
			FreesoundURL:   defaultFreesoundURL,
			TimeoutSeconds: defaultHTTPTimeoutSeconds,
		},
		TTS: TTS{
			Enabled: true,
			Binary:  defaultTTSBinary,
			Voice:   defaultTTSVoice,
			Rate:    defaultTTSRate,
		},
		Pipeline: Pipeline{
			ClassifyConcurrency:   defaultClassifyConcurrency,
			ClassifyRatePerSecond: defaultClassifyRate,
			PreviousSummaries:     defaultPreviousSummaries,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
