package config

const (
	defaultOutputDir          = "out"
	defaultCacheDir           = "~/.cache/reelgen"
	defaultMaxDurationSeconds = 60
	defaultWordsPerChunk      = 20
	defaultSubtitles          = "none"
	defaultVideoFormat        = "9:16"
	defaultPromptConcurrency  = 1
	defaultFPS                = 30
	defaultStylePreset        = "default"
	defaultProvider           = "openai"
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultTranscribeModel    = "whisper-1"
	defaultTranslateModel     = "gpt-4o"
	defaultPromptModel        = "gpt-4o-mini"
	defaultImageModel         = "dall-e-3"
	defaultImageQuality       = "standard"
	defaultOpenAITimeout      = 120
	defaultOpenRouterBaseURL  = "https://openrouter.ai"
	defaultOpenRouterModel    = "openai/gpt-4o-mini"
	defaultOpenRouterTimeout  = 90
	defaultWhisperBin         = "whisper-cli"
	defaultFFmpeg             = "ffmpeg"
	defaultFFprobe            = "ffprobe"
	defaultYtDlp              = "yt-dlp"
	defaultRetryAttempts      = 4
	defaultRetryBaseDelayMS   = 1000
	defaultRetryMaxDelayMS    = 10000
	defaultLogLevel           = "info"
	defaultLogFormat          = "auto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			CacheDir:  defaultCacheDir,
		},
		Pipeline: Pipeline{
			MaxDurationSeconds: defaultMaxDurationSeconds,
			WordsPerChunk:      defaultWordsPerChunk,
			Subtitles:          defaultSubtitles,
			VideoFormat:        defaultVideoFormat,
			PromptConcurrency:  defaultPromptConcurrency,
			FPS:                defaultFPS,
		},
		Style: Style{Preset: defaultStylePreset},
		Providers: Providers{
			Transcriber: defaultProvider,
			Translator:  defaultProvider,
			Prompts:     defaultProvider,
		},
		OpenAI: OpenAI{
			BaseURL:         defaultOpenAIBaseURL,
			TranscribeModel: defaultTranscribeModel,
			TranslateModel:  defaultTranslateModel,
			PromptModel:     defaultPromptModel,
			ImageModel:      defaultImageModel,
			ImageQuality:    defaultImageQuality,
			TimeoutSeconds:  defaultOpenAITimeout,
		},
		OpenRouter: OpenRouter{
			BaseURL:        defaultOpenRouterBaseURL,
			Model:          defaultOpenRouterModel,
			TimeoutSeconds: defaultOpenRouterTimeout,
		},
		WhisperCPP: WhisperCPP{Bin: defaultWhisperBin},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
			YtDlp:   defaultYtDlp,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
			MaxDelayMS:  defaultRetryMaxDelayMS,
		},
		PromptCache: PromptCache{Enabled: true},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
