package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeProviders()
	c.normalizeAPIs()
	c.normalizeRetry()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.PromptCache.Path) == "" {
		c.PromptCache.Path = filepath.Join(c.Paths.CacheDir, "prompts.db")
	}
	if c.PromptCache.Path, err = expandPath(c.PromptCache.Path); err != nil {
		return fmt.Errorf("prompt_cache.path: %w", err)
	}
	if c.WhisperCPP.Model != "" {
		if c.WhisperCPP.Model, err = expandPath(c.WhisperCPP.Model); err != nil {
			return fmt.Errorf("whispercpp.model: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.WordsPerChunk <= 0 {
		c.Pipeline.WordsPerChunk = defaultWordsPerChunk
	}
	if c.Pipeline.PromptConcurrency <= 0 {
		c.Pipeline.PromptConcurrency = defaultPromptConcurrency
	}
	if c.Pipeline.FPS <= 0 {
		c.Pipeline.FPS = defaultFPS
	}
	c.Pipeline.Subtitles = strings.ToLower(strings.TrimSpace(c.Pipeline.Subtitles))
	if c.Pipeline.Subtitles == "" {
		c.Pipeline.Subtitles = defaultSubtitles
	}
	c.Pipeline.VideoFormat = strings.TrimSpace(c.Pipeline.VideoFormat)
	if c.Pipeline.VideoFormat == "" {
		c.Pipeline.VideoFormat = defaultVideoFormat
	}
	c.Style.Preset = strings.ToLower(strings.TrimSpace(c.Style.Preset))
	if c.Style.Preset == "" {
		c.Style.Preset = defaultStylePreset
	}
}

func (c *Config) normalizeProviders() {
	norm := func(v string) string {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			return defaultProvider
		}
		return v
	}
	c.Providers.Transcriber = norm(c.Providers.Transcriber)
	c.Providers.Translator = norm(c.Providers.Translator)
	c.Providers.Prompts = norm(c.Providers.Prompts)
}

func (c *Config) normalizeAPIs() {
	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	c.OpenAI.BaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAI.BaseURL), "/")
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = defaultOpenAIBaseURL
	}
	if c.OpenAI.TimeoutSeconds <= 0 {
		c.OpenAI.TimeoutSeconds = defaultOpenAITimeout
	}
	c.OpenRouter.APIKey = strings.TrimSpace(c.OpenRouter.APIKey)
	if strings.TrimSpace(c.OpenRouter.Model) == "" {
		c.OpenRouter.Model = defaultOpenRouterModel
	}
	if c.OpenRouter.TimeoutSeconds <= 0 {
		c.OpenRouter.TimeoutSeconds = defaultOpenRouterTimeout
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.BaseDelayMS < 0 {
		c.Retry.BaseDelayMS = 0
	}
	if c.Retry.MaxDelayMS <= 0 {
		c.Retry.MaxDelayMS = defaultRetryMaxDelayMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}
