package config

import (
	"errors"
	"fmt"

	"github.com/forPelevin/reelgen/internal/domain/composition"
	"github.com/forPelevin/reelgen/internal/domain/prompts"
)

// Validate ensures the configuration can drive a full pipeline run.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateProviders(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.MaxDurationSeconds < 0 {
		return errors.New("pipeline.max_duration_seconds must be >= 0")
	}
	if c.Pipeline.WordsPerChunk <= 0 {
		return errors.New("pipeline.words_per_chunk must be > 0")
	}
	if _, err := composition.ParseSubtitleMode(c.Pipeline.Subtitles); err != nil {
		return fmt.Errorf("pipeline.subtitles: %w", err)
	}
	if _, err := prompts.ParseFormat(c.Pipeline.VideoFormat); err != nil {
		return fmt.Errorf("pipeline.video_format: %w", err)
	}
	if !prompts.ValidPreset(c.Style.Preset) {
		return fmt.Errorf("style.preset: unknown preset %q (known: %v)", c.Style.Preset, prompts.Presets())
	}
	return nil
}

func (c *Config) validateProviders() error {
	needOpenRouter := false

	switch c.Providers.Transcriber {
	case "openai":
	case "whispercpp":
		if c.WhisperCPP.Model == "" {
			return errors.New("whispercpp.model is required when providers.transcriber = \"whispercpp\"")
		}
	default:
		return fmt.Errorf("providers.transcriber: unsupported value %q", c.Providers.Transcriber)
	}
	for name, v := range map[string]string{"providers.translator": c.Providers.Translator, "providers.prompts": c.Providers.Prompts} {
		switch v {
		case "openai":
		case "openrouter":
			needOpenRouter = true
		default:
			return fmt.Errorf("%s: unsupported value %q", name, v)
		}
	}

	// Images are always generated through OpenAI.
	if c.OpenAI.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/reelgen/config.toml"
		}
		return fmt.Errorf("openai.api_key is required. Set OPENAI_API_KEY env var or edit %s (create with 'reelgen config init')", defaultPath)
	}
	if needOpenRouter && c.OpenRouter.APIKey == "" {
		return errors.New("openrouter.api_key is required when a stage uses openrouter. Set OPENROUTER_API_KEY")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "text", "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
}
