package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and cache locations.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// Pipeline contains the reel generation settings.
type Pipeline struct {
	MaxDurationSeconds int    `toml:"max_duration_seconds"`
	WordsPerChunk      int    `toml:"words_per_chunk"`
	Subtitles          string `toml:"subtitles"`
	VideoFormat        string `toml:"video_format"`
	PromptConcurrency  int    `toml:"prompt_concurrency"`
	FPS                int    `toml:"fps"`
}

// Style decorates image prompts.
type Style struct {
	Preset           string `toml:"preset"`
	PositiveKeywords string `toml:"positive_keywords"`
	NegativeKeywords string `toml:"negative_keywords"`
	ArtistInfluences string `toml:"artist_influences"`
}

// Providers selects the backend for each AI stage.
type Providers struct {
	Transcriber string `toml:"transcriber"` // openai | whispercpp
	Translator  string `toml:"translator"`  // openai | openrouter
	Prompts     string `toml:"prompts"`     // openai | openrouter
}

// OpenAI contains OpenAI API settings.
type OpenAI struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	TranscribeModel string `toml:"transcribe_model"`
	TranslateModel  string `toml:"translate_model"`
	PromptModel     string `toml:"prompt_model"`
	ImageModel      string `toml:"image_model"`
	ImageQuality    string `toml:"image_quality"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// OpenRouter contains OpenRouter chat completion settings.
type OpenRouter struct {
	APIKey         string   `toml:"api_key"`
	BaseURL        string   `toml:"base_url"`
	Model          string   `toml:"model"`
	AllowedHosts   []string `toml:"allowed_hosts"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// WhisperCPP contains settings for the local whisper.cpp transcriber.
type WhisperCPP struct {
	Bin   string `toml:"bin"`
	Model string `toml:"model"`
}

// Tools contains external binary locations.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	YtDlp   string `toml:"ytdlp"`
}

// Retry configures the shared retry policy for upstream calls.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMS int `toml:"base_delay_ms"`
	MaxDelayMS  int `toml:"max_delay_ms"`
}

// PromptCache configures the on-disk prompt cache.
type PromptCache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the full reelgen configuration.
type Config struct {
	Paths       Paths       `toml:"paths"`
	Pipeline    Pipeline    `toml:"pipeline"`
	Style       Style       `toml:"style"`
	Providers   Providers   `toml:"providers"`
	OpenAI      OpenAI      `toml:"openai"`
	OpenRouter  OpenRouter  `toml:"openrouter"`
	WhisperCPP  WhisperCPP  `toml:"whispercpp"`
	Tools       Tools       `toml:"tools"`
	Retry       Retry       `toml:"retry"`
	PromptCache PromptCache `toml:"prompt_cache"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/reelgen/config.toml")
}

// Load reads configuration from path, or from the default locations when
// path is empty, then applies environment fallbacks and normalization.
// It returns the resolved path and whether the file existed. Validation is
// left to the caller because not every command needs credentials.
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
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)
	if err := cfg.normalize(); err != nil {
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

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("reelgen.toml")
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

// applyEnv fills empty credentials and endpoints from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	fill(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	fill(&c.OpenRouter.APIKey, "OPENROUTER_API_KEY")
	if v, ok := lookup("OPENROUTER_MODEL"); ok && strings.TrimSpace(v) != "" {
		c.OpenRouter.Model = strings.TrimSpace(v)
	}
	if v, ok := lookup("OPENROUTER_BASE_URL"); ok && strings.TrimSpace(v) != "" {
		c.OpenRouter.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("OPENROUTER_ALLOWED_HOSTS"); ok && len(c.OpenRouter.AllowedHosts) == 0 {
		for _, h := range strings.Split(v, ",") {
			if h = strings.TrimSpace(h); h != "" {
				c.OpenRouter.AllowedHosts = append(c.OpenRouter.AllowedHosts, h)
			}
		}
	}
}

// MaxDuration is the audio length kept from the source.
func (c *Config) MaxDuration() time.Duration {
	return time.Duration(c.Pipeline.MaxDurationSeconds) * time.Second
}

func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

func (c *Config) OpenRouterTimeout() time.Duration {
	return time.Duration(c.OpenRouter.TimeoutSeconds) * time.Second
}

// CreateSample writes the commented sample configuration to path.
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

// ExpandPath resolves ~ and relative paths to an absolute path.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
