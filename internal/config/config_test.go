package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/reelgen/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENROUTER_MODEL", "z-ai/glm-4.5-air:free")
	t.Setenv("OPENROUTER_ALLOWED_HOSTS", " proxy.internal , ,api.example ")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "reelgen", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.OpenAI.APIKey != "sk-test" {
		t.Fatalf("expected OpenAI key from env, got %q", cfg.OpenAI.APIKey)
	}
	if cfg.OpenRouter.Model != "z-ai/glm-4.5-air:free" {
		t.Fatalf("expected OpenRouter model from env, got %q", cfg.OpenRouter.Model)
	}
	if len(cfg.OpenRouter.AllowedHosts) != 2 || cfg.OpenRouter.AllowedHosts[0] != "proxy.internal" {
		t.Fatalf("unexpected allowed hosts: %q", cfg.OpenRouter.AllowedHosts)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempHome, ".cache", "reelgen") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.PromptCache.Path != filepath.Join(cfg.Paths.CacheDir, "prompts.db") {
		t.Fatalf("unexpected prompt cache path: %q", cfg.PromptCache.Path)
	}
	if cfg.Pipeline.WordsPerChunk != 20 || cfg.Pipeline.Subtitles != "none" || cfg.Pipeline.VideoFormat != "9:16" {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with key should validate: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "reelgen.toml")

	cfg := config.Default()
	cfg.OpenAI.APIKey = "from-file"
	cfg.Pipeline.Subtitles = "Both"
	cfg.Pipeline.WordsPerChunk = 12
	cfg.Style.Preset = "Anime"
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	got, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected file to be used, got %q exists=%v", resolved, exists)
	}
	if got.OpenAI.APIKey != "from-file" {
		t.Fatalf("file key should win over env, got %q", got.OpenAI.APIKey)
	}
	if got.Pipeline.Subtitles != "both" || got.Style.Preset != "anime" || got.Pipeline.WordsPerChunk != 12 {
		t.Fatalf("unexpected normalized values: %+v %+v", got.Pipeline, got.Style)
	}
	if err := got.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[pipeline]\nwords = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestValidate(t *testing.T) {
	base := func() config.Config {
		c := config.Default()
		c.OpenAI.APIKey = "sk"
		return c
	}
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*config.Config) {}},
		{name: "missing openai key", mutate: func(c *config.Config) { c.OpenAI.APIKey = "" }, wantErr: "openai.api_key"},
		{name: "bad subtitles", mutate: func(c *config.Config) { c.Pipeline.Subtitles = "fr" }, wantErr: "pipeline.subtitles"},
		{name: "bad format", mutate: func(c *config.Config) { c.Pipeline.VideoFormat = "4:3" }, wantErr: "pipeline.video_format"},
		{name: "bad preset", mutate: func(c *config.Config) { c.Style.Preset = "cubism" }, wantErr: "style.preset"},
		{name: "openrouter without key", mutate: func(c *config.Config) { c.Providers.Prompts = "openrouter" }, wantErr: "openrouter.api_key"},
		{name: "whispercpp without model", mutate: func(c *config.Config) { c.Providers.Transcriber = "whispercpp" }, wantErr: "whispercpp.model"},
		{name: "bad log format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load, exists=%v err=%v", exists, err)
	}
}
