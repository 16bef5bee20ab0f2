package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/reelgen/internal/config"
	"github.com/forPelevin/reelgen/internal/domain/composition"
	"github.com/forPelevin/reelgen/internal/domain/prompts"
	"github.com/forPelevin/reelgen/internal/logging"
	"github.com/forPelevin/reelgen/internal/ports"
	"github.com/forPelevin/reelgen/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/reelgen/internal/ports/adapters/openai"
	"github.com/forPelevin/reelgen/internal/ports/adapters/openrouter"
	"github.com/forPelevin/reelgen/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/reelgen/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/reelgen/internal/promptcache"
	"github.com/forPelevin/reelgen/internal/retry"
	"github.com/forPelevin/reelgen/internal/types"
	"github.com/forPelevin/reelgen/internal/usecase"
)

const (
	ManifestFile = "manifest.json"
	lockFile     = ".lock"
)

// Options are the per-run settings that do not live in the config file.
type Options struct {
	SourceURL string
	// ResumeDir continues an earlier run in place instead of creating a new one.
	ResumeDir       string
	SkipImages      bool
	SkipCompose     bool
	StopAfterScenes bool
	Logger          *slog.Logger
}

type Result struct {
	RunDir             string
	Manifest           types.Manifest
	StoppedAfterScenes bool
}

// Validate checks the config together with the run options.
func Validate(cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if opts.ResumeDir == "" {
		if err := validateSourceURL(opts.SourceURL); err != nil {
			return err
		}
	} else {
		info, err := os.Stat(opts.ResumeDir)
		if err != nil {
			return fmt.Errorf("stat resume dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("resume dir %s is not a directory", opts.ResumeDir)
		}
		if opts.SourceURL != "" {
			if err := validateSourceURL(opts.SourceURL); err != nil {
				return err
			}
		}
	}
	if usesOpenRouter(cfg) {
		return openrouter.ValidateBaseURL(cfg.OpenRouter.BaseURL, cfg.OpenRouter.AllowedHosts)
	}
	return nil
}

func validateSourceURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("source url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse source url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source url %q: absolute http(s) URL is required", raw)
	}
	return nil
}

func usesOpenRouter(cfg *config.Config) bool {
	return cfg.Providers.Translator == "openrouter" || cfg.Providers.Prompts == "openrouter"
}

func Run(ctx context.Context, cfg *config.Config, opts Options) (Result, error) {
	if err := Validate(cfg, opts); err != nil {
		return Result{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	mode, err := composition.ParseSubtitleMode(cfg.Pipeline.Subtitles)
	if err != nil {
		return Result{}, err
	}
	format, err := prompts.ParseFormat(cfg.Pipeline.VideoFormat)
	if err != nil {
		return Result{}, err
	}

	runDir := opts.ResumeDir
	resume := runDir != ""
	if !resume {
		runDir = buildRunOutDir(cfg.Paths.OutputDir, opts.SourceURL, time.Now().UTC())
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return Result{}, err
	}

	lock := flock.New(filepath.Join(runDir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return Result{}, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return Result{}, fmt.Errorf("run dir %s is in use by another reelgen process", runDir)
	}
	defer func() { _ = lock.Unlock() }()

	runID := uuid.NewString()
	source := opts.SourceURL
	if resume {
		if prev, err := readManifest(runDir); err == nil {
			if prev.RunID != "" {
				runID = prev.RunID
			}
			if source == "" {
				source = prev.Source
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("previous manifest unreadable", "error", err)
		}
	}
	logger = logging.WithRunID(logger, runID)
	logger.Info("run started", "run_dir", runDir, "resume", resume, "source", source)

	deps, closeDeps := buildDeps(cfg, logger)
	defer closeDeps()

	uc := usecase.New(deps)
	res, runErr := uc.Run(ctx, usecase.Input{
		SourceURL:     source,
		RunDir:        runDir,
		MaxDuration:   cfg.MaxDuration(),
		WordsPerChunk: cfg.Pipeline.WordsPerChunk,
		Subtitles:     mode,
		Format:        format,
		Style: prompts.Style{
			Preset:           cfg.Style.Preset,
			PositiveKeywords: cfg.Style.PositiveKeywords,
			NegativeKeywords: cfg.Style.NegativeKeywords,
			Artists:          cfg.Style.ArtistInfluences,
		},
		PromptConcurrency: cfg.Pipeline.PromptConcurrency,
		FPS:               cfg.Pipeline.FPS,
		SkipImages:        opts.SkipImages,
		SkipCompose:       opts.SkipCompose,
		StopAfterScenes:   opts.StopAfterScenes,
		Resume:            resume,
	})

	m := res.Manifest
	m.RunID = runID
	m.Source = source
	m.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	out := Result{RunDir: runDir, Manifest: m, StoppedAfterScenes: res.StoppedAfterScenes}
	if err := writeManifest(runDir, m); err != nil {
		if runErr != nil {
			return out, runErr
		}
		return out, err
	}
	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		return out, runErr
	}
	logger.Info("run finished", "scenes", m.Scenes, "images", m.ImagesGenerated, "video", m.Video, "warnings", len(m.Warnings))
	return out, nil
}

// buildDeps wires adapters from config. The returned func releases
// resources held by them.
func buildDeps(cfg *config.Config, logger *slog.Logger) (usecase.Deps, func()) {
	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		Classify:    retry.Classify,
		Logger:      logging.WithComponent(logger, "retry"),
	}

	video := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	oa := openai.New(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, openai.Models{
		Transcribe:   cfg.OpenAI.TranscribeModel,
		Translate:    cfg.OpenAI.TranslateModel,
		Prompt:       cfg.OpenAI.PromptModel,
		Image:        cfg.OpenAI.ImageModel,
		ImageQuality: cfg.OpenAI.ImageQuality,
	}, openai.WithTimeout(cfg.OpenAITimeout()), openai.WithRetry(policy))

	var router *openrouter.Adapter
	if usesOpenRouter(cfg) {
		router = openrouter.New(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, cfg.OpenRouter.BaseURL,
			openrouter.WithTimeout(cfg.OpenRouterTimeout()), openrouter.WithRetry(policy))
	}

	var asr ports.ASR = oa
	if cfg.Providers.Transcriber == "whispercpp" {
		asr = whispercpp.New(cfg.WhisperCPP.Bin, cfg.WhisperCPP.Model, video)
	}

	var translator ports.Translator = oa
	if cfg.Providers.Translator == "openrouter" {
		translator = router
	}

	var prompter ports.PromptGenerator = oa
	promptModel := cfg.OpenAI.PromptModel
	if cfg.Providers.Prompts == "openrouter" {
		prompter = router
		promptModel = "openrouter/" + cfg.OpenRouter.Model
	}

	closeFn := func() {}
	if cfg.PromptCache.Enabled {
		store, err := promptcache.Open(cfg.PromptCache.Path, logging.WithComponent(logger, "promptcache"))
		if err != nil {
			logger.Warn("prompt cache unavailable, continuing without it", "path", cfg.PromptCache.Path, "error", err)
		} else {
			prompter = &promptcache.Cached{
				Next:   prompter,
				Store:  store,
				Model:  promptModel,
				Logger: logging.WithComponent(logger, "promptcache"),
			}
			closeFn = func() { _ = store.Close() }
		}
	}

	return usecase.Deps{
		Downloader: ytdlp.New(cfg.Tools.YtDlp),
		ASR:        asr,
		Translator: translator,
		Prompts:    prompter,
		Images:     oa,
		Video:      video,
		Logger:     logger,
	}, closeFn
}

func readManifest(runDir string) (types.Manifest, error) {
	var m types.Manifest
	b, err := os.ReadFile(filepath.Join(runDir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

func writeManifest(runDir string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(runDir, ManifestFile), b, 0o644)
}

func buildRunOutDir(outRoot, sourceURL string, now time.Time) string {
	name := normalizePathSegment(runName(sourceURL))
	if name == "" {
		name = "reel"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", sourceURL, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

// runName picks a readable name for a source URL: the video id when the URL
// carries one, else the last path segment, else the host.
func runName(sourceURL string) string {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}
	if seg := path.Base(strings.TrimRight(u.Path, "/")); seg != "" && seg != "." && seg != "/" {
		return strings.TrimSuffix(seg, path.Ext(seg))
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.VideoTool = (*ffmpeg.Adapter)(nil)
var _ ports.Downloader = (*ytdlp.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.ASR = (*openai.Adapter)(nil)
var _ ports.Translator = (*openai.Adapter)(nil)
var _ ports.Translator = (*openrouter.Adapter)(nil)
var _ ports.PromptGenerator = (*openai.Adapter)(nil)
var _ ports.PromptGenerator = (*openrouter.Adapter)(nil)
var _ ports.PromptGenerator = (*promptcache.Cached)(nil)
var _ ports.ImageGenerator = (*openai.Adapter)(nil)
