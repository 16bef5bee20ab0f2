package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/reelgen/internal/config"
	"github.com/forPelevin/reelgen/internal/logging"
	"github.com/forPelevin/reelgen/internal/pipeline"
	"github.com/forPelevin/reelgen/internal/usecase"
)

func run(cmd *cobra.Command, configPath, url string) error {
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}

	resumeDir, _ := cmd.Flags().GetString("resume")
	if url == "" && resumeDir == "" {
		return errors.New("a source URL is required (or --resume <runDir>)")
	}
	if resumeDir != "" {
		if resumeDir, err = filepath.Abs(resumeDir); err != nil {
			return err
		}
	}
	skipImages, _ := cmd.Flags().GetBool("skip-images")
	skipCompose, _ := cmd.Flags().GetBool("skip-compose")
	stopAfterScenes, _ := cmd.Flags().GetBool("stop-after-scenes")

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	opts := pipeline.Options{
		SourceURL:       url,
		ResumeDir:       resumeDir,
		SkipImages:      skipImages,
		SkipCompose:     skipCompose,
		StopAfterScenes: stopAfterScenes,
		Logger:          logger,
	}
	if err := pipeline.Validate(cfg, opts); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 3*time.Hour)
	defer cancel()

	res, err := pipeline.Run(ctx, cfg, opts)
	if err != nil {
		var se *usecase.StageError
		if errors.As(err, &se) && res.RunDir != "" {
			return fmt.Errorf("%w (artifacts kept in %s)", err, res.RunDir)
		}
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.StoppedAfterScenes:
		fmt.Fprintf(out, "Scenes ready for review: %s\n", filepath.Join(res.RunDir, usecase.ReviewFile))
		fmt.Fprintf(out, "Edit image prompts, then run: reelgen --resume %s\n", res.RunDir)
	case res.Manifest.Video != "":
		fmt.Fprintf(out, "Reel written to %s\n", filepath.Join(res.RunDir, res.Manifest.Video))
	default:
		fmt.Fprintf(out, "Run finished without composing a video: %s\n", res.RunDir)
	}
	for _, w := range res.Manifest.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	return nil
}

// applyFlags overrides config values with flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("duration") {
		cfg.Pipeline.MaxDurationSeconds, _ = flags.GetInt("duration")
	}
	if flags.Changed("subtitles") {
		cfg.Pipeline.Subtitles, _ = flags.GetString("subtitles")
	}
	if flags.Changed("out") {
		out, _ := flags.GetString("out")
		expanded, err := config.ExpandPath(out)
		if err != nil {
			return fmt.Errorf("--out: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	if flags.Changed("words-per-chunk") {
		cfg.Pipeline.WordsPerChunk, _ = flags.GetInt("words-per-chunk")
	}
	if flags.Changed("style") {
		cfg.Style.Preset, _ = flags.GetString("style")
	}
	if flags.Changed("format") {
		cfg.Pipeline.VideoFormat, _ = flags.GetString("format")
	}
	if flags.Changed("prompt-concurrency") {
		cfg.Pipeline.PromptConcurrency, _ = flags.GetInt("prompt-concurrency")
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	return nil
}
