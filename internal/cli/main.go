package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	root := newRootCommand(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "reelgen <url>",
		Short:        "Turn a podcast or video URL into an illustrated short reel",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			url := ""
			if len(args) == 1 {
				url = args[0]
			}
			return run(cmd, configPath, url)
		},
	}

	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SilenceErrors = true

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.config/reelgen/config.toml or ./reelgen.toml)")

	// Visible flags
	root.Flags().Int("duration", 60, "Maximum audio duration in seconds to keep from the source")
	root.Flags().String("subtitles", "none", "Subtitles: none, orig, en or both")
	root.Flags().String("out", "out", "Output directory")
	root.Flags().Int("words-per-chunk", 20, "Target words per scene")
	root.Flags().String("style", "default", "Image style preset")
	root.Flags().String("format", "9:16", "Video format: 9:16, 16:9 or 1:1")
	root.Flags().Bool("skip-images", false, "Reuse images already in the run directory")
	root.Flags().Bool("skip-compose", false, "Stop before rendering the video")
	root.Flags().Bool("stop-after-scenes", false, "Stop after prompts are generated and write a review file")
	root.Flags().String("resume", "", "Continue an earlier run directory, reusing its artifacts")
	root.Flags().String("log-level", "", "Log level: debug, info, warn or error")

	// Hidden tuning flag (internal)
	root.Flags().Int("prompt-concurrency", 1, "Parallel prompt requests")
	_ = root.Flags().MarkHidden("prompt-concurrency")

	root.AddCommand(newScenesCommand())
	root.AddCommand(newSRTCommand())
	root.AddCommand(newConfigCommand(&configPath))
	return root
}
