package ytdlp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	bin string
}

func New(binPath string) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath}
}

// DownloadAudio extracts the audio of url as mp3 into outPath. yt-dlp picks
// the final extension itself, so the output template drops the one on outPath.
func (a *Adapter) DownloadAudio(ctx context.Context, url, outPath string, maxDuration time.Duration) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("yt-dlp: empty url")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("yt-dlp: create output dir: %w", err)
	}
	template := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".%(ext)s"

	cmd := exec.CommandContext(ctx, a.bin, buildArgs(url, template, maxDuration)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("yt-dlp download failed: %w\n%s", err, tail(string(b), 4000))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("yt-dlp: expected audio at %s: %w", outPath, err)
	}
	return nil
}

func buildArgs(url, outTemplate string, maxDuration time.Duration) []string {
	args := make([]string, 0, 16)
	// --no-config first so user configs cannot change the output layout.
	args = append(args,
		"--no-config",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"-o", outTemplate,
	)
	if maxDuration > 0 {
		secs := strconv.FormatFloat(maxDuration.Seconds(), 'f', -1, 64)
		args = append(args, "--postprocessor-args", "ExtractAudio:-ss 0 -to "+secs)
	}
	args = append(args, url)
	return args
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
