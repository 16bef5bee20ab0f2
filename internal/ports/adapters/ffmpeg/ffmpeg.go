package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/reelgen/internal/ports"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// ComposeReel renders the plan over a black canvas: each image is scaled to
// cover the canvas and shown only inside its placement window, subtitles are
// burned from req.BurnASS, and the narration is the only audio track.
func (a *Adapter) ComposeReel(ctx context.Context, req ports.ComposeRequest) error {
	args, err := buildComposeArgs(req)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg compose reel: %w\n%s", err, tail(string(b), 4000))
	}
	return nil
}

func buildComposeArgs(req ports.ComposeRequest) ([]string, error) {
	images := req.Plan.Images()
	if len(images) == 0 {
		return nil, errors.New("ffmpeg compose reel: plan has no images")
	}
	if req.Plan.Duration <= 0 {
		return nil, errors.New("ffmpeg compose reel: plan duration must be > 0")
	}
	w, h := req.Width, req.Height
	if w <= 0 || h <= 0 {
		w, h = 1080, 1920
	}
	fps := req.FPS
	if fps <= 0 {
		fps = 30
	}
	total := secs(req.Plan.Duration)

	args := []string{
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:r=%d:d=%s", w, h, fps, total),
	}
	for _, img := range images {
		args = append(args,
			"-loop", "1",
			"-framerate", strconv.Itoa(fps),
			"-t", secs(img.End()),
			"-i", img.Source,
		)
	}
	audioIdx := len(images) + 1
	args = append(args, "-i", req.Audio)

	var fc strings.Builder
	for i := range images {
		fmt.Fprintf(&fc, "[%d:v]scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1[img%d];", i+1, w, h, w, h, i)
	}
	prev := "0:v"
	for i, img := range images {
		out := fmt.Sprintf("v%d", i)
		fmt.Fprintf(&fc, "[%s][img%d]overlay=0:0:enable='between(t,%s,%s)'[%s];",
			prev, i, secs(img.Start), secs(img.End()), out)
		prev = out
	}
	if req.BurnASS != "" {
		fmt.Fprintf(&fc, "[%s]subtitles=%s[vout]", prev, escapeFilterPath(req.BurnASS))
	} else {
		fmt.Fprintf(&fc, "[%s]null[vout]", prev)
	}

	args = append(args,
		"-filter_complex", fc.String(),
		"-map", "[vout]",
		"-map", fmt.Sprintf("%d:a", audioIdx),
		"-t", total,
		"-r", strconv.Itoa(fps),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "20",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		req.OutMP4,
	)
	return args, nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, in string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func secs(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	p = strings.ReplaceAll(p, ",", "\\,")
	return p
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

