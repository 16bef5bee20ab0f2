package ports

import (
	"context"
	"time"

	"github.com/forPelevin/reelgen/internal/types"
)

type Downloader interface {
	// DownloadAudio fetches the audio track of url into outPath (mp3), keeping
	// at most maxDuration of it when positive.
	DownloadAudio(ctx context.Context, url, outPath string, maxDuration time.Duration) error
}

type VideoTool interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
	ProbeDuration(ctx context.Context, in string) (time.Duration, error)
	ComposeReel(ctx context.Context, req ComposeRequest) error
}

// ComposeRequest describes one render of a resolved plan.
type ComposeRequest struct {
	Audio   string
	Plan    types.Plan
	Width   int
	Height  int
	BurnASS string
	OutMP4  string
	FPS     int
}

type ASR interface {
	Transcribe(ctx context.Context, audioPath, cacheDir string) (types.Transcript, error)
}

type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

type PromptGenerator interface {
	GeneratePrompt(ctx context.Context, text, language string) (string, error)
}

type ImageGenerator interface {
	// GenerateImage renders prompt and writes a PNG to outPath.
	GenerateImage(ctx context.Context, prompt, size, outPath string) error
}
