package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/reelgen/internal/langs"
	"github.com/forPelevin/reelgen/internal/types"
)

// AudioExtractor converts arbitrary audio into the 16 kHz mono WAV whisper.cpp reads.
type AudioExtractor interface {
	ExtractAudioMono16k(ctx context.Context, in, outWav string) error
}

type Adapter struct {
	bin     string
	model   string
	extract AudioExtractor
}

func New(binPath, modelPath string, extract AudioExtractor) *Adapter {
	if binPath == "" {
		binPath = "whisper-cli"
	}
	return &Adapter{bin: binPath, model: modelPath, extract: extract}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath, cacheDir string) (types.Transcript, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp cache dir: %w", err)
	}
	wavPath := filepath.Join(cacheDir, "audio_16k.wav")
	if err := a.extract.ExtractAudioMono16k(ctx, audioPath, wavPath); err != nil {
		return types.Transcript{}, err
	}

	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-l", "auto",
		"-oj",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return parseOutput(jb)
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseOutput maps whisper.cpp's -oj document (millisecond offsets) onto a transcript.
func parseOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper.cpp json: %w", err)
	}

	tr := types.Transcript{
		Language: langs.Normalize(out.Result.Language),
		Segments: make([]types.Segment, 0, len(out.Transcription)),
	}
	texts := make([]string, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		start := float64(seg.Offsets.From) / 1000
		end := float64(seg.Offsets.To) / 1000
		if end < start {
			end = start
		}
		text := strings.TrimSpace(seg.Text)
		tr.Segments = append(tr.Segments, types.Segment{Start: start, End: end, Text: text})
		if text != "" {
			texts = append(texts, text)
		}
	}
	tr.Text = strings.Join(texts, " ")
	return tr, nil
}
