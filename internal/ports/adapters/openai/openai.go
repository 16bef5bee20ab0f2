// Package openai implements transcription, translation, prompt and image
// generation on the OpenAI API.
package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/forPelevin/reelgen/internal/domain/prompts"
	"github.com/forPelevin/reelgen/internal/langs"
	"github.com/forPelevin/reelgen/internal/retry"
	"github.com/forPelevin/reelgen/internal/types"
)

// Models names the model used for each call.
type Models struct {
	Transcribe   string
	Translate    string
	Prompt       string
	Image        string
	ImageQuality string
}

func DefaultModels() Models {
	return Models{
		Transcribe:   goopenai.Whisper1,
		Translate:    goopenai.GPT4o,
		Prompt:       goopenai.GPT4oMini,
		Image:        goopenai.CreateImageModelDallE3,
		ImageQuality: goopenai.CreateImageQualityStandard,
	}
}

type Adapter struct {
	client  *goopenai.Client
	http    *http.Client
	models  Models
	timeout time.Duration
	retry   retry.Policy
}

const requestTimeout = 120 * time.Second

type Option func(*Adapter)

// WithTimeout bounds a single API attempt.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func WithRetry(p retry.Policy) Option {
	return func(a *Adapter) { a.retry = p }
}

func New(apiKey, baseURL string, models Models, opts ...Option) *Adapter {
	def := DefaultModels()
	if models.Transcribe == "" {
		models.Transcribe = def.Transcribe
	}
	if models.Translate == "" {
		models.Translate = def.Translate
	}
	if models.Prompt == "" {
		models.Prompt = def.Prompt
	}
	if models.Image == "" {
		models.Image = def.Image
	}
	if models.ImageQuality == "" {
		models.ImageQuality = def.ImageQuality
	}

	a := &Adapter{
		http:    &http.Client{Timeout: 10 * time.Minute},
		models:  models,
		timeout: requestTimeout,
		retry:   retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}

	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = a.http
	a.client = goopenai.NewClientWithConfig(cfg)
	return a
}

// Transcribe sends the audio file to the speech model and returns timed
// segments. The API reports the language by name, which is normalized to a code.
func (a *Adapter) Transcribe(ctx context.Context, audioPath, _ string) (types.Transcript, error) {
	resp, err := retry.Value(ctx, a.retry, "openai transcribe", func(ctx context.Context) (goopenai.AudioResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		resp, err := a.client.CreateTranscription(callCtx, goopenai.AudioRequest{
			Model:    a.models.Transcribe,
			FilePath: audioPath,
			Format:   goopenai.AudioResponseFormatVerboseJSON,
		})
		if err != nil {
			return goopenai.AudioResponse{}, a.mapError(ctx, callCtx, "openai transcribe", err)
		}
		return resp, nil
	})
	if err != nil {
		return types.Transcript{}, err
	}

	tr := types.Transcript{
		Language: langs.Normalize(resp.Language),
		Segments: make([]types.Segment, 0, len(resp.Segments)),
		Text:     strings.TrimSpace(resp.Text),
	}
	for _, seg := range resp.Segments {
		end := seg.End
		if end < seg.Start {
			end = seg.Start
		}
		tr.Segments = append(tr.Segments, types.Segment{Start: seg.Start, End: end, Text: strings.TrimSpace(seg.Text)})
	}
	return tr, nil
}

// GeneratePrompt asks the chat model for an English image prompt describing text.
func (a *Adapter) GeneratePrompt(ctx context.Context, text, language string) (string, error) {
	return a.chat(ctx, "openai prompt", goopenai.ChatCompletionRequest{
		Model: a.models.Prompt,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompts.System},
			{Role: goopenai.ChatMessageRoleUser, Content: prompts.SceneInstruction(text, language)},
		},
		Temperature: 0.5,
		MaxTokens:   100,
	})
}

// Translate returns text rendered in targetLanguage.
func (a *Adapter) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	return a.chat(ctx, "openai translate", goopenai.ChatCompletionRequest{
		Model: a.models.Translate,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: prompts.TranslateSystem},
			{Role: goopenai.ChatMessageRoleUser, Content: prompts.TranslateInstruction(text, sourceLanguage, targetLanguage)},
		},
		Temperature: 0.3,
		MaxTokens:   int(math.Max(64, float64(len(text))*2.5)),
	})
}

func (a *Adapter) chat(ctx context.Context, op string, req goopenai.ChatCompletionRequest) (string, error) {
	return retry.Value(ctx, a.retry, op, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		resp, err := a.client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return "", a.mapError(ctx, callCtx, op, err)
		}
		if len(resp.Choices) == 0 {
			return "", &retry.EmptyContentError{Op: op}
		}
		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		if content == "" {
			return "", &retry.EmptyContentError{Op: op}
		}
		return content, nil
	})
}

// GenerateImage renders prompt at size and writes the PNG to outPath.
func (a *Adapter) GenerateImage(ctx context.Context, prompt, size, outPath string) error {
	const op = "openai image"
	data, err := retry.Value(ctx, a.retry, op, func(ctx context.Context) ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		resp, err := a.client.CreateImage(callCtx, goopenai.ImageRequest{
			Prompt:         prompt,
			Model:          a.models.Image,
			Size:           size,
			Quality:        a.models.ImageQuality,
			N:              1,
			ResponseFormat: goopenai.CreateImageResponseFormatB64JSON,
		})
		if err != nil {
			return nil, a.mapError(ctx, callCtx, op, err)
		}
		if len(resp.Data) == 0 {
			return nil, &retry.EmptyContentError{Op: op}
		}
		img := resp.Data[0]
		if img.B64JSON != "" {
			b, err := base64.StdEncoding.DecodeString(img.B64JSON)
			if err != nil {
				return nil, retry.Permanent(fmt.Errorf("%s: decode image: %w", op, err))
			}
			return b, nil
		}
		if img.URL != "" {
			return a.fetch(callCtx, img.URL)
		}
		return nil, &retry.EmptyContentError{Op: op}
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("%s: create dir: %w", op, err)
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("%s: write %s: %w", op, outPath, err)
	}
	return nil
}

func (a *Adapter) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{Service: "openai image download", StatusCode: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	if len(b) == 0 {
		return nil, &retry.EmptyContentError{Op: "openai image download"}
	}
	return b, nil
}

// mapError turns client errors into the shapes the retry classifier knows.
func (a *Adapter) mapError(ctx, callCtx context.Context, op string, err error) error {
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return &retry.TimeoutError{Op: op, After: a.timeout}
	}
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &retry.StatusError{Service: op, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &retry.StatusError{Service: op, StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return fmt.Errorf("%s: %w", op, err)
}
