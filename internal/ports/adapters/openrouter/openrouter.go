package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/forPelevin/reelgen/internal/domain/prompts"
	"github.com/forPelevin/reelgen/internal/retry"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
	timeout time.Duration
	retry   retry.Policy
}

const (
	defaultModel   = "openai/gpt-4o-mini"
	requestTimeout = 90 * time.Second
)

type Option func(*Adapter)

// WithTimeout bounds a single chat completion attempt.
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

func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.client = c
		}
	}
}

func New(apiKey, model, baseURL string, opts ...Option) *Adapter {
	if model == "" {
		model = defaultModel
	}
	baseURL = normalizeBaseURL(baseURL)
	a := &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		timeout: requestTimeout,
		retry:   retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GeneratePrompt asks the model for an English image prompt describing text.
func (a *Adapter) GeneratePrompt(ctx context.Context, text, language string) (string, error) {
	msgs := []message{
		{Role: "system", Content: prompts.System},
		{Role: "user", Content: prompts.SceneInstruction(text, language)},
	}
	return a.chat(ctx, "openrouter prompt", msgs, 0.5, 100)
}

// Translate returns text rendered in targetLanguage.
func (a *Adapter) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	msgs := []message{
		{Role: "system", Content: prompts.TranslateSystem},
		{Role: "user", Content: prompts.TranslateInstruction(text, sourceLanguage, targetLanguage)},
	}
	maxTokens := int(math.Max(64, float64(len(text))*2.5))
	return a.chat(ctx, "openrouter translate", msgs, 0.3, maxTokens)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (a *Adapter) chat(ctx context.Context, op string, msgs []message, temperature float64, maxTokens int) (string, error) {
	return retry.Value(ctx, a.retry, op, func(ctx context.Context) (string, error) {
		return a.complete(ctx, op, msgs, temperature, maxTokens)
	})
}

func (a *Adapter) complete(ctx context.Context, op string, msgs []message, temperature float64, maxTokens int) (string, error) {
	payload := map[string]any{
		"model":       a.model,
		"stream":      false,
		"messages":    msgs,
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}
	url := a.baseURL + "/api/v1/chat/completions"

	reqCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() == nil && errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", &retry.TimeoutError{Op: fmt.Sprintf("openrouter (model=%s)", a.model), After: a.timeout}
		}
		return "", fmt.Errorf("openrouter request: %s", redactSecrets(err.Error(), a.key))
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		after, _ := retry.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &retry.StatusError{
			Service:    "openrouter",
			StatusCode: resp.StatusCode,
			Body:       truncate(redactSecrets(string(rb), a.key), 400),
			RetryAfter: after,
		}
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode openrouter response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return "", &retry.EmptyContentError{Op: op}
	}
	content, err := messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strings.TrimSpace(content), nil
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", &retry.EmptyContentError{Op: "openrouter"}
	case string:
		if strings.TrimSpace(x) == "" {
			return "", &retry.EmptyContentError{Op: "openrouter"}
		}
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", &retry.EmptyContentError{Op: "openrouter"}
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
