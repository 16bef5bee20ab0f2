package scenes

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/reelgen/internal/domain/prompts"
	"github.com/forPelevin/reelgen/internal/types"
)

// ErrNoScenes is returned by callers that cannot continue without scenes.
var ErrNoScenes = errors.New("scenes: transcript produced no scenes")

// Prompter produces an image prompt for a chunk of text in the given language.
type Prompter interface {
	GeneratePrompt(ctx context.Context, text, language string) (string, error)
}

type EnrichOptions struct {
	// Concurrency bounds parallel prompt calls. Values below 2 run sequentially.
	Concurrency int
	Logger      *slog.Logger
}

// Enrich fills ImagePrompt for every scene with one Prompter call each.
// A failed or empty generation leaves the prompt nil and never stops the
// batch. The returned slice has the same order as the input.
func Enrich(ctx context.Context, in []types.Scene, language string, p Prompter, opts EnrichOptions) []types.Scene {
	out := make([]types.Scene, len(in))
	copy(out, in)
	if len(out) == 0 {
		return out
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	one := func(i int) {
		raw, err := p.GeneratePrompt(ctx, out[i].ChunkText, language)
		if err != nil {
			log.Warn("prompt generation failed", "scene", i, "error", err)
			out[i].ImagePrompt = nil
			return
		}
		clean := prompts.Clean(raw)
		if clean == "" {
			log.Warn("prompt generation returned empty text", "scene", i)
			out[i].ImagePrompt = nil
			return
		}
		out[i].ImagePrompt = &clean
	}

	if opts.Concurrency < 2 {
		for i := range out {
			if ctx.Err() != nil {
				break
			}
			one(i)
		}
		return out
	}

	// Workers write to distinct indices, so no extra locking is needed.
	var g errgroup.Group
	g.SetLimit(opts.Concurrency)
	for i := range out {
		g.Go(func() error {
			if ctx.Err() == nil {
				one(i)
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// SplitAndEnrich chunks a transcript and generates one prompt per scene in
// the transcript's language.
func SplitAndEnrich(ctx context.Context, tr types.Transcript, wordsPerChunk int, p Prompter, opts EnrichOptions) []types.Scene {
	return Enrich(ctx, Split(tr, wordsPerChunk), SourceLanguage(tr), p, opts)
}

// Prompted counts scenes with a usable prompt.
func Prompted(ss []types.Scene) int {
	n := 0
	for _, s := range ss {
		if s.ImagePrompt != nil && *s.ImagePrompt != "" {
			n++
		}
	}
	return n
}
