// Package translation produces a translated copy of a transcript that keeps
// the original segment timings.
package translation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/forPelevin/reelgen/internal/types"
)

type Translator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
}

// Transcript translates every non-empty segment of tr into target. Segments
// whose translation fails keep their original text, so the result always has
// the same segment count and timings as tr. A context error aborts the run.
func Transcript(ctx context.Context, tr types.Transcript, target string, t Translator, log *slog.Logger) (types.Transcript, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	out := types.Transcript{Language: target}
	if tr.Segments != nil {
		out.Segments = make([]types.Segment, 0, len(tr.Segments))
	}

	failed := 0
	texts := make([]string, 0, len(tr.Segments))
	for i, seg := range tr.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			out.Segments = append(out.Segments, seg)
			continue
		}
		translated, err := t.Translate(ctx, text, tr.Language, target)
		if err != nil {
			if ctx.Err() != nil {
				return types.Transcript{}, ctx.Err()
			}
			log.Warn("segment translation failed, keeping original text", "segment", i, "error", err)
			failed++
			translated = text
		}
		translated = strings.TrimSpace(translated)
		if translated == "" {
			translated = text
		}
		out.Segments = append(out.Segments, types.Segment{Start: seg.Start, End: seg.End, Text: translated})
		texts = append(texts, translated)
	}
	out.Text = strings.Join(texts, " ")
	if failed > 0 {
		log.Warn("translation finished with fallbacks", "failed_segments", failed, "segments", len(tr.Segments))
	}
	return out, nil
}
