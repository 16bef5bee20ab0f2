package scenes

import (
	"fmt"
	"strings"

	"github.com/forPelevin/reelgen/internal/types"
)

const (
	DefaultWordsPerChunk = 20
	DefaultLanguage      = "en"

	// A segment this many times larger than the chunk size becomes a scene of
	// its own when nothing is accumulated yet.
	oversizedFactor = 1.5
	// Accumulated scenes may overshoot the chunk size by this many words.
	flushSlack = 5
)

// Split groups transcript segments into scenes of roughly wordsPerChunk words.
// Segments are never split; scene boundaries always fall on segment
// boundaries. Whitespace-only segments are ignored.
func Split(tr types.Transcript, wordsPerChunk int) []types.Scene {
	if wordsPerChunk <= 0 {
		wordsPerChunk = DefaultWordsPerChunk
	}
	if len(tr.Segments) == 0 {
		return []types.Scene{}
	}

	var (
		out   = []types.Scene{}
		acc   []string
		words int
		start float64
		end   float64
	)
	flush := func() {
		out = append(out, types.Scene{
			ChunkText: strings.Join(acc, " "),
			StartTime: start,
			EndTime:   end,
		})
		acc = acc[:0]
		words = 0
	}

	for _, seg := range tr.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		n := WordCount(text)

		if len(acc) == 0 && float64(n) >= float64(wordsPerChunk)*oversizedFactor {
			out = append(out, types.Scene{ChunkText: text, StartTime: seg.Start, EndTime: seg.End})
			continue
		}

		if len(acc) > 0 && words+n > wordsPerChunk+flushSlack {
			flush()
			acc = append(acc, text)
			words = n
			start = seg.Start
			end = seg.End
			continue
		}

		if len(acc) == 0 {
			start = seg.Start
		}
		acc = append(acc, text)
		words += n
		end = seg.End
	}
	if len(acc) > 0 {
		flush()
	}
	return out
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int { return len(strings.Fields(s)) }

// SourceLanguage returns the transcript language, defaulting to English.
func SourceLanguage(tr types.Transcript) string {
	if l := strings.TrimSpace(tr.Language); l != "" {
		return l
	}
	return DefaultLanguage
}

// ImageName is the file name of the image generated for scene i.
func ImageName(i int) string { return fmt.Sprintf("scene_%d.png", i) }
