package subtitles

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/forPelevin/reelgen/internal/types"
)

var (
	ErrNoTranscript = errors.New("subtitles: no transcript")
	ErrNoSegments   = errors.New("subtitles: transcript has no segments")
)

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm).
// Milliseconds are truncated. The value is first quantized to whole
// microseconds so that decimal inputs like 65.05 keep their intended
// millisecond. Negative and NaN inputs render as zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	us := int64(math.Round(seconds * 1e6))
	ms := us / 1000
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// BuildCues turns transcript segments into numbered subtitle cues, skipping
// segments whose trimmed text is empty. Indices stay dense over emitted cues.
func BuildCues(tr *types.Transcript) ([]types.Cue, error) {
	if tr == nil {
		return nil, ErrNoTranscript
	}
	if tr.Segments == nil {
		return nil, ErrNoSegments
	}
	cues := make([]types.Cue, 0, len(tr.Segments))
	for _, seg := range tr.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		cues = append(cues, types.Cue{
			Index: len(cues) + 1,
			Start: seg.Start,
			End:   seg.End,
			Text:  text,
		})
	}
	return cues, nil
}

// RenderSRT serializes cues. Blocks are separated by one blank line and the
// output ends with a single newline.
func RenderSRT(cues []types.Cue) string {
	if len(cues) == 0 {
		return ""
	}
	lines := make([]string, 0, len(cues)*4)
	for _, c := range cues {
		lines = append(lines,
			strconv.Itoa(c.Index),
			FormatTimestamp(c.Start)+" --> "+FormatTimestamp(c.End),
			c.Text,
			"",
		)
	}
	return strings.Join(lines, "\n")
}
