package subtitles

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/forPelevin/reelgen/internal/types"
)

// RenderASS renders the subtitle placements of a plan as an ASS script sized
// for a width x height canvas. Each track gets its own style so that
// simultaneous tracks keep their own vertical position and colour.
func RenderASS(plan types.Plan, width, height int) string {
	subs := plan.Subtitles()

	var tracks []string
	styles := map[string]types.Placement{}
	for _, p := range subs {
		if _, ok := styles[p.Track]; ok {
			continue
		}
		styles[p.Track] = p
		tracks = append(tracks, p.Track)
	}

	var b strings.Builder
	b.WriteString(assHeader(width, height))
	for _, name := range tracks {
		b.WriteString("\n")
		b.WriteString(assStyle(styles[name], width, height))
	}
	b.WriteString("\n\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, p := range subs {
		text := wrapText(sanitizeASS(p.Source), lineBudget(width))
		if text == "" {
			continue
		}
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(dur(p.Start)))
		b.WriteString(",")
		b.WriteString(assTime(dur(p.End())))
		b.WriteString(",")
		b.WriteString(styleName(p.Track))
		b.WriteString(",,0,0,0,,")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader(width, height int) string {
	return strings.TrimSpace(fmt.Sprintf(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding`, width, height))
}

func assStyle(p types.Placement, width, height int) string {
	fontSize := height / 28
	if fontSize < 24 {
		fontSize = 24
	}
	marginH := width / 14
	// Alignment 2 anchors the bottom edge, so the margin is measured from the bottom.
	marginV := int(math.Round(float64(height) * (1 - clamp01(p.Position))))
	return fmt.Sprintf(
		"Style: %s, Inter, %d, %s, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,2, %d,%d,%d,1",
		styleName(p.Track), fontSize, assColour(p.Color), marginH, marginH, marginV,
	)
}

// styleName keeps style identifiers free of separators ASS treats specially.
func styleName(track string) string {
	name := strings.Map(func(r rune) rune {
		if r == ',' || r == ' ' {
			return '_'
		}
		return r
	}, strings.TrimSpace(track))
	if name == "" {
		return "Default"
	}
	return name
}

// assColour maps a colour name to ASS &HAABBGGRR notation.
func assColour(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yellow":
		return "&H0000FFFF"
	case "black":
		return "&H00000000"
	case "cyan":
		return "&H00FFFF00"
	default:
		return "&H00FFFFFF"
	}
}

func lineBudget(width int) int {
	if width > 1500 {
		return 56
	}
	return 32
}

// wrapText breaks text into lines of at most budget runes at word boundaries.
func wrapText(s string, budget int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	cur := ""
	for _, w := range words {
		if cur == "" {
			cur = w
			continue
		}
		if len([]rune(cur))+1+len([]rune(w)) > budget {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur += " " + w
	}
	lines = append(lines, cur)
	return strings.Join(lines, `\N`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func dur(sec float64) time.Duration { return time.Duration(math.Round(sec * float64(time.Second))) }
