package subtitles

import (
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/reelgen/internal/types"
)

func TestRenderASS_OneStylePerTrack(t *testing.T) {
	plan := types.Plan{Placements: []types.Placement{
		{Kind: types.PlacementImage, Start: 0, Duration: 5, Source: "scene_0.png"},
		{Kind: types.PlacementSubtitle, Start: 0, Duration: 1.5, Source: "hola", Track: "orig", Position: 0.75, Color: "yellow"},
		{Kind: types.PlacementSubtitle, Start: 0, Duration: 1.5, Source: "hello", Track: "en", Position: 0.85, Color: "white"},
		{Kind: types.PlacementSubtitle, Start: 2, Duration: 1, Source: "again {x}", Track: "en", Position: 0.85, Color: "white"},
	}}
	ass := RenderASS(plan, 1080, 1920)

	if !strings.Contains(ass, "PlayResX: 1080") || !strings.Contains(ass, "PlayResY: 1920") {
		t.Fatalf("expected canvas size in header, got:\n%s", ass)
	}
	if n := strings.Count(ass, "Style: "); n != 2 {
		t.Fatalf("expected 2 styles, got %d:\n%s", n, ass)
	}
	// 1920 * (1 - 0.75) = 480, 1920 * (1 - 0.85) = 288
	if !strings.Contains(ass, "Style: orig, Inter, 68, &H0000FFFF") || !strings.Contains(ass, ",480,1") {
		t.Fatalf("unexpected orig style:\n%s", ass)
	}
	if !strings.Contains(ass, ",288,1") {
		t.Fatalf("unexpected en style margin:\n%s", ass)
	}
	if n := strings.Count(ass, "Dialogue: "); n != 3 {
		t.Fatalf("expected 3 dialogue lines, got %d", n)
	}
	if !strings.Contains(ass, "Dialogue: 0,0:00:02.00,0:00:03.00,en,,0,0,0,,again (x)") {
		t.Fatalf("expected sanitized dialogue, got:\n%s", ass)
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	if got != `one two\Nthree\Nfour` {
		t.Fatalf("unexpected wrap: %q", got)
	}
	if wrapText("   ", 10) != "" {
		t.Fatalf("expected empty wrap for blank text")
	}
}

func TestAssTime_Format(t *testing.T) {
	got := assTime(61*time.Second + 234*time.Millisecond)
	if got != "0:01:01.23" {
		t.Fatalf("unexpected assTime: %s", got)
	}
}
