package scenes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/forPelevin/reelgen/internal/types"
)

type fakePrompter struct {
	mu    sync.Mutex
	calls []string
	langs []string
	fail  map[string]bool
	reply func(text string) string
}

func (f *fakePrompter) GeneratePrompt(_ context.Context, text, language string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.langs = append(f.langs, language)
	f.mu.Unlock()
	if f.fail[text] {
		return "", errors.New("upstream unavailable")
	}
	if f.reply != nil {
		return f.reply(text), nil
	}
	return "Prompt: picture of " + text, nil
}

func TestSplitAndEnrich_OneCallPerScene(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Language: "es", Segments: []types.Segment{
		{Start: 0, End: 1, Text: words(10, "a")},
		{Start: 1, End: 2, Text: words(7, "b")},
		{Start: 2, End: 3, Text: words(5, "c")},
	}}
	p := &fakePrompter{}
	got := SplitAndEnrich(context.Background(), tr, 10, p, EnrichOptions{})
	if len(got) != 2 || len(p.calls) != 2 {
		t.Fatalf("expected 2 scenes and 2 calls, got %d scenes, %d calls", len(got), len(p.calls))
	}
	for _, l := range p.langs {
		if l != "es" {
			t.Fatalf("expected transcript language to be passed, got %q", l)
		}
	}
	if got[0].ImagePrompt == nil || *got[0].ImagePrompt != "picture of "+words(10, "a") {
		t.Fatalf("expected cleaned prompt, got %v", got[0].ImagePrompt)
	}
}

func TestSplitAndEnrich_OversizedSegmentSingleCall(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Segments: []types.Segment{{Start: 0, End: 15, Text: words(20, "long")}}}
	p := &fakePrompter{}
	got := SplitAndEnrich(context.Background(), tr, 10, p, EnrichOptions{})
	if len(got) != 1 || len(p.calls) != 1 {
		t.Fatalf("expected 1 scene and 1 call, got %d scenes, %d calls", len(got), len(p.calls))
	}
	if p.langs[0] != "en" {
		t.Fatalf("expected default language en, got %q", p.langs[0])
	}
}

func TestEnrich_FailureLeavesNilAndContinues(t *testing.T) {
	t.Parallel()

	in := []types.Scene{
		{ChunkText: "one", StartTime: 0, EndTime: 1},
		{ChunkText: "two", StartTime: 1, EndTime: 2},
		{ChunkText: "three", StartTime: 2, EndTime: 3},
	}
	p := &fakePrompter{fail: map[string]bool{"two": true}}
	got := Enrich(context.Background(), in, "en", p, EnrichOptions{})
	if len(p.calls) != 3 {
		t.Fatalf("expected every scene to be attempted, got %d calls", len(p.calls))
	}
	if got[1].ImagePrompt != nil {
		t.Fatalf("expected nil prompt for failed scene, got %q", *got[1].ImagePrompt)
	}
	if got[0].ImagePrompt == nil || got[2].ImagePrompt == nil {
		t.Fatalf("expected prompts for the other scenes")
	}
	if in[0].ImagePrompt != nil {
		t.Fatalf("input scenes must not be mutated")
	}
	if n := Prompted(got); n != 2 {
		t.Fatalf("Prompted = %d, want 2", n)
	}
}

func TestEnrich_EmptyReplyIsFailure(t *testing.T) {
	t.Parallel()

	p := &fakePrompter{reply: func(string) string { return "  Prompt:  " }}
	got := Enrich(context.Background(), []types.Scene{{ChunkText: "x"}}, "en", p, EnrichOptions{})
	if got[0].ImagePrompt != nil {
		t.Fatalf("expected nil prompt for empty reply")
	}
}

func TestEnrich_ParallelPreservesOrder(t *testing.T) {
	t.Parallel()

	var in []types.Scene
	for i := 0; i < 25; i++ {
		in = append(in, types.Scene{ChunkText: words(i+1, "w"), StartTime: float64(i), EndTime: float64(i + 1)})
	}
	p := &fakePrompter{reply: func(text string) string { return strings.ToUpper(text) }}
	got := Enrich(context.Background(), in, "en", p, EnrichOptions{Concurrency: 4})
	if len(p.calls) != len(in) {
		t.Fatalf("expected %d calls, got %d", len(in), len(p.calls))
	}
	for i, s := range got {
		if s.ImagePrompt == nil || *s.ImagePrompt != strings.ToUpper(in[i].ChunkText) {
			t.Fatalf("scene %d got prompt for another scene: %v", i, s.ImagePrompt)
		}
		if s.StartTime != in[i].StartTime {
			t.Fatalf("scene %d moved", i)
		}
	}
}

func TestEnrich_StopsCallingAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := &fakePrompter{reply: func(text string) string {
		cancel()
		return "picture of " + text
	}}
	in := []types.Scene{{ChunkText: "one"}, {ChunkText: "two"}, {ChunkText: "three"}}

	got := Enrich(ctx, in, "en", p, EnrichOptions{})
	if len(p.calls) != 1 {
		t.Fatalf("expected no calls after cancellation, got %v", p.calls)
	}
	if len(got) != 3 || got[0].ImagePrompt == nil || got[1].ImagePrompt != nil || got[2].ImagePrompt != nil {
		t.Fatalf("unexpected scenes after cancel: %+v", got)
	}
}
