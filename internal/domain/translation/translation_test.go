package translation

import (
	"context"
	"errors"
	"testing"

	"github.com/forPelevin/reelgen/internal/types"
)

type fakeTranslator struct {
	calls int
	fail  map[string]bool
}

func (f *fakeTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	f.calls++
	if f.fail[text] {
		return "", errors.New("rate limited")
	}
	return "[" + source + "->" + target + "] " + text, nil
}

func TestTranscript_KeepsTimingsAndFallsBack(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Language: "es", Segments: []types.Segment{
		{Start: 0, End: 1, Text: "hola"},
		{Start: 1, End: 2, Text: "  "},
		{Start: 2, End: 3, Text: "adios"},
	}}
	f := &fakeTranslator{fail: map[string]bool{"adios": true}}
	got, err := Transcript(context.Background(), tr, "en", f, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls != 2 {
		t.Fatalf("expected blank segments to be skipped, got %d calls", f.calls)
	}
	if got.Language != "en" || len(got.Segments) != 3 {
		t.Fatalf("unexpected transcript: %+v", got)
	}
	if got.Segments[0].Text != "[es->en] hola" {
		t.Fatalf("unexpected translation: %q", got.Segments[0].Text)
	}
	if got.Segments[1].Text != "  " {
		t.Fatalf("blank segment should be kept as-is, got %q", got.Segments[1].Text)
	}
	if got.Segments[2].Text != "adios" || got.Segments[2].Start != 2 || got.Segments[2].End != 3 {
		t.Fatalf("failed segment should keep original text and timing: %+v", got.Segments[2])
	}
	if got.Text != "[es->en] hola adios" {
		t.Fatalf("unexpected full text: %q", got.Text)
	}
}

func TestTranscript_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := types.Transcript{Segments: []types.Segment{{Text: "x"}}}
	_, err := Transcript(ctx, tr, "en", &fakeTranslator{fail: map[string]bool{"x": true}}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
