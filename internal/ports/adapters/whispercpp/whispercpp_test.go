package whispercpp

import "testing"

func TestParseOutput(t *testing.T) {
	doc := `{
  "result": {"language": "es"},
  "transcription": [
    {"offsets": {"from": 0, "to": 2500}, "text": "  Hola a todos."},
    {"offsets": {"from": 2500, "to": 2400}, "text": " "},
    {"offsets": {"from": 3000, "to": 6120}, "text": " Bienvenidos. "}
  ]
}`
	tr, err := parseOutput([]byte(doc))
	if err != nil {
		t.Fatalf("parseOutput: %v", err)
	}
	if tr.Language != "es" {
		t.Fatalf("language = %q", tr.Language)
	}
	if len(tr.Segments) != 3 {
		t.Fatalf("expected all segments to be kept, got %d", len(tr.Segments))
	}
	if tr.Segments[0].End != 2.5 || tr.Segments[0].Text != "Hola a todos." {
		t.Fatalf("unexpected first segment: %+v", tr.Segments[0])
	}
	if tr.Segments[1].End != tr.Segments[1].Start {
		t.Fatalf("end before start should be clamped: %+v", tr.Segments[1])
	}
	if tr.Segments[2].End != 6.12 {
		t.Fatalf("unexpected end: %v", tr.Segments[2].End)
	}
	if tr.Text != "Hola a todos. Bienvenidos." {
		t.Fatalf("text = %q", tr.Text)
	}
}

func TestParseOutput_Invalid(t *testing.T) {
	if _, err := parseOutput([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
