package diag

import (
	"strings"
	"testing"

	"github.com/vesper-lang/vesper/internal/source"
)

func TestSinkOrdering(t *testing.T) {
	f := source.NewFile("a.vsp", "let x = 1;\n")
	s := NewSink()

	s.Errorf(f.SpanBetween(0, 3), "first")
	s.Warningf(f.SpanBetween(4, 5), "second")
	s.Logf(f.SpanBetween(8, 9), "third")

	tests := []struct {
		expectedSeverity Severity
		expectedText     string
	}{
		{SeverityError, "first"},
		{SeverityWarning, "second"},
		{SeverityLog, "third"},
	}

	msgs := s.Messages()
	if len(msgs) != len(tests) {
		t.Fatalf("message count wrong. expected=%d, got=%d", len(tests), len(msgs))
	}

	for i, tt := range tests {
		if msgs[i].Severity != tt.expectedSeverity {
			t.Fatalf("tests[%d] - severity wrong. expected=%q, got=%q",
				i, tt.expectedSeverity, msgs[i].Severity)
		}
		if msgs[i].Text != tt.expectedText {
			t.Fatalf("tests[%d] - text wrong. expected=%q, got=%q",
				i, tt.expectedText, msgs[i].Text)
		}
	}
}

func TestSinkTruncate(t *testing.T) {
	f := source.NewFile("a.vsp", "let x = 1;\n")
	s := NewSink()

	s.Errorf(f.SpanBetween(0, 3), "kept")
	mark := s.Len()
	s.Errorf(f.SpanBetween(4, 5), "dropped")
	s.Warningf(f.SpanBetween(4, 5), "also dropped")

	s.TruncateTo(mark)

	if s.Len() != 1 {
		t.Fatalf("length after truncate wrong. expected=1, got=%d", s.Len())
	}
	if s.Messages()[0].Text != "kept" {
		t.Fatalf("surviving message wrong. got=%q", s.Messages()[0].Text)
	}

	// A stale larger mark must not resurrect anything.
	s.TruncateTo(10)
	if s.Len() != 1 {
		t.Fatalf("stale truncate changed length. got=%d", s.Len())
	}
}

func TestSinkNote(t *testing.T) {
	f := source.NewFile("a.vsp", "let x = 1;\n")
	s := NewSink()

	s.Note("ignored on empty sink")
	if s.Len() != 0 {
		t.Fatalf("note on empty sink recorded a message")
	}

	s.Errorf(f.SpanBetween(0, 3), "unknown name")
	s.Note("did you mean %q?", "lot")

	notes := s.Messages()[0].Notes
	if len(notes) != 1 || notes[0] != `did you mean "lot"?` {
		t.Fatalf("note wrong. got=%v", notes)
	}
}

func TestHasErrors(t *testing.T) {
	f := source.NewFile("a.vsp", "let x = 1;\n")
	s := NewSink()

	s.Warningf(f.SpanBetween(0, 3), "just a warning")
	if s.HasErrors() {
		t.Fatalf("warnings alone should not count as errors")
	}

	s.Errorf(f.SpanBetween(0, 3), "now an error")
	if !s.HasErrors() {
		t.Fatalf("expected HasErrors after Errorf")
	}

	if got := s.Count(SeverityWarning); got != 1 {
		t.Fatalf("warning count wrong. expected=1, got=%d", got)
	}
}

func TestRenderSnippet(t *testing.T) {
	f := source.NewFile("a.vsp", "let x = oops;\n")
	s := NewSink()
	s.Errorf(f.SpanBetween(8, 12), "unknown identifier \"oops\"")
	s.Note("did you mean \"ops\"?")

	r := NewRenderer(false)
	r.AddFile(f)

	var b strings.Builder
	r.Render(&b, s.Messages())
	out := b.String()

	for _, want := range []string{
		"error: unknown identifier \"oops\"",
		"--> a.vsp:1:9",
		"   1 | let x = oops;",
		"^^^^",
		"note: did you mean \"ops\"?",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderWithoutFile(t *testing.T) {
	f := source.NewFile("missing.vsp", "x")
	s := NewSink()
	s.Errorf(f.SpanBetween(0, 1), "boom")

	r := NewRenderer(false)

	var b strings.Builder
	r.Render(&b, s.Messages())
	out := b.String()

	if !strings.Contains(out, "error: boom") {
		t.Fatalf("header missing:\n%s", out)
	}
	if strings.Contains(out, "|") {
		t.Fatalf("snippet rendered without registered file:\n%s", out)
	}
}
