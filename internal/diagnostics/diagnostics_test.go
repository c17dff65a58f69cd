package diagnostics

import (
	"strings"
	"testing"
)

func TestProgressGatedByVerbose(t *testing.T) {
	var buf strings.Builder
	s := NewSink(&buf, false)
	s.Progress("step %d", 1)
	if buf.Len() != 0 {
		t.Errorf("expected no output with verbose=false, got %q", buf.String())
	}

	s = NewSink(&buf, true)
	s.Progress("step %d", 1)
	if got := buf.String(); got != "step 1\n" {
		t.Errorf("got %q", got)
	}
}

func TestNoticeAlwaysWrites(t *testing.T) {
	var buf strings.Builder
	s := NewSink(&buf, false)
	s.Notice("falling back to %s", "default")
	if got := buf.String(); got != "notice: falling back to default\n" {
		t.Errorf("got %q", got)
	}
}

func TestNilSinkIsSilent(t *testing.T) {
	var s *Sink
	s.Progress("should not panic")
	s.Notice("should not panic")
}

func TestDiscardWritesNothing(t *testing.T) {
	s := Discard()
	s.Progress("x")
	s.Notice("y")
}
