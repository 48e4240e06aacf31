package repl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestHistory_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), HistoryFile)

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}

	writes := []Entry{
		{"a = 1", modeEval},
		{"pro p\nprint, 'x'\nend", modeEval},
		{"list", modeCtrl},
		{"a = 1", modeEval}, // moves to the end
		{"list", modeEval},  // same line, different mode
	}

	for _, w := range writes {
		if _, err := h.Add(w.Line, w.Mode); err != nil {
			t.Fatal(err)
		}
	}

	want := []Entry{
		{"pro p\nprint, 'x'\nend", modeEval},
		{"list", modeCtrl},
		{"a = 1", modeEval},
		{"list", modeEval},
	}

	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}

	for _, hist := range []*History{h, reloaded} {
		got := hist.Entries()
		if len(got) != len(want) {
			t.Fatalf("got %d entries, want %d: %q", len(got), len(want), got)
		}

		for i := range want {
			if got[i] != want[i] {
				t.Errorf("entry %d: got %+v, want %+v", i, got[i], want[i])
			}
		}
	}
}

func TestHistory_Add(t *testing.T) {
	h := NewHistory("")

	tests := []struct {
		entry   string
		wantLen int
	}{
		{"", 0},
		{"   ", 0},
		{"x = 1", 1},
		{"x = 1", 1},
		{"  x = 1  ", 1},
		{"y = 2", 2},
	}

	for _, tt := range tests {
		if _, err := h.Add(tt.entry, modeEval); err != nil {
			t.Fatal(err)
		}

		if got := h.Len(); got != tt.wantLen {
			t.Errorf("after %q: Len() = %d, want %d", tt.entry, got, tt.wantLen)
		}
	}
}

func TestHistory_At(t *testing.T) {
	h := NewHistory("")
	_, _ = h.Add("first", modeEval)

	if e, err := h.At(0); err != nil || e.Line != "first" {
		t.Errorf("At(0) = %+v, %v", e, err)
	}

	for _, i := range []int{-1, 1} {
		if _, err := h.At(i); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("At(%d): got %v, want ErrOutOfBounds", i, err)
		}
	}
}

func TestHistory_MaxEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), HistoryFile)
	h := NewHistory(path)

	for i := range MaxEntries + 5 {
		if _, err := h.Add(fmt.Sprintf("x = %d", i), modeEval); err != nil {
			t.Fatal(err)
		}
	}

	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}

	for _, hist := range []*History{h, reloaded} {
		if hist.Len() != MaxEntries {
			t.Fatalf("Len() = %d, want %d", hist.Len(), MaxEntries)
		}

		if e, _ := hist.At(0); e.Line != "x = 5" {
			t.Errorf("oldest entry = %q, want x = 5", e.Line)
		}

		if e, _ := hist.At(MaxEntries - 1); e.Line != fmt.Sprintf("x = %d", MaxEntries+4) {
			t.Errorf("newest entry = %q", e.Line)
		}
	}
}

func TestHistory_LoadUnprefixed(t *testing.T) {
	path := filepath.Join(t.TempDir(), HistoryFile)

	data := "x = 1\nC:\"help\"\n\nE:\"a\\nb\"\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatal(err)
	}

	want := []Entry{
		{"x = 1", modeEval},
		{"help", modeCtrl},
		{"a\nb", modeEval},
	}

	got := h.Entries()
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
