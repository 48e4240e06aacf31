package lang

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"
)

func TestParseReader_Cached(t *testing.T) {
	ClearCache()

	src := "x = 1\nPRINT, x\n"

	first, err := ParseReader(t.Context(), strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}

	second, err := ParseReader(t.Context(), strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}

	if first != second {
		t.Error("expected the cached program for identical source")
	}

	if first.Source() != src {
		t.Errorf("source: got %q, want %q", first.Source(), src)
	}

	other, err := ParseReader(t.Context(), strings.NewReader(src+"y = 2\n"))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}

	if other == first {
		t.Error("different source returned the same program")
	}
}

func TestParseReader_ClearCache(t *testing.T) {
	src := "z = 3\n"

	first, err := ParseReader(t.Context(), strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}

	ClearCache()

	second, err := ParseReader(t.Context(), strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseReader failed: %v", err)
	}

	if first == second {
		t.Error("expected a fresh parse after ClearCache")
	}
}

func TestParseReader_CachedError(t *testing.T) {
	ClearCache()

	for range 2 {
		_, err := ParseReader(t.Context(), strings.NewReader("x = (1 +"))
		if !errors.Is(err, ErrIncomplete) {
			t.Errorf("got %v, want ErrIncomplete", err)
		}
	}
}

func TestParseReader_ReadError(t *testing.T) {
	boom := errors.New("boom")

	_, err := ParseReader(t.Context(), iotest.ErrReader(boom))
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("got %v, want ErrReadInput", err)
	}

	if !errors.Is(err, boom) {
		t.Errorf("cause lost: %v", err)
	}
}
