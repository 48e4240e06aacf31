package repl

import (
	"bufio"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// HistoryFile is the base name of the history file in the cache directory.
const HistoryFile = "history.utf8"

// MaxEntries bounds the history kept in memory and on disk. Older entries
// are dropped first.
const MaxEntries = 1000

// Entry prefixes in the history file.
const (
	evalPrefix = "E:"
	ctrlPrefix = "C:"
)

// Entry is one recalled input: a statement or block typed in eval mode, or a
// REPL command.
type Entry struct {
	Line string
	Mode inputMode
}

func (e Entry) encode() string {
	prefix := evalPrefix
	if e.Mode == modeCtrl {
		prefix = ctrlPrefix
	}

	return prefix + strconv.Quote(e.Line) + "\n"
}

func decodeEntry(line string) Entry {
	e := Entry{Line: line, Mode: modeEval}

	if s, ok := strings.CutPrefix(line, ctrlPrefix); ok {
		e.Mode, e.Line = modeCtrl, s
	} else if s, ok := strings.CutPrefix(line, evalPrefix); ok {
		e.Line = s
	}

	// Lines written by hand may be unquoted.
	if s, err := strconv.Unquote(e.Line); err == nil {
		e.Line = s
	}

	return e
}

// History is the REPL's input history. Multi-line blocks such as a PRO
// definition are quoted onto one file line, so recalling one brings back
// the whole block.
//
// A History with an empty path is kept in memory only.
type History struct {
	path    string
	entries []Entry
	mu      sync.RWMutex
}

// NewHistory returns a History persisted at path.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Load replaces the entries with those in the history file. A missing file
// is an empty history.
func (h *History) Load() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.path == "" {
		return nil
	}

	file, err := os.Open(h.path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer file.Close()

	h.entries = nil

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			h.entries = append(h.entries, decodeEntry(line))
		}
	}

	if n := len(h.entries); n > MaxEntries {
		h.entries = slices.Delete(h.entries, 0, n-MaxEntries)
	}

	return scanner.Err()
}

// Add records line as the newest entry in mode. An earlier identical entry
// moves to the end instead of repeating. The file is appended to, or
// rewritten when an entry moved or the history overflowed.
func (h *History) Add(line string, mode inputMode) (int, error) {
	e := Entry{Line: strings.TrimSpace(line), Mode: mode}
	if e.Line == "" {
		return 0, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.entries)
	if n > 0 && h.entries[n-1] == e {
		return len(e.Line), nil
	}

	rewrite := false

	if i := slices.Index(h.entries, e); i >= 0 {
		h.entries = slices.Delete(h.entries, i, i+1)
		rewrite = true
	}

	h.entries = append(h.entries, e)

	if n := len(h.entries); n > MaxEntries {
		h.entries = slices.Delete(h.entries, 0, n-MaxEntries)
		rewrite = true
	}

	switch {
	case h.path == "":
		return len(e.Line), nil
	case rewrite:
		return h.save()
	}

	file, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	return file.WriteString(e.encode())
}

// At returns entry i, oldest first.
func (h *History) At(i int) (Entry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i < 0 || i >= len(h.entries) {
		return Entry{}, ErrOutOfBounds
	}

	return h.entries[i], nil
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.entries)
}

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return slices.Clone(h.entries)
}

// save rewrites the file from the entries. The caller holds h.mu.
func (h *History) save() (int, error) {
	file, err := os.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	total := 0

	for _, e := range h.entries {
		n, err := w.WriteString(e.encode())
		total += n

		if err != nil {
			return total, err
		}
	}

	return total, w.Flush()
}
