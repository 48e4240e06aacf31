package log

import (
	"slices"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{" Info ", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"INFO+2", Level(2)},
		{"loud", DefaultLevel},
		{"", DefaultLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevel_String(t *testing.T) {
	got := slices.Collect(Levels())
	if want := []string{"trace", "debug", "info", "warn", "error"}; !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	for _, name := range got {
		if ParseLevel(name).String() != name {
			t.Errorf("%q does not round trip", name)
		}
	}

	if s := Level(2).String(); s != "INFO+2" {
		t.Errorf("got %q, want INFO+2", s)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"text", FormatText},
		{"xml", DefaultFormat},
	}

	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := slices.Collect(Formats()); !slices.Equal(got, []string{"text", "json"}) {
		t.Errorf("Formats: got %v", got)
	}
}

func TestMakeFormatTimeFunc(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 6, 7_000_000, time.UTC)

	tests := []struct {
		layout string
		want   string
	}{
		{"RFC3339", "2024-03-09T14:05:06Z"},
		{"rfc-3339", "2024-03-09T14:05:06Z"},
		{"Kitchen", "2:05PM"},
		{"ms", "Mar  9 14:05:06.007"},
		{"DateTime", "2024-03-09 14:05:06"},
		{"2006/01/02", "2024/03/09"},
		{"none", ""},
		{"", ""},
		{"  ", ""},
	}

	for _, tt := range tests {
		if got := makeFormatTimeFunc(tt.layout)(at); got != tt.want {
			t.Errorf("layout %q: got %q, want %q", tt.layout, got, tt.want)
		}
	}
}

func TestOptions(t *testing.T) {
	cfg := makeConfig(nil,
		WithLevel(LevelDebug),
		WithFormat(FormatJSON),
		WithCaller(true),
		WithPretty(false),
	)

	if cfg.level != LevelDebug || cfg.format != FormatJSON || !cfg.caller || cfg.pretty {
		t.Errorf("options not applied: %+v", cfg)
	}

	if cfg.output == nil {
		t.Error("nil writer should be replaced")
	}

	reset := cfg.clone(WithDefaults(nil))
	if reset.level != DefaultLevel || reset.format != DefaultFormat {
		t.Errorf("WithDefaults: got %+v", reset)
	}

	if cfg.level != LevelDebug {
		t.Error("clone changed the original")
	}
}
