package tui

import (
	"bytes"
	"strings"
	"testing"
)

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		name  string
		color string
		json  bool
		want  OutputMode
	}{
		{"json wins", ColorAlways, true, ModeJSON},
		{"always forces rich", ColorAlways, false, ModeRich},
		{"never is plain", ColorNever, false, ModePlain},
		{"auto on a buffer is plain", ColorAuto, false, ModePlain},
		{"unknown behaves like auto", "sometimes", false, ModePlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMode(&buf, tt.color, tt.json); got != tt.want {
				t.Fatalf("DetectMode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlainStylerPassesThrough(t *testing.T) {
	s := NewStyler(&bytes.Buffer{}, ModePlain)
	if s.Colored() {
		t.Fatal("plain styler reports color")
	}
	if got := s.Status(StatusError, "boom"); got != "boom" {
		t.Errorf("Status = %q", got)
	}
	if got := s.Header("Playlists"); got != "Playlists" {
		t.Errorf("Header = %q", got)
	}
}

func TestRichStylerColors(t *testing.T) {
	s := NewStyler(&bytes.Buffer{}, ModeRich)
	got := s.Status(StatusError, "boom")
	if !strings.Contains(got, "boom") || !strings.Contains(got, "\x1b[") {
		t.Errorf("Status = %q, want ANSI-styled text", got)
	}
	if got := s.Status("unknown", "x"); got != "x" {
		t.Errorf("unknown status styled: %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"ID", "LENGTH"},
		[][]string{{"video_base", "300"}, {"audio_main"}},
		[]Align{AlignLeft, AlignRight},
		ModePlain,
	)
	for _, want := range []string{"ID", "LENGTH", "video_base", "300", "audio_main"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if RenderTable(nil, nil, nil, ModePlain) != "" {
		t.Error("empty headers should render nothing")
	}
}
