package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const minimalProject = `
emwy: 2
profile:
  fps: 30000/1001
  resolution: [1920, 1080]
assets:
  video:
    lecture: {file: lecture.mkv}
timeline:
  segments:
    - source: {asset: lecture, in: "0.0", out: 10.0, title: Intro}
    - blank: {duration: 2.5, enabled: false}
    - generator:
        kind: chapter_card
        title: Part 2
        duration: 2
        fill_missing: true
    - nested:
        segments:
          - source: {asset: lecture, in: "01:00", out: "01:30.5"}
output:
  file: out.mkv
`

func TestParseSegments(t *testing.T) {
	p, err := Parse([]byte(minimalProject), "/project")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	segs := p.Timeline.Segments
	if len(segs) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(segs))
	}

	kinds := []SegmentKind{SegmentSource, SegmentBlank, SegmentGenerator, SegmentNested}
	for i, want := range kinds {
		if segs[i].Kind != want {
			t.Errorf("segment %d kind = %q, want %q", i, segs[i].Kind, want)
		}
	}

	src := segs[0].Source
	if src.In != "0.0" || src.Out != "10.0" {
		t.Errorf("source range = [%q, %q), want raw text [0.0, 10.0)", src.In, src.Out)
	}
	if src.Title != "Intro" {
		t.Errorf("source title = %q", src.Title)
	}
	if segs[1].Enabled() {
		t.Error("blank segment should be disabled")
	}
	gen := segs[2].Generator
	want := FillMissing{Video: "black", Audio: "silence", Subtitles: "empty"}
	if gen.FillMissing == nil || *gen.FillMissing != want {
		t.Errorf("fill_missing: true = %+v, want %+v", gen.FillMissing, want)
	}
	if got := segs[3].Nested.Segments[0].Source.Out; got != "01:30.5" {
		t.Errorf("nested out = %q", got)
	}
	if p.Root != "/project" {
		t.Errorf("root = %q", p.Root)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	p, err := Parse([]byte(minimalProject), "/project")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Profile.Audio.SampleRate != 48000 || p.Profile.Audio.Channels != "stereo" {
		t.Errorf("audio profile = %+v", p.Profile.Audio)
	}
	if p.Defaults.Video.Speed != "1" {
		t.Errorf("default speed = %q, want 1", p.Defaults.Video.Speed)
	}
	if p.Output.VideoCodec != "libx265" || p.Output.CRF != 26 {
		t.Errorf("output defaults = %+v", p.Output)
	}
	if *p.Output.MergeBatchThreshold != 24 || *p.Output.MergeBatchSize != 8 {
		t.Errorf("merge batch defaults = %d/%d", *p.Output.MergeBatchThreshold, *p.Output.MergeBatchSize)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"wrong version", strings.Replace(minimalProject, "emwy: 2", "emwy: 1", 1), "emwy must be set to 2"},
		{"compiled playlists", minimalProject + "playlists: {}\n", "compiled-only"},
		{"compiled stack", minimalProject + "stack: {}\n", "compiled-only"},
		{"missing output", strings.Replace(minimalProject, "output:\n  file: out.mkv\n", "", 1), "missing required key: output"},
		{"bad resolution", strings.Replace(minimalProject, "[1920, 1080]", "[1920]", 1), "resolution"},
		{"two segment keys", strings.Replace(minimalProject, "    - blank: {duration: 2.5, enabled: false}\n", "    - {blank: {duration: 1}, source: {asset: lecture}}\n", 1), "exactly one key"},
		{"unknown segment type", strings.Replace(minimalProject, "    - blank:", "    - pause:", 1), "unsupported segment type"},
		{"fill_missing false", strings.Replace(minimalProject, "fill_missing: true", "fill_missing: false", 1), "fill_missing"},
		{"unknown top-level field", minimalProject + "extras: 1\n", "extras"},
		{"top-level list", "- 1\n- 2\n", "mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "/project")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadResolvesRoot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.emwy.yaml")
	writeFile(t, path, minimalProject)

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Root != dir {
		t.Errorf("root = %q, want %q", p.Root, dir)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing project")
	}
}

func TestLoadRejectsOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.yaml")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Truncate(maxDocumentBytes + 1); err != nil {
		t.Fatal(err)
	}
	f.Close()
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "10MB") {
		t.Fatalf("expected size error, got %v", err)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	p, err := Parse([]byte(minimalProject), "/project")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	again, err := Parse(data, "/project")
	if err != nil {
		t.Fatalf("Parse(Marshal): %v\n%s", err, data)
	}
	if len(again.Timeline.Segments) != len(p.Timeline.Segments) {
		t.Fatalf("segments = %d, want %d", len(again.Timeline.Segments), len(p.Timeline.Segments))
	}
	if again.Timeline.Segments[0].Source.Out != "10.0" {
		t.Errorf("out = %q after round trip", again.Timeline.Segments[0].Source.Out)
	}
	if again.Timeline.Segments[1].Enabled() {
		t.Error("disabled flag lost in round trip")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}
