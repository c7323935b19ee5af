package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveExternalPath_Relative(t *testing.T) {
	got := resolveExternalPath("/project", "assets/media.yaml")
	want := filepath.Join("/project", "assets/media.yaml")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolveExternalPath_Absolute(t *testing.T) {
	got := resolveExternalPath("/project", "/abs/path.yaml")
	if got != "/abs/path.yaml" {
		t.Fatalf("got %q, want /abs/path.yaml", got)
	}
}

func TestLoadAssetFiles_Merges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "media.yaml"), `
video:
  talk: {file: talk.mkv}
audio:
  theme: {file: theme.wav}
image:
  logo: {file: logo.png}
`)

	p := Project{
		AssetFiles: []string{"media.yaml"},
		Assets: AssetsConfig{
			Video: map[string]MediaAsset{"lecture": {File: "lecture.mkv"}},
		},
	}
	if err := p.loadAssetFiles(dir); err != nil {
		t.Fatal(err)
	}
	if len(p.Assets.Video) != 2 {
		t.Fatalf("expected 2 video assets, got %d", len(p.Assets.Video))
	}
	if p.Assets.Audio["theme"].File != "theme.wav" {
		t.Fatalf("theme asset not merged: %+v", p.Assets.Audio)
	}
	if p.Assets.Image["logo"].File != "logo.png" {
		t.Fatalf("logo asset not merged: %+v", p.Assets.Image)
	}
}

func TestLoadAssetFiles_DuplicateInlineVsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "media.yaml"), `
video:
  lecture: {file: other.mkv}
`)

	p := Project{
		AssetFiles: []string{"media.yaml"},
		Assets: AssetsConfig{
			Video: map[string]MediaAsset{"lecture": {File: "lecture.mkv"}},
		},
	}
	err := p.loadAssetFiles(dir)
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if !strings.Contains(err.Error(), "lecture") || !strings.Contains(err.Error(), "inline config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadAssetFiles_DuplicateAcrossGroups(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "media.yaml"), `
audio:
  lecture: {file: lecture.wav}
`)

	p := Project{
		AssetFiles: []string{"media.yaml"},
		Assets: AssetsConfig{
			Video: map[string]MediaAsset{"lecture": {File: "lecture.mkv"}},
		},
	}
	if err := p.loadAssetFiles(dir); err == nil {
		t.Fatal("expected duplicate error across video and audio groups")
	}
}

func TestLoadStyleFiles_DuplicateAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), `
playback_styles:
  fast: {speed: 2}
`)
	writeFile(t, filepath.Join(dir, "b.yaml"), `
playback_styles:
  fast: {speed: 3}
`)

	p := Project{StyleFiles: []string{"a.yaml", "b.yaml"}}
	err := p.loadStyleFiles(dir)
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	if !strings.Contains(err.Error(), "fast") || !strings.Contains(err.Error(), "a.yaml") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadStyleFiles_Merges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "styles.yaml"), `
cards:
  chapter: {font_size: 96, text_color: "#ffffff"}
overlay_text_styles:
  badge: {font_size: 48}
playback_styles:
  fast: {speed: "1.5", overlay_text_style: badge}
`)

	p := Project{StyleFiles: []string{"styles.yaml"}}
	if err := p.loadStyleFiles(dir); err != nil {
		t.Fatal(err)
	}
	if got := *p.Assets.Cards["chapter"].FontSize; got != 96 {
		t.Errorf("card font size = %d, want 96", got)
	}
	if p.Assets.PlaybackStyles["fast"].Speed != "1.5" {
		t.Errorf("playback speed = %q", p.Assets.PlaybackStyles["fast"].Speed)
	}
	if _, ok := p.Assets.OverlayTextStyles["badge"]; !ok {
		t.Error("badge style not merged")
	}
}

func TestLoadStyleFiles_MissingFile(t *testing.T) {
	p := Project{StyleFiles: []string{"nonexistent.yaml"}}
	if err := p.loadStyleFiles(t.TempDir()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadAssetFiles_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "empty.yaml"), "")

	p := Project{
		AssetFiles: []string{"empty.yaml"},
		Assets: AssetsConfig{
			Video: map[string]MediaAsset{"existing": {File: "x.mkv"}},
		},
	}
	if err := p.loadAssetFiles(dir); err != nil {
		t.Fatal(err)
	}
	if len(p.Assets.Video) != 1 {
		t.Fatalf("expected 1 asset unchanged, got %d", len(p.Assets.Video))
	}
}

func TestParseMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "more.yaml"), `
audio:
  theme: {file: theme.wav}
`)
	doc := strings.Replace(minimalProject, "assets:\n", "asset_files: [more.yaml]\nassets:\n", 1)
	p, err := Parse([]byte(doc), dir)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := p.Assets.Audio["theme"]; !ok {
		t.Fatal("included asset missing after Parse")
	}
}
