package style

import (
	"errors"
	"testing"

	"emwy/internal/config"
	"emwy/internal/timecode"
)

func intPtr(v int) *int { return &v }

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	assets := config.AssetsConfig{
		Cards: map[string]config.TextAppearance{
			"chapter": {
				FontSize:   intPtr(96),
				TextColor:  "#ffffff",
				Background: &config.Background{Kind: "gradient", From: "#000000", To: "#333333"},
			},
			"photo": {BackgroundImage: "logo"},
		},
		OverlayTextStyles: map[string]config.TextAppearance{
			"badge": {FontSize: intPtr(48), Background: &config.Background{Kind: "color", Color: "#000000"}},
		},
		PlaybackStyles: map[string]config.PlaybackStyle{
			"fast": {Speed: "2", OverlayTextStyle: "badge"},
			"slow": {Speed: "0.5"},
		},
	}
	r, err := NewRegistry(assets, config.DefaultsConfig{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestResolveSpeeds(t *testing.T) {
	r := testRegistry(t)
	tests := []struct {
		name         string
		style        string
		video, audio string
		want         string
		mismatch     bool
	}{
		{"defaults", "", "", "", "1", false},
		{"style fills both", "fast", "", "", "2", false},
		{"video syncs audio", "", "1.5", "", "1.5", false},
		{"audio syncs video", "", "", "0.75", "0.75", false},
		{"both equal", "", "2.0", "2", "2", false},
		{"both differ", "", "2", "1", "", true},
		{"entry matches style", "fast", "2", "", "2", false},
		{"video override against style", "fast", "1.5", "", "", true},
		{"audio override against style", "slow", "", "1", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ResolveSpeeds(tt.style, tt.video, tt.audio)
			if tt.mismatch {
				var mismatch *MismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("ResolveSpeeds error = %v, want *MismatchError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveSpeeds: %v", err)
			}
			if got.Video.Decimal() != tt.want || got.Audio.Decimal() != tt.want {
				t.Errorf("ResolveSpeeds = %s/%s, want %s", got.Video.Decimal(), got.Audio.Decimal(), tt.want)
			}
		})
	}
}

func TestResolveSpeedsUnknownStyle(t *testing.T) {
	_, err := testRegistry(t).ResolveSpeeds("warp", "", "")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Group != GroupPlayback {
		t.Fatalf("error = %v, want playback NotFoundError", err)
	}
}

func TestResolveSpeedsRejectsZero(t *testing.T) {
	if _, err := testRegistry(t).ResolveSpeeds("", "0", ""); err == nil {
		t.Fatal("expected error for zero speed")
	}
}

func TestCardMerge(t *testing.T) {
	r := testRegistry(t)

	look, err := r.Card("chapter", config.TextAppearance{FontSize: intPtr(72)})
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if look.FontSize != 72 {
		t.Errorf("font size = %d, want entry value 72", look.FontSize)
	}
	if look.TextColor != "#ffffff" {
		t.Errorf("text color = %q, want style value", look.TextColor)
	}
	if look.Background.Kind != BackgroundGradient || look.Background.Direction != "vertical" {
		t.Errorf("background = %+v, want vertical gradient", look.Background)
	}

	plain, err := r.Card("", config.TextAppearance{})
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if plain.FontSize != 128 || plain.Background.Color != "#3399ff" {
		t.Errorf("defaults = %+v", plain)
	}

	photo, err := r.Card("photo", config.TextAppearance{})
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if photo.Background.Kind != BackgroundImage || photo.Background.Asset != "logo" {
		t.Errorf("photo background = %+v", photo.Background)
	}

	override, err := r.Card("photo", config.TextAppearance{Background: &config.Background{Kind: "color", Color: "#101010"}})
	if err != nil {
		t.Fatalf("Card: %v", err)
	}
	if override.Background.Kind != BackgroundColor {
		t.Errorf("inline background should win over style image: %+v", override.Background)
	}
}

func TestCardErrors(t *testing.T) {
	r := testRegistry(t)
	if _, err := r.Card("missing", config.TextAppearance{}); err == nil {
		t.Error("expected not found error")
	}
	if _, err := r.Card("", config.TextAppearance{Background: &config.Background{Kind: "plaid"}}); err == nil {
		t.Error("expected unsupported background error")
	}
	if _, err := r.Card("", config.TextAppearance{Animate: &config.Animation{Values: []string{"a"}}}); err == nil {
		t.Error("expected animate error on card")
	}
	if _, err := r.Card("", config.TextAppearance{FontSize: intPtr(0)}); err == nil {
		t.Error("expected font size error")
	}
}

func TestOverlayText(t *testing.T) {
	r := testRegistry(t)
	look, err := r.OverlayText("", config.TextAppearance{})
	if err != nil {
		t.Fatalf("OverlayText: %v", err)
	}
	if !look.Background.Transparent() {
		t.Errorf("overlay text default background = %+v, want transparent", look.Background)
	}

	badge, err := r.OverlayText("badge", config.TextAppearance{
		Animate: &config.Animation{Values: []string{"a", "b", "c"}, Cadence: "0.5"},
	})
	if err != nil {
		t.Fatalf("OverlayText: %v", err)
	}
	if badge.FontSize != 48 || badge.Background.Kind != BackgroundColor {
		t.Errorf("badge = %+v", badge)
	}
	if badge.Animate == nil || !badge.Animate.FPS.Equal(timecode.Ratio{Num: 2, Den: 1}) {
		t.Fatalf("animate = %+v, want 2 changes per second", badge.Animate)
	}
	fps := timecode.Ratio{Num: 30, Den: 1}
	for _, tt := range []struct {
		frame int64
		want  string
	}{{0, "a"}, {14, "a"}, {15, "b"}, {30, "c"}, {45, "a"}} {
		if got := badge.Animate.ValueAt(tt.frame, fps); got != tt.want {
			t.Errorf("ValueAt(%d) = %q, want %q", tt.frame, got, tt.want)
		}
	}
}

func TestNewRegistryErrors(t *testing.T) {
	tests := []struct {
		name   string
		assets config.AssetsConfig
	}{
		{"missing speed", config.AssetsConfig{PlaybackStyles: map[string]config.PlaybackStyle{"x": {}}}},
		{"zero speed", config.AssetsConfig{PlaybackStyles: map[string]config.PlaybackStyle{"x": {Speed: "0"}}}},
		{"unknown text style", config.AssetsConfig{PlaybackStyles: map[string]config.PlaybackStyle{"x": {Speed: "2", OverlayTextStyle: "nope"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRegistry(tt.assets, config.DefaultsConfig{}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestDefaultSpeed(t *testing.T) {
	r, err := NewRegistry(config.AssetsConfig{}, config.DefaultsConfig{Video: config.LaneSettings{Speed: "1.25"}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	got, err := r.ResolveSpeeds("", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Video.Decimal() != "1.25" {
		t.Errorf("default speed = %s, want 1.25", got.Video.Decimal())
	}
}
