package compile

import (
	"reflect"
	"testing"
)

const overlayBase = talkAssets + `
timeline:
  segments:
    - source: {asset: talk, in: 0, out: 4}
`

func TestOverlayActiveSpans(t *testing.T) {
	tests := []struct {
		name     string
		track    string
		declared Span
		active   []Span
	}{
		{
			name: "transparent first half",
			track: `
    - segments:
        - blank: {duration: 2}
        - generator: {kind: overlay_text, text: Hello, duration: 2}
`,
			declared: Span{0, 120},
			active:   []Span{{60, 120}},
		},
		{
			name: "declared range clips the run",
			track: `
    - in: 1
      out: 3
      segments:
        - blank: {duration: 2}
        - generator: {kind: overlay_text, text: Hello, duration: 2}
`,
			declared: Span{30, 90},
			active:   []Span{{60, 90}},
		},
		{
			name: "adjacent generators merge",
			track: `
    - segments:
        - generator: {kind: overlay_text, text: A, duration: 1}
        - generator: {kind: overlay_text, text: B, duration: 1}
`,
			declared: Span{0, 120},
			active:   []Span{{0, 60}},
		},
		{
			name: "black blank is opaque",
			track: `
    - segments:
        - blank: {duration: 1}
        - blank: {duration: 1, fill: black}
`,
			declared: Span{0, 120},
			active:   []Span{{30, 60}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustCompile(t, overlayBase+"  overlays:"+tt.track)
			overlays := m.Overlays()
			if len(overlays) != 1 {
				t.Fatalf("overlays = %d, want 1", len(overlays))
			}
			o := overlays[0]
			if o.Declared != tt.declared {
				t.Errorf("declared = %+v, want %+v", o.Declared, tt.declared)
			}
			if !reflect.DeepEqual(o.Active, tt.active) {
				t.Errorf("active = %+v, want %+v", o.Active, tt.active)
			}
			p := playlist(t, m, o.Overlay)
			if p.Length() != 120 {
				t.Errorf("overlay length = %d, want padded to 120", p.Length())
			}
		})
	}
}

func TestOverlayPlaylistAndTrack(t *testing.T) {
	m := mustCompile(t, overlayBase+`
  overlays:
    - id: lower_third
      geometry: [0, 0.75, 1, 0.25]
      opacity: 0.8
      segments:
        - generator: {kind: overlay_text, text: Name, duration: 1}
`)
	o := m.Overlays()[0]
	if o.Overlay != "video_overlay_lower_third" || o.Base != PlaylistBase || o.Kind != "over" {
		t.Errorf("overlay = %+v", o)
	}
	if o.Geometry != [4]float64{0, 0.75, 1, 0.25} || o.Opacity != 0.8 {
		t.Errorf("placement = %v/%v", o.Geometry, o.Opacity)
	}
	p := playlist(t, m, o.Overlay)
	last := p.Entries[len(p.Entries)-1]
	if last.Fill != FillTransparent || last.Length != 90 {
		t.Errorf("padding = %+v, want 90 transparent frames", last)
	}
	var roles []Role
	for _, tr := range m.Tracks() {
		roles = append(roles, tr.Role)
	}
	if !reflect.DeepEqual(roles, []Role{RoleBase, RoleMain, RoleOverlay}) {
		t.Errorf("roles = %v", roles)
	}
}

func TestOverlayOutClamp(t *testing.T) {
	c, err := New(project(t, overlayBase+`
  overlays:
    - out: 121@frame
      segments: [{generator: {kind: overlay_text, text: x, duration: 1}}]
`), nil)
	if err != nil {
		t.Fatal(err)
	}
	m, warnings, err := c.CompileWithWarnings()
	if err != nil {
		t.Fatal(err)
	}
	if m.Overlays()[0].Declared.End != 120 {
		t.Errorf("declared end = %d, want 120", m.Overlays()[0].Declared.End)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want one clamp warning", warnings)
	}
}

func TestOverlayErrors(t *testing.T) {
	tests := []struct {
		name  string
		track string
		kind  Kind
	}{
		{"longer than base", `
    - segments: [{generator: {kind: overlay_text, text: x, duration: 5}}]
`, DurationMismatch},
		{"out well past base", `
    - out: 122@frame
      segments: [{generator: {kind: overlay_text, text: x, duration: 1}}]
`, InvalidRange},
		{"in at out", `
    - in: 2
      out: 2
      segments: [{generator: {kind: overlay_text, text: x, duration: 1}}]
`, InvalidRange},
		{"segments and template", `
    - segments: [{blank: {duration: 1}}]
      template: {generator: {kind: overlay_text, text: x}}
      apply: {kind: speed, min_speed: 2}
`, OverlayConflict},
		{"template without apply", `
    - template: {generator: {kind: overlay_text, text: x}}
`, OverlayConflict},
		{"empty track", `
    - id: empty
`, OverlayConflict},
		{"unsupported kind", `
    - kind: add
      segments: [{blank: {duration: 1}}]
`, InvalidValue},
		{"geometry out of range", `
    - geometry: [0, 0, 2, 1]
      segments: [{blank: {duration: 1}}]
`, InvalidValue},
		{"audio generator", `
    - segments: [{generator: {kind: silence, duration: 1}}]
`, InvalidValue},
		{"duplicate id", `
    - id: a
      segments: [{blank: {duration: 1}}]
    - id: a
      segments: [{blank: {duration: 1}}]
`, InvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectKind(t, overlayBase+"  overlays:"+tt.track, tt.kind)
		})
	}
}

func TestTemplateOverlayBySpeed(t *testing.T) {
	m := mustCompile(t, talkAssets+`
  playback_styles:
    fast: {speed: 2}
timeline:
  segments:
    - source: {asset: talk, in: 0, out: 4}
    - source: {asset: talk, in: 4, out: 8, style: fast}
    - blank: {duration: 1}
  overlays:
    - template: {generator: {kind: overlay_text, text: "{speed}x"}}
      apply: {kind: speed, min_speed: 1.5}
`)
	o := m.Overlays()[0]
	p := playlist(t, m, o.Overlay)
	if got := lengths(p); !equalInts(got, []int64{120, 60, 30}) {
		t.Fatalf("overlay lengths = %v, want [120 60 30]", got)
	}
	if !p.Entries[0].Transparent() || !p.Entries[2].Transparent() {
		t.Error("unmatched entries should be transparent")
	}
	gen := p.Entries[1].Generator
	if gen == nil || gen.Text != "2x" {
		t.Fatalf("generator = %+v, want text 2x", gen)
	}
	if !reflect.DeepEqual(o.Active, []Span{{120, 180}}) {
		t.Errorf("active = %+v", o.Active)
	}
}

func TestTemplateOverlayByPlaybackStyle(t *testing.T) {
	m := mustCompile(t, talkAssets+`
  overlay_text_styles:
    badge: {font_size: 40}
  playback_styles:
    fast: {speed: 4, overlay_text_style: badge}
timeline:
  segments:
    - source: {asset: talk, in: 0, out: 4, style: fast}
    - source: {asset: talk, in: 0, out: 4}
  overlays:
    - template: {generator: {kind: overlay_text, text: "Fast {speed}x"}}
      apply: {kind: playback_style, style: fast}
`)
	p := playlist(t, m, m.Overlays()[0].Overlay)
	gen := p.Entries[0].Generator
	if gen == nil || gen.Text != "Fast 4x" {
		t.Fatalf("generator = %+v", gen)
	}
	if gen.Appearance == nil || gen.Appearance.FontSize != 40 {
		t.Errorf("appearance = %+v, want font size 40 from badge", gen.Appearance)
	}
	if !p.Entries[1].Transparent() {
		t.Error("unstyled entry should be transparent")
	}
}

func TestTemplateRejectsDuration(t *testing.T) {
	expectKind(t, overlayBase+`
  overlays:
    - template: {generator: {kind: overlay_text, text: x, duration: 1}}
      apply: {kind: speed, min_speed: 2}
`, InvalidValue)
}

func TestSpanIntersect(t *testing.T) {
	got, ok := Span{0, 10}.Intersect(Span{5, 20})
	if !ok || got != (Span{5, 10}) {
		t.Errorf("Intersect = %+v, %v", got, ok)
	}
	if _, ok := (Span{0, 5}).Intersect(Span{5, 10}); ok {
		t.Error("touching spans should not intersect")
	}
}
