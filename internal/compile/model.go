package compile

import (
	"encoding/json"

	"emwy/internal/config"
	"emwy/internal/probe"
	"emwy/internal/style"
	"emwy/internal/timecode"
)

// Lane is one media kind tracked through compilation.
type Lane string

const (
	LaneVideo     Lane = "video"
	LaneAudio     Lane = "audio"
	LaneSubtitles Lane = "subtitles"
)

// Role is a track's function in the stack.
type Role string

const (
	RoleBase       Role = "base"
	RoleMain       Role = "main"
	RoleSubtitles  Role = "subtitles"
	RoleOverlay    Role = "overlay"
	RoleMusic      Role = "music"
	RoleCommentary Role = "commentary"
)

// Fill is what a blank entry shows.
type Fill string

const (
	FillBlack       Fill = "black"
	FillSilence     Fill = "silence"
	FillTransparent Fill = "transparent"
	FillEmpty       Fill = "empty"
)

// EntryKind is the payload variant of an Entry.
type EntryKind string

const (
	EntrySource    EntryKind = "source"
	EntryBlank     EntryKind = "blank"
	EntryGenerator EntryKind = "generator"
	EntryNested    EntryKind = "nested"
)

// Well-known playlist ids.
const (
	PlaylistBase      = "video_base"
	PlaylistMain      = "audio_main"
	PlaylistSubtitles = "subtitles_main"
)

// SourceRef is an excerpt [In, Out) of an asset in source frames, played at
// Speed.
type SourceRef struct {
	Asset     string              `json:"asset"`
	Path      string              `json:"path"`
	In        int64               `json:"in"`
	Out       int64               `json:"out"`
	Speed     timecode.Ratio      `json:"speed"`
	Streams   []int               `json:"streams,omitempty"`
	Shape     []probe.AudioStream `json:"shape,omitempty"`
	Remapped  bool                `json:"remapped,omitempty"`
	Normalize *float64            `json:"normalize_db,omitempty"`
	Subtitles int                 `json:"subtitles,omitempty"`
}

// GeneratorRef describes synthesized media for a later rendering step.
type GeneratorRef struct {
	Kind       string            `json:"kind"`
	Title      string            `json:"title,omitempty"`
	Text       string            `json:"text,omitempty"`
	Asset      string            `json:"asset,omitempty"`
	AssetPath  string            `json:"asset_path,omitempty"`
	Appearance *style.Appearance `json:"appearance,omitempty"`
}

// Entry is one frame-bounded unit of a playlist.
type Entry struct {
	Lane      Lane          `json:"lane"`
	Start     int64         `json:"start"`
	Length    int64         `json:"length"`
	Kind      EntryKind     `json:"kind"`
	Origin    Ref           `json:"origin"`
	Source    *SourceRef    `json:"source,omitempty"`
	Fill      Fill          `json:"fill,omitempty"`
	Generator *GeneratorRef `json:"generator,omitempty"`
	Nested    *Model        `json:"nested,omitempty"`
}

// End is the first frame after the entry.
func (e Entry) End() int64 { return e.Start + e.Length }

// Transparent reports whether the entry contributes no pixels.
func (e Entry) Transparent() bool {
	return e.Kind == EntryBlank && (e.Fill == FillTransparent || e.Fill == FillEmpty)
}

func (e Entry) clone() Entry {
	out := e
	if e.Source != nil {
		src := *e.Source
		src.Streams = append([]int(nil), e.Source.Streams...)
		src.Shape = append([]probe.AudioStream(nil), e.Source.Shape...)
		if e.Source.Normalize != nil {
			v := *e.Source.Normalize
			src.Normalize = &v
		}
		out.Source = &src
	}
	if e.Generator != nil {
		gen := *e.Generator
		if e.Generator.Appearance != nil {
			look := *e.Generator.Appearance
			if look.Animate != nil {
				anim := *look.Animate
				anim.Values = append([]string(nil), look.Animate.Values...)
				look.Animate = &anim
			}
			gen.Appearance = &look
		}
		out.Generator = &gen
	}
	return out
}

// Transition blends Entries[OutIndex] into Entries[InIndex] around Cut.
type Transition struct {
	Kind     string `json:"kind"`
	Lane     Lane   `json:"lane"`
	OutIndex int    `json:"out_index"`
	InIndex  int    `json:"in_index"`
	Cut      int64  `json:"cut"`
	TailA    int64  `json:"tail_a"`
	HeadB    int64  `json:"head_b"`
	Origin   Ref    `json:"origin"`
}

// Start is the first frame of the overlap window.
func (t Transition) Start() int64 { return t.Cut - t.TailA }

// End is the first frame after the overlap window.
func (t Transition) End() int64 { return t.Cut + t.HeadB }

// Duration is TailA + HeadB.
func (t Transition) Duration() int64 { return t.TailA + t.HeadB }

// Playlist is the ordered, gapless entry sequence of one lane of one track.
type Playlist struct {
	ID          string       `json:"id"`
	Lane        Lane         `json:"lane"`
	Entries     []Entry      `json:"entries"`
	Transitions []Transition `json:"transitions,omitempty"`
}

// Length is the total frame count of the playlist.
func (p Playlist) Length() int64 {
	if len(p.Entries) == 0 {
		return 0
	}
	return p.Entries[len(p.Entries)-1].End()
}

func (p Playlist) clone() Playlist {
	out := Playlist{ID: p.ID, Lane: p.Lane}
	out.Entries = make([]Entry, len(p.Entries))
	for i, e := range p.Entries {
		out.Entries[i] = e.clone()
	}
	out.Transitions = append([]Transition(nil), p.Transitions...)
	return out
}

// Track places a playlist in the stack with a role.
type Track struct {
	Playlist string `json:"playlist"`
	Lane     Lane   `json:"lane"`
	Role     Role   `json:"role"`
}

// Span is a half-open frame range [Start, End).
type Span struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len is End - Start.
func (s Span) Len() int64 { return s.End - s.Start }

// Intersect returns the overlap of s and o.
func (s Span) Intersect(o Span) (Span, bool) {
	out := Span{Start: max(s.Start, o.Start), End: min(s.End, o.End)}
	return out, out.Start < out.End
}

// OverlayTransition composites an overlay track over the base track.
type OverlayTransition struct {
	Base     string     `json:"base"`
	Overlay  string     `json:"overlay"`
	Kind     string     `json:"kind"`
	Declared Span       `json:"declared"`
	Active   []Span     `json:"active"`
	Geometry [4]float64 `json:"geometry"`
	Opacity  float64    `json:"opacity"`
}

// Bounds is the smallest span enclosing every active span.
func (o OverlayTransition) Bounds() (Span, bool) {
	if len(o.Active) == 0 {
		return Span{}, false
	}
	return Span{Start: o.Active[0].Start, End: o.Active[len(o.Active)-1].End}, true
}

// Chapter is a navigation point in output time.
type Chapter struct {
	Frame  int64  `json:"frame"`
	Time   string `json:"time"`
	Title  string `json:"title"`
	Level  int    `json:"level"`
	Origin Ref    `json:"origin"`
}

// Profile is the output format every frame position is relative to.
type Profile struct {
	FPS         timecode.Ratio `json:"fps"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	SampleRate  int            `json:"sample_rate"`
	Channels    int            `json:"channels"`
	AudioLayout string         `json:"audio_layout"`
	PixelFormat string         `json:"pixel_format"`
}

// Stack is the set of parallel tracks and their composites.
type Stack struct {
	Tracks   []Track             `json:"tracks"`
	Overlays []OverlayTransition `json:"overlays,omitempty"`
}

// Model is the compiled plan. It is built once and never modified; every
// accessor returns a copy.
type Model struct {
	profile   Profile
	output    config.OutputConfig
	playlists []Playlist
	tracks    []Track
	overlays  []OverlayTransition
	chapters  []Chapter
}

// Profile returns the output profile.
func (m *Model) Profile() Profile { return m.profile }

// Output returns the render target settings carried from the project.
func (m *Model) Output() config.OutputConfig { return m.output }

// Playlists returns every playlist in stack order.
func (m *Model) Playlists() []Playlist {
	out := make([]Playlist, len(m.playlists))
	for i, p := range m.playlists {
		out[i] = p.clone()
	}
	return out
}

// Playlist looks up a playlist by id.
func (m *Model) Playlist(id string) (Playlist, bool) {
	for _, p := range m.playlists {
		if p.ID == id {
			return p.clone(), true
		}
	}
	return Playlist{}, false
}

// Stack returns the tracks and overlay transitions.
func (m *Model) Stack() Stack {
	return Stack{Tracks: m.Tracks(), Overlays: m.Overlays()}
}

// Tracks returns the tracks in stack order.
func (m *Model) Tracks() []Track { return append([]Track(nil), m.tracks...) }

// Overlays returns the overlay transitions.
func (m *Model) Overlays() []OverlayTransition {
	out := make([]OverlayTransition, len(m.overlays))
	for i, o := range m.overlays {
		out[i] = o
		out[i].Active = append([]Span(nil), o.Active...)
	}
	return out
}

// Chapters returns the chapter list in time order.
func (m *Model) Chapters() []Chapter { return append([]Chapter(nil), m.chapters...) }

// Length is the output duration in frames.
func (m *Model) Length() int64 {
	for _, p := range m.playlists {
		if p.ID == PlaylistBase {
			return p.Length()
		}
	}
	return 0
}

type modelJSON struct {
	Profile   Profile             `json:"profile"`
	Output    config.OutputConfig `json:"output"`
	Playlists []Playlist          `json:"playlists"`
	Stack     Stack               `json:"stack"`
	Chapters  []Chapter           `json:"chapters"`
}

// MarshalJSON renders the whole model. Field order is fixed so equal
// models encode to equal bytes.
func (m *Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(modelJSON{
		Profile:   m.profile,
		Output:    m.output,
		Playlists: m.playlists,
		Stack:     Stack{Tracks: m.tracks, Overlays: m.overlays},
		Chapters:  m.chapters,
	})
}
