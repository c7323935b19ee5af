package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Time is an authored time value kept as its exact source text so decimal
// seconds never pass through float64.
type Time string

// UnmarshalYAML captures the raw scalar text.
func (t *Time) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: time value must be a scalar", node.Line)
	}
	*t = Time(strings.TrimSpace(node.Value))
	return nil
}

// IsSet reports whether a value was authored.
func (t Time) IsSet() bool { return strings.TrimSpace(string(t)) != "" }

func (t Time) String() string { return string(t) }

// TimelineConfig is the authored edit: base segments, overlay tracks and
// additional audio tracks.
type TimelineConfig struct {
	Segments    []Segment      `yaml:"segments"`
	Overlays    []OverlayTrack `yaml:"overlays,omitempty"`
	AudioTracks []AudioTrack   `yaml:"audio_tracks,omitempty"`
}

// SegmentKind names the variant of a Segment.
type SegmentKind string

const (
	SegmentSource    SegmentKind = "source"
	SegmentBlank     SegmentKind = "blank"
	SegmentGenerator SegmentKind = "generator"
	SegmentNested    SegmentKind = "nested"
)

// Segment is one authored timeline entry. Exactly one variant pointer is
// set, matching Kind.
type Segment struct {
	Kind      SegmentKind
	Source    *SourceSegment
	Blank     *BlankSegment
	Generator *GeneratorSegment
	Nested    *NestedSegment
}

// UnmarshalYAML decodes a single-key mapping such as `source: {...}`.
func (s *Segment) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return fmt.Errorf("line %d: segment entries must have exactly one key", node.Line)
	}
	key := node.Content[0].Value
	body := node.Content[1]
	switch SegmentKind(key) {
	case SegmentSource:
		var v SourceSegment
		if err := body.Decode(&v); err != nil {
			return err
		}
		*s = Segment{Kind: SegmentSource, Source: &v}
	case SegmentBlank:
		var v BlankSegment
		if err := body.Decode(&v); err != nil {
			return err
		}
		*s = Segment{Kind: SegmentBlank, Blank: &v}
	case SegmentGenerator:
		var v GeneratorSegment
		if err := body.Decode(&v); err != nil {
			return err
		}
		*s = Segment{Kind: SegmentGenerator, Generator: &v}
	case SegmentNested:
		var v NestedSegment
		if err := body.Decode(&v); err != nil {
			return err
		}
		*s = Segment{Kind: SegmentNested, Nested: &v}
	default:
		return fmt.Errorf("line %d: unsupported segment type %q", node.Line, key)
	}
	return nil
}

// MarshalYAML writes the single-key mapping form back out.
func (s Segment) MarshalYAML() (interface{}, error) {
	switch s.Kind {
	case SegmentSource:
		return map[string]*SourceSegment{string(s.Kind): s.Source}, nil
	case SegmentBlank:
		return map[string]*BlankSegment{string(s.Kind): s.Blank}, nil
	case SegmentGenerator:
		return map[string]*GeneratorSegment{string(s.Kind): s.Generator}, nil
	case SegmentNested:
		return map[string]*NestedSegment{string(s.Kind): s.Nested}, nil
	}
	return nil, fmt.Errorf("segment kind %q is not set", s.Kind)
}

// Common returns the fields shared by every variant.
func (s Segment) Common() Common {
	switch s.Kind {
	case SegmentSource:
		if s.Source != nil {
			return s.Source.Common
		}
	case SegmentBlank:
		if s.Blank != nil {
			return s.Blank.Common
		}
	case SegmentGenerator:
		if s.Generator != nil {
			return s.Generator.Common
		}
	case SegmentNested:
		if s.Nested != nil {
			return s.Nested.Common
		}
	}
	return Common{}
}

// Enabled reports whether the segment participates in the timeline.
func (s Segment) Enabled() bool { return s.Common().IsEnabled() }

// Common holds fields every segment variant accepts.
type Common struct {
	ID         string      `yaml:"id,omitempty"`
	Enabled    *bool       `yaml:"enabled,omitempty"`
	Title      string      `yaml:"title,omitempty"`
	Note       string      `yaml:"note,omitempty"`
	Chapter    *bool       `yaml:"chapter,omitempty"`
	Markers    []Marker    `yaml:"markers,omitempty"`
	Transition *Transition `yaml:"transition,omitempty"`
}

// IsEnabled applies the default of true.
func (c Common) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ChapterEnabled applies the default of true.
func (c Common) ChapterEnabled() bool {
	return c.Chapter == nil || *c.Chapter
}

// SourceSegment excerpts [In, Out) from an asset.
type SourceSegment struct {
	Common      `yaml:",inline"`
	Asset       string         `yaml:"asset"`
	In          Time           `yaml:"in"`
	Out         Time           `yaml:"out"`
	Style       string         `yaml:"style,omitempty"`
	Video       *LaneSettings  `yaml:"video,omitempty"`
	Audio       *AudioSettings `yaml:"audio,omitempty"`
	FillMissing *FillMissing   `yaml:"fill_missing,omitempty"`
}

// BlankSegment holds a gap of a fixed duration.
type BlankSegment struct {
	Common   `yaml:",inline"`
	Duration Time   `yaml:"duration"`
	Fill     string `yaml:"fill,omitempty"`
}

// GeneratorSegment describes synthesized media such as cards or silence.
type GeneratorSegment struct {
	Common         `yaml:",inline"`
	TextAppearance `yaml:",inline"`
	Kind           string       `yaml:"kind"`
	Duration       Time         `yaml:"duration,omitempty"`
	Text           string       `yaml:"text,omitempty"`
	Style          string       `yaml:"style,omitempty"`
	Asset          string       `yaml:"asset,omitempty"`
	FillMissing    *FillMissing `yaml:"fill_missing,omitempty"`
	PairedAudio    *PairedAudio `yaml:"paired_audio,omitempty"`
}

// PairedAudio feeds a source excerpt to the audio lane under a video
// generator.
type PairedAudio struct {
	Asset string         `yaml:"asset"`
	In    Time           `yaml:"in"`
	Out   Time           `yaml:"out,omitempty"`
	Audio *AudioSettings `yaml:"audio,omitempty"`
}

// NestedSegment embeds a sub-timeline treated as one opaque entry.
type NestedSegment struct {
	Common   `yaml:",inline"`
	Segments []Segment `yaml:"segments"`
}

// Marker is a structural point relative to its segment's start.
type Marker struct {
	Title   string `yaml:"title"`
	Level   int    `yaml:"level,omitempty"`
	Offset  Time   `yaml:"offset"`
	Chapter *bool  `yaml:"chapter,omitempty"`
}

// Transition blends the previous enabled segment into this one.
type Transition struct {
	Kind     string `yaml:"kind,omitempty"`
	Duration Time   `yaml:"duration"`
}

// FillMissing permits synthesizing lanes an asset does not provide.
type FillMissing struct {
	Video     string `yaml:"video,omitempty"`
	Audio     string `yaml:"audio,omitempty"`
	Subtitles string `yaml:"subtitles,omitempty"`
}

// UnmarshalYAML accepts `true` as shorthand for filling every lane: black
// video, silent audio and empty subtitles.
func (f *FillMissing) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var flag bool
		if err := node.Decode(&flag); err != nil || !flag {
			return fmt.Errorf("line %d: fill_missing must be true or a mapping", node.Line)
		}
		*f = FillMissing{Video: "black", Audio: "silence", Subtitles: "empty"}
		return nil
	}
	type plain FillMissing
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	*f = FillMissing(v)
	return nil
}

// OverlayTrack is composited over the base video. It holds either explicit
// Segments or a Template expanded by an Apply rule.
type OverlayTrack struct {
	ID       string     `yaml:"id,omitempty"`
	Enabled  *bool      `yaml:"enabled,omitempty"`
	Kind     string     `yaml:"kind,omitempty"`
	Segments []Segment  `yaml:"segments,omitempty"`
	Template *Segment   `yaml:"template,omitempty"`
	Apply    *ApplyRule `yaml:"apply,omitempty"`
	Geometry []float64  `yaml:"geometry,omitempty"`
	Opacity  *float64   `yaml:"opacity,omitempty"`
	In       Time       `yaml:"in,omitempty"`
	Out      Time       `yaml:"out,omitempty"`
}

// IsEnabled applies the default of true.
func (o OverlayTrack) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

// ApplyRule selects the base entries a template overlay covers.
type ApplyRule struct {
	Kind     string `yaml:"kind,omitempty"`
	Stream   string `yaml:"stream,omitempty"`
	MinSpeed string `yaml:"min_speed,omitempty"`
	MaxSpeed string `yaml:"max_speed,omitempty"`
	Style    string `yaml:"style,omitempty"`
}

// AudioTrack is an additional audio lane such as music or commentary.
type AudioTrack struct {
	ID       string    `yaml:"id,omitempty"`
	Role     string    `yaml:"role,omitempty"`
	Enabled  *bool     `yaml:"enabled,omitempty"`
	Segments []Segment `yaml:"segments"`
}

// IsEnabled applies the default of true.
func (a AudioTrack) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}
