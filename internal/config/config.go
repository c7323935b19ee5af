package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SchemaVersion is the only document version Load accepts.
const SchemaVersion = 2

// maxDocumentBytes bounds the size of a project file.
const maxDocumentBytes = 10_000_000

// Project is the authored emwy v2 document.
type Project struct {
	Emwy       int            `yaml:"emwy"`
	Profile    ProfileConfig  `yaml:"profile"`
	Defaults   DefaultsConfig `yaml:"defaults,omitempty"`
	Assets     AssetsConfig   `yaml:"assets"`
	AssetFiles []string       `yaml:"asset_files,omitempty"`
	StyleFiles []string       `yaml:"style_files,omitempty"`
	Timeline   TimelineConfig `yaml:"timeline"`
	Output     OutputConfig   `yaml:"output"`

	// Root is the directory relative asset paths resolve against.
	Root string `yaml:"-"`
}

// ProfileConfig describes the output raster and audio format.
type ProfileConfig struct {
	FPS         string             `yaml:"fps"`
	Resolution  []int              `yaml:"resolution"`
	Audio       ProfileAudioConfig `yaml:"audio,omitempty"`
	PixelFormat string             `yaml:"pixel_format,omitempty"`
}

// ProfileAudioConfig describes the output audio format.
type ProfileAudioConfig struct {
	SampleRate int    `yaml:"sample_rate,omitempty"`
	Channels   string `yaml:"channels,omitempty"`
}

// DefaultsConfig holds project-wide fallbacks.
type DefaultsConfig struct {
	Video LaneSettings  `yaml:"video,omitempty"`
	Audio AudioSettings `yaml:"audio,omitempty"`
}

// AssetsConfig groups media assets and reusable styles by id.
type AssetsConfig struct {
	Video             map[string]MediaAsset     `yaml:"video,omitempty"`
	Audio             map[string]MediaAsset     `yaml:"audio,omitempty"`
	Image             map[string]ImageAsset     `yaml:"image,omitempty"`
	Cards             map[string]TextAppearance `yaml:"cards,omitempty"`
	OverlayTextStyles map[string]TextAppearance `yaml:"overlay_text_styles,omitempty"`
	PlaybackStyles    map[string]PlaybackStyle  `yaml:"playback_styles,omitempty"`
}

// MediaAsset is a video or audio file. Streams and Duration override what
// the asset group implies.
type MediaAsset struct {
	File     string         `yaml:"file"`
	Duration Time           `yaml:"duration,omitempty"`
	Streams  *StreamsConfig `yaml:"streams,omitempty"`
}

// StreamsConfig declares the stream layout of a media asset.
type StreamsConfig struct {
	Video     *bool               `yaml:"video,omitempty"`
	Audio     []AudioStreamConfig `yaml:"audio,omitempty"`
	Subtitles int                 `yaml:"subtitles,omitempty"`
}

// AudioStreamConfig declares one audio stream.
type AudioStreamConfig struct {
	Channels int    `yaml:"channels,omitempty"`
	Layout   string `yaml:"layout,omitempty"`
}

// ImageAsset is a still image used by still generators and card backgrounds.
type ImageAsset struct {
	File string `yaml:"file"`
}

// TextAppearance is shared by card styles, overlay text styles and the
// matching inline fields on generators.
type TextAppearance struct {
	FontFile        string      `yaml:"font_file,omitempty"`
	FontSize        *int        `yaml:"font_size,omitempty"`
	TextColor       string      `yaml:"text_color,omitempty"`
	Background      *Background `yaml:"background,omitempty"`
	BackgroundImage string      `yaml:"background_image,omitempty"`
	Animate         *Animation  `yaml:"animate,omitempty"`
}

// Background describes a card background.
type Background struct {
	Kind      string `yaml:"kind"`
	Color     string `yaml:"color,omitempty"`
	From      string `yaml:"from,omitempty"`
	To        string `yaml:"to,omitempty"`
	Direction string `yaml:"direction,omitempty"`
	Asset     string `yaml:"asset,omitempty"`
}

// Animation cycles overlay text through values.
type Animation struct {
	Kind    string   `yaml:"kind,omitempty"`
	Values  []string `yaml:"values,omitempty"`
	Cadence Time     `yaml:"cadence,omitempty"`
	FPS     string   `yaml:"fps,omitempty"`
}

// PlaybackStyle is a reusable speed preset.
type PlaybackStyle struct {
	Speed            string `yaml:"speed"`
	OverlayTextStyle string `yaml:"overlay_text_style,omitempty"`
}

// LaneSettings carries per-lane overrides on a source.
type LaneSettings struct {
	Speed string `yaml:"speed,omitempty"`
}

// AudioSettings carries audio overrides on a source.
type AudioSettings struct {
	Speed     string     `yaml:"speed,omitempty"`
	Normalize *Normalize `yaml:"normalize,omitempty"`
	Streams   []int      `yaml:"streams,omitempty"`
	Remap     *Remap     `yaml:"remap,omitempty"`
}

// Normalize requests loudness normalization to a target level.
type Normalize struct {
	LevelDB *float64 `yaml:"level_db,omitempty"`
}

// Remap declares an explicit channel conversion for the selected streams.
type Remap struct {
	Layout   string `yaml:"layout,omitempty"`
	Channels int    `yaml:"channels,omitempty"`
}

// OutputConfig describes the render target. The compiler never reads it;
// it is carried for the execution engine and the exporter.
type OutputConfig struct {
	File                string `yaml:"file" json:"file"`
	VideoCodec          string `yaml:"video_codec,omitempty" json:"video_codec,omitempty"`
	AudioCodec          string `yaml:"audio_codec,omitempty" json:"audio_codec,omitempty"`
	CRF                 int    `yaml:"crf,omitempty" json:"crf,omitempty"`
	Container           string `yaml:"container,omitempty" json:"container,omitempty"`
	MergeBatchThreshold *int   `yaml:"merge_batch_threshold,omitempty" json:"merge_batch_threshold,omitempty"`
	MergeBatchSize      *int   `yaml:"merge_batch_size,omitempty" json:"merge_batch_size,omitempty"`
}

// Default returns a baseline document with an empty timeline.
func Default() Project {
	return Project{
		Emwy: 2,
		Profile: ProfileConfig{
			FPS:         "30",
			Resolution:  []int{1920, 1080},
			Audio:       ProfileAudioConfig{SampleRate: 48000, Channels: "stereo"},
			PixelFormat: "yuv420p",
		},
		Output: OutputConfig{
			VideoCodec:          "libx265",
			AudioCodec:          "pcm_s16le",
			CRF:                 26,
			MergeBatchThreshold: intPtr(24),
			MergeBatchSize:      intPtr(8),
		},
	}
}

// ApplyDefaults fills fields the document omits.
func (p *Project) ApplyDefaults() {
	defaults := Default()

	if p.Profile.Audio.SampleRate == 0 {
		p.Profile.Audio.SampleRate = defaults.Profile.Audio.SampleRate
	}
	if p.Profile.Audio.Channels == "" {
		p.Profile.Audio.Channels = defaults.Profile.Audio.Channels
	}
	if p.Profile.PixelFormat == "" {
		p.Profile.PixelFormat = defaults.Profile.PixelFormat
	}
	if p.Defaults.Video.Speed == "" {
		p.Defaults.Video.Speed = "1"
	}
	if p.Output.VideoCodec == "" {
		p.Output.VideoCodec = defaults.Output.VideoCodec
	}
	if p.Output.AudioCodec == "" {
		p.Output.AudioCodec = defaults.Output.AudioCodec
	}
	if p.Output.CRF == 0 {
		p.Output.CRF = defaults.Output.CRF
	}
	if p.Output.MergeBatchThreshold == nil {
		p.Output.MergeBatchThreshold = intPtr(*defaults.Output.MergeBatchThreshold)
	}
	if p.Output.MergeBatchSize == nil {
		p.Output.MergeBatchSize = intPtr(*defaults.Output.MergeBatchSize)
	}
}

// Load reads and decodes the project at path, merges external asset and
// style files relative to its directory, and applies defaults.
func Load(path string) (Project, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Project{}, errors.Wrap(err, "stat project")
	}
	if info.Size() > maxDocumentBytes {
		return Project{}, errors.Errorf("project file %s is larger than 10MB", path)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		return Project{}, errors.Wrap(err, "read project")
	}
	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return Project{}, errors.Wrap(err, "resolve project root")
	}
	return Parse(contents, root)
}

// Parse decodes a project document. root is the directory relative paths
// resolve against.
func Parse(contents []byte, root string) (Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(contents, &doc); err != nil {
		return Project{}, errors.Wrap(err, "parse project")
	}
	if err := checkTopLevel(&doc); err != nil {
		return Project{}, err
	}

	var p Project
	dec := yaml.NewDecoder(bytes.NewReader(contents))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Project{}, errors.Wrap(err, "decode project")
	}
	p.Root = root

	if len(p.Profile.Resolution) != 2 || p.Profile.Resolution[0] <= 0 || p.Profile.Resolution[1] <= 0 {
		return Project{}, errors.New("profile.resolution must be [width, height]")
	}
	if len(p.Timeline.Segments) == 0 {
		return Project{}, errors.New("timeline.segments must be a non-empty list")
	}
	if err := p.loadAssetFiles(root); err != nil {
		return Project{}, err
	}
	if err := p.loadStyleFiles(root); err != nil {
		return Project{}, err
	}
	p.ApplyDefaults()
	return p, nil
}

// checkTopLevel enforces the document-level rules that cannot be expressed
// through struct decoding.
func checkTopLevel(doc *yaml.Node) error {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return errors.New("project must be a mapping at the top level")
	}
	top := doc.Content[0]
	keys := make(map[string]*yaml.Node, len(top.Content)/2)
	for i := 0; i+1 < len(top.Content); i += 2 {
		keys[top.Content[i].Value] = top.Content[i+1]
	}

	version, ok := keys["emwy"]
	if !ok || version.Value != fmt.Sprint(SchemaVersion) {
		return errors.Errorf("emwy must be set to %d", SchemaVersion)
	}
	if _, ok := keys["playlists"]; ok {
		return errors.New("playlists/stack are compiled-only; use timeline.segments")
	}
	if _, ok := keys["stack"]; ok {
		return errors.New("playlists/stack are compiled-only; use timeline.segments")
	}
	for _, key := range []string{"profile", "assets", "timeline", "output"} {
		if _, ok := keys[key]; !ok {
			return errors.Errorf("missing required key: %s", key)
		}
	}
	return nil
}

// Marshal encodes the project as YAML.
func Marshal(p Project) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, errors.Wrap(err, "encode project")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode project")
	}
	return buf.Bytes(), nil
}

func intPtr(v int) *int {
	return &v
}

func boolPtr(v bool) *bool {
	return &v
}
