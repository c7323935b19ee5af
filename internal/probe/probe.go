// Package probe supplies asset metadata to the compiler. Metadata comes from
// what the project declares about each asset; media files are never opened.
package probe

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"emwy/internal/config"
	"emwy/internal/timecode"
)

// Kind is the asset group an id was declared in.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// AudioStream describes one audio stream of an asset.
type AudioStream struct {
	Channels int    `json:"channels"`
	Layout   string `json:"layout"`
}

// Metadata is the lane presence and duration known for an asset.
type Metadata struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	Path      string        `json:"path"`
	HasVideo  bool          `json:"has_video"`
	Audio     []AudioStream `json:"audio,omitempty"`
	Subtitles int           `json:"subtitles,omitempty"`

	// DurationFrames is the source length at the profile rate; zero when
	// HasDuration is false.
	DurationFrames int64 `json:"duration_frames,omitempty"`
	HasDuration    bool  `json:"has_duration"`
}

// HasAudio reports whether the asset carries at least one audio stream.
func (m Metadata) HasAudio() bool { return len(m.Audio) > 0 }

// HasSubtitles reports whether the asset carries a subtitle stream.
func (m Metadata) HasSubtitles() bool { return m.Subtitles > 0 }

// Catalog resolves asset ids to metadata.
type Catalog interface {
	Lookup(id string) (Metadata, bool)
}

// Static is a Catalog backed by a map.
type Static map[string]Metadata

// Lookup implements Catalog.
func (s Static) Lookup(id string) (Metadata, bool) {
	m, ok := s[id]
	return m, ok
}

// IDs returns the catalog ids in sorted order.
func (s Static) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FromProject builds a catalog from the declared assets. Video assets
// default to a video stream plus one stereo audio stream; audio assets to
// one stereo audio stream. Declared streams and duration override that.
func FromProject(p config.Project, fps timecode.Ratio) (Static, error) {
	catalog := Static{}
	add := func(kind Kind, id string, asset config.MediaAsset) error {
		if _, dup := catalog[id]; dup {
			return fmt.Errorf("asset %q is declared in more than one asset group", id)
		}
		meta, err := mediaMetadata(kind, id, asset, fps)
		if err != nil {
			return err
		}
		meta.Path = resolvePath(p.Root, asset.File)
		catalog[id] = meta
		return nil
	}

	for _, id := range sortedKeys(p.Assets.Video) {
		if err := add(KindVideo, id, p.Assets.Video[id]); err != nil {
			return nil, err
		}
	}
	for _, id := range sortedKeys(p.Assets.Audio) {
		if err := add(KindAudio, id, p.Assets.Audio[id]); err != nil {
			return nil, err
		}
	}
	for _, id := range sortedKeys(p.Assets.Image) {
		if _, dup := catalog[id]; dup {
			return nil, fmt.Errorf("asset %q is declared in more than one asset group", id)
		}
		catalog[id] = Metadata{
			ID:       id,
			Kind:     KindImage,
			Path:     resolvePath(p.Root, p.Assets.Image[id].File),
			HasVideo: true,
		}
	}
	return catalog, nil
}

func mediaMetadata(kind Kind, id string, asset config.MediaAsset, fps timecode.Ratio) (Metadata, error) {
	meta := Metadata{ID: id, Kind: kind, HasVideo: kind == KindVideo}
	meta.Audio = []AudioStream{{Channels: 2, Layout: "stereo"}}

	if s := asset.Streams; s != nil {
		if s.Video != nil {
			if *s.Video && kind == KindAudio {
				return Metadata{}, fmt.Errorf("audio asset %q cannot declare a video stream", id)
			}
			meta.HasVideo = *s.Video
		}
		if s.Audio != nil {
			meta.Audio = make([]AudioStream, 0, len(s.Audio))
			for i, stream := range s.Audio {
				normalized, err := NormalizeStream(stream.Channels, stream.Layout)
				if err != nil {
					return Metadata{}, fmt.Errorf("asset %q audio stream %d: %w", id, i, err)
				}
				meta.Audio = append(meta.Audio, normalized)
			}
		}
		if s.Subtitles < 0 {
			return Metadata{}, fmt.Errorf("asset %q: subtitles must be >= 0", id)
		}
		meta.Subtitles = s.Subtitles
	}
	if kind == KindAudio && !meta.HasAudio() {
		return Metadata{}, fmt.Errorf("audio asset %q declares no audio streams", id)
	}

	if asset.Duration.IsSet() {
		t, err := timecode.Parse(asset.Duration.String())
		if err != nil {
			return Metadata{}, fmt.Errorf("asset %q duration: %w", id, err)
		}
		meta.DurationFrames, err = t.Frames(fps)
		if err != nil {
			return Metadata{}, fmt.Errorf("asset %q duration: %w", id, err)
		}
		meta.HasDuration = true
	}
	return meta, nil
}

// NormalizeStream fills whichever of channels or layout is missing. An
// empty declaration is stereo.
func NormalizeStream(channels int, layout string) (AudioStream, error) {
	layout = strings.ToLower(strings.TrimSpace(layout))
	if channels < 0 {
		return AudioStream{}, fmt.Errorf("channels must be positive")
	}
	switch {
	case channels == 0 && layout == "":
		return AudioStream{Channels: 2, Layout: "stereo"}, nil
	case channels == 0:
		n, ok := layoutChannels[layout]
		if !ok {
			return AudioStream{}, fmt.Errorf("unknown channel layout %q", layout)
		}
		return AudioStream{Channels: n, Layout: layout}, nil
	case layout == "":
		return AudioStream{Channels: channels, Layout: DefaultLayout(channels)}, nil
	}
	if n, ok := layoutChannels[layout]; ok && n != channels {
		return AudioStream{}, fmt.Errorf("layout %q has %d channels, not %d", layout, n, channels)
	}
	return AudioStream{Channels: channels, Layout: layout}, nil
}

// DefaultLayout names the conventional layout for a channel count.
func DefaultLayout(channels int) string {
	for _, known := range []string{"mono", "stereo", "2.1", "quad", "5.0", "5.1", "7.1"} {
		if layoutChannels[known] == channels {
			return known
		}
	}
	return fmt.Sprintf("%dch", channels)
}

var layoutChannels = map[string]int{
	"mono":   1,
	"stereo": 2,
	"2.1":    3,
	"quad":   4,
	"5.0":    5,
	"5.1":    6,
	"7.1":    8,
}

func resolvePath(root, file string) string {
	if file == "" || filepath.IsAbs(file) || root == "" {
		return file
	}
	return filepath.Join(root, file)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
