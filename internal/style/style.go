// Package style resolves named playback, card and overlay-text presets
// against per-entry overrides. The registry is built once per project and
// is read-only afterwards, so concurrent compiles may share it.
package style

import (
	"fmt"
	"sort"
	"strings"

	"emwy/internal/config"
	"emwy/internal/timecode"
)

// Group names a style namespace.
type Group string

const (
	GroupCard        Group = "cards"
	GroupOverlayText Group = "overlay_text_styles"
	GroupPlayback    Group = "playback_styles"
)

// NotFoundError reports a reference to an undefined style.
type NotFoundError struct {
	Group Group
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("style %q not found in assets.%s", e.ID, e.Group)
}

// Playback is a resolved playback style.
type Playback struct {
	ID               string
	Speed            timecode.Ratio
	OverlayTextStyle string
}

// Registry holds every style a project defines.
type Registry struct {
	cards        map[string]config.TextAppearance
	texts        map[string]config.TextAppearance
	playback     map[string]Playback
	defaultSpeed timecode.Ratio
}

// NewRegistry validates and indexes the project's styles.
func NewRegistry(assets config.AssetsConfig, defaults config.DefaultsConfig) (*Registry, error) {
	r := &Registry{
		cards:        copyAppearances(assets.Cards),
		texts:        copyAppearances(assets.OverlayTextStyles),
		playback:     make(map[string]Playback, len(assets.PlaybackStyles)),
		defaultSpeed: timecode.One,
	}
	if raw := strings.TrimSpace(defaults.Video.Speed); raw != "" {
		speed, err := timecode.ParseSpeed(raw)
		if err != nil {
			return nil, fmt.Errorf("defaults.video.speed: %w", err)
		}
		r.defaultSpeed = speed
	}

	ids := make([]string, 0, len(assets.PlaybackStyles))
	for id := range assets.PlaybackStyles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		def := assets.PlaybackStyles[id]
		if strings.TrimSpace(def.Speed) == "" {
			return nil, fmt.Errorf("playback style %q requires speed", id)
		}
		speed, err := timecode.ParseSpeed(def.Speed)
		if err != nil {
			return nil, fmt.Errorf("playback style %q: %w", id, err)
		}
		if def.OverlayTextStyle != "" {
			if _, ok := r.texts[def.OverlayTextStyle]; !ok {
				return nil, &NotFoundError{Group: GroupOverlayText, ID: def.OverlayTextStyle}
			}
		}
		r.playback[id] = Playback{ID: id, Speed: speed, OverlayTextStyle: def.OverlayTextStyle}
	}
	return r, nil
}

// DefaultSpeed is the project-wide speed for entries without overrides.
func (r *Registry) DefaultSpeed() timecode.Ratio { return r.defaultSpeed }

// Playback looks up a playback style.
func (r *Registry) Playback(id string) (Playback, error) {
	p, ok := r.playback[id]
	if !ok {
		return Playback{}, &NotFoundError{Group: GroupPlayback, ID: id}
	}
	return p, nil
}

// HasCard reports whether a card style is defined.
func (r *Registry) HasCard(id string) bool {
	_, ok := r.cards[id]
	return ok
}

// HasOverlayText reports whether an overlay text style is defined.
func (r *Registry) HasOverlayText(id string) bool {
	_, ok := r.texts[id]
	return ok
}

func copyAppearances(src map[string]config.TextAppearance) map[string]config.TextAppearance {
	out := make(map[string]config.TextAppearance, len(src))
	for id, look := range src {
		out[id] = cloneAppearance(look)
	}
	return out
}
