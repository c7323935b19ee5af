package style

import (
	"fmt"
	"math/big"
	"strings"

	"emwy/internal/config"
	"emwy/internal/timecode"
)

// Background kinds.
const (
	BackgroundColor       = "color"
	BackgroundGradient    = "gradient"
	BackgroundImage       = "image"
	BackgroundTransparent = "transparent"
)

// Appearance is the effective text look of a card or overlay text entry.
type Appearance struct {
	FontFile   string     `json:"font_file,omitempty"`
	FontSize   int        `json:"font_size"`
	TextColor  string     `json:"text_color"`
	Background Background `json:"background"`
	Animate    *Animation `json:"animate,omitempty"`
}

// Background is the effective background of a card.
type Background struct {
	Kind      string `json:"kind"`
	Color     string `json:"color,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Direction string `json:"direction,omitempty"`
	Asset     string `json:"asset,omitempty"`
}

// Transparent reports whether the background lets lower tracks show.
func (b Background) Transparent() bool { return b.Kind == BackgroundTransparent }

// Animation cycles overlay text through Values at FPS changes per second.
type Animation struct {
	Kind   string         `json:"kind"`
	Values []string       `json:"values"`
	FPS    timecode.Ratio `json:"fps"`
}

var cardDefaults = Appearance{
	FontSize:   128,
	TextColor:  "#8e4700",
	Background: Background{Kind: BackgroundColor, Color: "#3399ff"},
}

var overlayTextDefaults = Appearance{
	FontSize:   64,
	TextColor:  "#ffffff",
	Background: Background{Kind: BackgroundTransparent},
}

// Card merges a card style with the entry's inline fields.
func (r *Registry) Card(styleID string, inline config.TextAppearance) (Appearance, error) {
	var preset config.TextAppearance
	if styleID != "" {
		look, ok := r.cards[styleID]
		if !ok {
			return Appearance{}, &NotFoundError{Group: GroupCard, ID: styleID}
		}
		preset = look
	}
	if inline.Animate != nil || preset.Animate != nil {
		return Appearance{}, fmt.Errorf("animate is only supported on overlay text")
	}
	return resolve(mergeAppearance(preset, inline), cardDefaults)
}

// OverlayText merges an overlay text style with the entry's inline fields.
func (r *Registry) OverlayText(styleID string, inline config.TextAppearance) (Appearance, error) {
	var preset config.TextAppearance
	if styleID != "" {
		look, ok := r.texts[styleID]
		if !ok {
			return Appearance{}, &NotFoundError{Group: GroupOverlayText, ID: styleID}
		}
		preset = look
	}
	return resolve(mergeAppearance(preset, inline), overlayTextDefaults)
}

// mergeAppearance applies override on top of base, field by field. An
// explicit background on either side beats a background image.
func mergeAppearance(base, override config.TextAppearance) config.TextAppearance {
	result := cloneAppearance(base)
	if strings.TrimSpace(override.FontFile) != "" {
		result.FontFile = override.FontFile
	}
	if override.FontSize != nil {
		value := *override.FontSize
		result.FontSize = &value
	}
	if strings.TrimSpace(override.TextColor) != "" {
		result.TextColor = override.TextColor
	}
	switch {
	case override.Background != nil:
		bg := *override.Background
		result.Background = &bg
		result.BackgroundImage = ""
	case override.BackgroundImage != "" && base.Background == nil:
		result.BackgroundImage = override.BackgroundImage
	}
	if override.Animate != nil {
		anim := *override.Animate
		anim.Values = append([]string(nil), override.Animate.Values...)
		result.Animate = &anim
	}
	return result
}

func cloneAppearance(look config.TextAppearance) config.TextAppearance {
	clone := look
	if look.FontSize != nil {
		value := *look.FontSize
		clone.FontSize = &value
	}
	if look.Background != nil {
		bg := *look.Background
		clone.Background = &bg
	}
	if look.Animate != nil {
		anim := *look.Animate
		anim.Values = append([]string(nil), look.Animate.Values...)
		clone.Animate = &anim
	}
	return clone
}

func resolve(look config.TextAppearance, defaults Appearance) (Appearance, error) {
	out := defaults
	out.FontFile = look.FontFile
	if look.FontSize != nil {
		if *look.FontSize <= 0 {
			return Appearance{}, fmt.Errorf("font_size must be positive")
		}
		out.FontSize = *look.FontSize
	}
	if look.TextColor != "" {
		out.TextColor = look.TextColor
	}

	switch {
	case look.Background != nil:
		bg, err := checkBackground(*look.Background)
		if err != nil {
			return Appearance{}, err
		}
		out.Background = bg
	case look.BackgroundImage != "":
		out.Background = Background{Kind: BackgroundImage, Asset: look.BackgroundImage}
	}

	if look.Animate != nil {
		anim, err := checkAnimation(*look.Animate)
		if err != nil {
			return Appearance{}, err
		}
		out.Animate = &anim
	}
	return out, nil
}

func checkBackground(bg config.Background) (Background, error) {
	out := Background{
		Kind:      strings.TrimSpace(bg.Kind),
		Color:     bg.Color,
		From:      bg.From,
		To:        bg.To,
		Direction: bg.Direction,
		Asset:     bg.Asset,
	}
	switch out.Kind {
	case BackgroundColor:
		if out.Color == "" {
			return Background{}, fmt.Errorf("color background requires color")
		}
	case BackgroundGradient:
		if out.From == "" || out.To == "" {
			return Background{}, fmt.Errorf("gradient background requires from and to")
		}
		if out.Direction == "" {
			out.Direction = "vertical"
		}
		if out.Direction != "vertical" && out.Direction != "horizontal" {
			return Background{}, fmt.Errorf("gradient direction must be vertical or horizontal")
		}
	case BackgroundImage:
		if out.Asset == "" {
			return Background{}, fmt.Errorf("image background requires asset")
		}
	case BackgroundTransparent:
	default:
		return Background{}, fmt.Errorf("unsupported background kind %q", bg.Kind)
	}
	return out, nil
}

func checkAnimation(anim config.Animation) (Animation, error) {
	kind := anim.Kind
	if kind == "" {
		kind = "cycle"
	}
	if kind != "cycle" {
		return Animation{}, fmt.Errorf("animate kind must be cycle")
	}
	if len(anim.Values) == 0 {
		return Animation{}, fmt.Errorf("animate values must be a non-empty list")
	}
	out := Animation{Kind: kind, Values: append([]string(nil), anim.Values...), FPS: timecode.One}
	switch {
	case anim.Cadence.IsSet():
		cadence, err := timecode.Parse(anim.Cadence.String())
		if err != nil || cadence.IsFrame() || cadence.Seconds().Sign() <= 0 {
			return Animation{}, fmt.Errorf("animate cadence must be a positive number of seconds")
		}
		secs := cadence.Seconds()
		fps, err := timecode.NewRatio(secs.Den, secs.Num)
		if err != nil {
			return Animation{}, err
		}
		out.FPS = fps
	case anim.FPS != "":
		fps, err := timecode.ParseRate(anim.FPS)
		if err != nil {
			return Animation{}, fmt.Errorf("animate fps: %w", err)
		}
		out.FPS = fps
	}
	return out, nil
}

// ValueAt returns which animation value is showing at a frame offset
// within the entry.
func (a Animation) ValueAt(frame int64, fps timecode.Ratio) string {
	if len(a.Values) == 0 {
		return ""
	}
	// changes = floor(frame / fps * animFPS)
	pos := new(big.Rat).Mul(timecode.SecondsAt(frame, fps), a.FPS.Rat())
	idx := new(big.Int).Quo(pos.Num(), pos.Denom()).Int64()
	return a.Values[idx%int64(len(a.Values))]
}
