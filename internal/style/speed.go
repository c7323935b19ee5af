package style

import (
	"fmt"
	"strings"

	"emwy/internal/timecode"
)

// MismatchError reports video and audio speeds that differ after
// resolution.
type MismatchError struct {
	Video timecode.Ratio
	Audio timecode.Ratio
	Style string
}

func (e *MismatchError) Error() string {
	if e.Style != "" {
		return fmt.Sprintf("video speed %s and audio speed %s differ after applying playback style %q",
			e.Video.Decimal(), e.Audio.Decimal(), e.Style)
	}
	return fmt.Sprintf("video speed %s and audio speed %s must match", e.Video.Decimal(), e.Audio.Decimal())
}

// Speeds is the effective per-lane speed of one source entry.
type Speeds struct {
	Video timecode.Ratio
	Audio timecode.Ratio
}

// ResolveSpeeds merges per-lane overrides with a playback style. A value
// set on the entry wins for its lane; an unset lane takes the style speed,
// or the other lane's value when no style is named, or the project default.
// Lanes that still differ are a *MismatchError.
func (r *Registry) ResolveSpeeds(styleID, videoRaw, audioRaw string) (Speeds, error) {
	video, videoSet, err := parseOptionalSpeed(videoRaw)
	if err != nil {
		return Speeds{}, fmt.Errorf("video.speed: %w", err)
	}
	audio, audioSet, err := parseOptionalSpeed(audioRaw)
	if err != nil {
		return Speeds{}, fmt.Errorf("audio.speed: %w", err)
	}

	fallback := r.defaultSpeed
	if styleID != "" {
		p, err := r.Playback(styleID)
		if err != nil {
			return Speeds{}, err
		}
		fallback = p.Speed
	} else if videoSet != audioSet {
		if videoSet {
			fallback = video
		} else {
			fallback = audio
		}
	}
	if !videoSet {
		video = fallback
	}
	if !audioSet {
		audio = fallback
	}
	if !video.Equal(audio) {
		return Speeds{}, &MismatchError{Video: video, Audio: audio, Style: styleID}
	}
	return Speeds{Video: video, Audio: audio}, nil
}

func parseOptionalSpeed(raw string) (timecode.Ratio, bool, error) {
	if strings.TrimSpace(raw) == "" {
		return timecode.Ratio{}, false, nil
	}
	speed, err := timecode.ParseSpeed(raw)
	if err != nil {
		return timecode.Ratio{}, false, err
	}
	return speed, true, nil
}
