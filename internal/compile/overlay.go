package compile

import (
	"fmt"
	"strconv"
	"strings"

	"emwy/internal/config"
	"emwy/internal/timecode"
)

// compileOverlays expands every enabled overlay track into a video playlist
// aligned with the base track and records its composite.
func (b *builder) compileOverlays() error {
	baseLen := b.video.Length()
	seen := map[string]bool{}
	for i, track := range b.c.doc.Timeline.Overlays {
		if !track.IsEnabled() {
			continue
		}
		ref := Ref{Scope: "timeline.overlays", Index: i, ID: track.ID}
		id := strings.TrimSpace(track.ID)
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		playlistID := "video_overlay_" + id
		if seen[playlistID] {
			return diagf(InvalidValue, ref.With("id"), "overlay playlist id %q already exists", playlistID)
		}
		seen[playlistID] = true

		kind := strings.TrimSpace(track.Kind)
		if kind == "" {
			kind = "over"
		}
		if kind != "over" {
			return diagf(InvalidValue, ref.With("kind"), "overlay kind must be over, got %q", track.Kind)
		}
		geometry, opacity, err := overlayPlacement(track, ref)
		if err != nil {
			return err
		}

		segments, err := b.overlaySegments(track, ref)
		if err != nil {
			return err
		}
		playlist := assemble(playlistID, LaneVideo, segments)
		overLen := playlist.Length()
		switch {
		case overLen > baseLen:
			return diagf(DurationMismatch, ref, "overlay is %d frames but the base timeline is %d", overLen, baseLen)
		case overLen < baseLen:
			playlist.Entries = append(playlist.Entries, Entry{
				Lane: LaneVideo, Start: overLen, Length: baseLen - overLen,
				Kind: EntryBlank, Fill: FillTransparent, Origin: ref,
			})
		}
		if err := b.compileTransitions(&playlist, segments); err != nil {
			return err
		}

		declared, err := b.declaredRange(track, ref, baseLen)
		if err != nil {
			return err
		}
		b.overlays = append(b.overlays, playlist)
		b.composite = append(b.composite, OverlayTransition{
			Base:     PlaylistBase,
			Overlay:  playlistID,
			Kind:     kind,
			Declared: declared,
			Active:   activeSpans(playlist, declared),
			Geometry: geometry,
			Opacity:  opacity,
		})
	}
	return nil
}

func (b *builder) overlaySegments(track config.OverlayTrack, ref Ref) ([]placed, error) {
	hasSegments := len(track.Segments) > 0
	hasTemplate := track.Template != nil || track.Apply != nil
	switch {
	case hasSegments && hasTemplate:
		return nil, diagf(OverlayConflict, ref, "overlay track cannot mix segments with template/apply")
	case hasSegments:
		scope := fmt.Sprintf("%s[%d].segments", ref.Scope, ref.Index)
		return b.expandSegments(scope, track.Segments, modeOverlay)
	case hasTemplate:
		return b.expandTemplate(track, ref)
	}
	return nil, diagf(OverlayConflict, ref, "overlay track requires segments or template/apply")
}

// applyRule is a parsed overlay apply rule.
type applyRule struct {
	kind      string
	stream    Lane
	min, max  *timecode.Ratio
	style     string
	textStyle string
}

func (b *builder) parseApply(rule *config.ApplyRule, ref Ref) (applyRule, error) {
	ref = ref.With("apply")
	out := applyRule{kind: strings.TrimSpace(rule.Kind)}
	switch out.kind {
	case "speed":
		switch strings.TrimSpace(rule.Stream) {
		case "", "video":
			out.stream = LaneVideo
		case "audio":
			out.stream = LaneAudio
		default:
			return applyRule{}, diagf(InvalidValue, ref.With("stream"), "apply stream must be video or audio")
		}
		for _, bound := range []struct {
			raw   string
			field string
			dst   **timecode.Ratio
		}{{rule.MinSpeed, "min_speed", &out.min}, {rule.MaxSpeed, "max_speed", &out.max}} {
			if strings.TrimSpace(bound.raw) == "" {
				continue
			}
			v, err := timecode.ParseSpeed(bound.raw)
			if err != nil {
				return applyRule{}, wrapDiag(InvalidValue, ref.With(bound.field), err)
			}
			*bound.dst = &v
		}
		if out.min == nil && out.max == nil {
			return applyRule{}, diagf(InvalidValue, ref, "apply speed requires min_speed or max_speed")
		}
		if out.min != nil && out.max != nil && out.min.Cmp(*out.max) > 0 {
			return applyRule{}, diagf(InvalidValue, ref, "apply min_speed must be <= max_speed")
		}
	case "playback_style":
		out.style = strings.TrimSpace(rule.Style)
		if out.style == "" {
			return applyRule{}, diagf(InvalidValue, ref.With("style"), "apply playback_style requires style")
		}
		pb, err := b.c.styles.Playback(out.style)
		if err != nil {
			return applyRule{}, wrapDiag(UnresolvedStyle, ref.With("style"), err)
		}
		out.textStyle = pb.OverlayTextStyle
	default:
		return applyRule{}, diagf(InvalidValue, ref.With("kind"), "apply kind must be speed or playback_style, got %q", rule.Kind)
	}
	return out, nil
}

// match reports whether the rule covers a base segment and the speed that
// matched.
func (r applyRule) match(s placed) (timecode.Ratio, bool) {
	if s.kind != config.SegmentSource || s.speeds == nil {
		return timecode.Ratio{}, false
	}
	speed := s.speeds.Video
	if r.stream == LaneAudio {
		speed = s.speeds.Audio
	}
	switch r.kind {
	case "speed":
		if r.min != nil && speed.Cmp(*r.min) < 0 {
			return timecode.Ratio{}, false
		}
		if r.max != nil && speed.Cmp(*r.max) > 0 {
			return timecode.Ratio{}, false
		}
		return speed, true
	case "playback_style":
		return speed, s.style == r.style
	}
	return timecode.Ratio{}, false
}

// expandTemplate walks the base segments in order and emits one overlay
// entry per base entry: the template on a match, transparent otherwise.
func (b *builder) expandTemplate(track config.OverlayTrack, ref Ref) ([]placed, error) {
	if track.Template == nil || track.Apply == nil {
		return nil, diagf(OverlayConflict, ref, "overlay template requires template and apply settings")
	}
	tmplRef := ref.With("template")
	if track.Template.Kind != config.SegmentGenerator || track.Template.Generator == nil {
		return nil, diagf(InvalidValue, tmplRef, "overlay template only supports generator entries")
	}
	tmpl := track.Template.Generator
	if tmpl.Duration.IsSet() {
		return nil, diagf(InvalidValue, tmplRef.With("duration"), "overlay template generator must not set duration")
	}
	rule, err := b.parseApply(track.Apply, ref)
	if err != nil {
		return nil, err
	}

	base := b.base.segments
	out := make([]placed, len(base))
	for i, s := range base {
		speed, ok := rule.match(s)
		if !ok {
			out[i] = placed{
				ref: s.ref, start: s.start, length: s.length,
				video: blankEntry(LaneVideo, s.length, FillTransparent, s.ref),
			}
			continue
		}
		gen := *tmpl
		gen.Common = config.Common{Title: tmpl.Title}
		speedText := speed.Decimal()
		gen.Title = strings.ReplaceAll(gen.Title, "{speed}", speedText)
		gen.Text = strings.ReplaceAll(gen.Text, "{speed}", speedText)
		if gen.Kind == "overlay_text" && gen.Style == "" && rule.textStyle != "" {
			gen.Style = rule.textStyle
		}
		p, err := b.expandGenerator(&gen, tmplRef, modeOverlay, s.length)
		if err != nil {
			return nil, err
		}
		p.ref = s.ref
		p.start = s.start
		p.video.Origin = s.ref
		out[i] = p
	}
	return out, nil
}

func overlayPlacement(track config.OverlayTrack, ref Ref) ([4]float64, float64, error) {
	geometry := [4]float64{0, 0, 1, 1}
	if track.Geometry != nil {
		if len(track.Geometry) != 4 {
			return geometry, 0, diagf(InvalidValue, ref.With("geometry"), "geometry must be [x, y, w, h]")
		}
		for i, v := range track.Geometry {
			if v < 0 || v > 1 {
				return geometry, 0, diagf(InvalidValue, ref.With("geometry"), "geometry values must be within 0..1, got %g", v)
			}
			geometry[i] = v
		}
		if geometry[2] == 0 || geometry[3] == 0 {
			return geometry, 0, diagf(InvalidValue, ref.With("geometry"), "geometry width and height must be positive")
		}
	}
	opacity := 1.0
	if track.Opacity != nil {
		opacity = *track.Opacity
		if opacity < 0 || opacity > 1 {
			return geometry, 0, diagf(InvalidValue, ref.With("opacity"), "opacity must be within 0..1, got %g", opacity)
		}
	}
	return geometry, opacity, nil
}

// declaredRange resolves the overlay's [in, out) in stack time. An out
// that overshoots the base by one frame is rounding noise and is clamped.
func (b *builder) declaredRange(track config.OverlayTrack, ref Ref, baseLen int64) (Span, error) {
	span := Span{Start: 0, End: baseLen}
	if track.In.IsSet() {
		in, err := b.frames(track.In, ref.With("in"))
		if err != nil {
			return Span{}, err
		}
		span.Start = in
	}
	if track.Out.IsSet() {
		out, err := b.frames(track.Out, ref.With("out"))
		if err != nil {
			return Span{}, err
		}
		switch {
		case out == baseLen+1:
			b.warn(ref.With("out"), "out frame %d clamped to base length %d", out, baseLen)
			out = baseLen
		case out > baseLen:
			return Span{}, diagf(InvalidRange, ref.With("out"), "out frame %d is past the base timeline (%d frames)", out, baseLen)
		}
		span.End = out
	}
	if span.Start >= span.End {
		return Span{}, diagf(InvalidRange, ref, "overlay requires in < out (frames %d to %d)", span.Start, span.End)
	}
	return span, nil
}

// activeSpans intersects the declared range with the maximal runs of
// non-transparent entries in the overlay playlist.
func activeSpans(p Playlist, declared Span) []Span {
	var runs []Span
	for _, e := range p.Entries {
		if e.Transparent() || e.Length == 0 {
			continue
		}
		span := Span{Start: e.Start, End: e.End()}
		if n := len(runs); n > 0 && runs[n-1].End == span.Start {
			runs[n-1].End = span.End
			continue
		}
		runs = append(runs, span)
	}
	var active []Span
	for _, run := range runs {
		if clipped, ok := run.Intersect(declared); ok {
			active = append(active, clipped)
		}
	}
	return active
}
