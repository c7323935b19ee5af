package compile

import (
	"emwy/internal/probe"
)

// streamShape is what a source-backed entry presents on its lane.
type streamShape struct {
	audio     []probe.AudioStream
	subtitles int
	origin    Ref
}

// shapeOf returns the shape of a source-backed entry. Blanks and generators
// have no shape and never trigger a check.
func shapeOf(e Entry) (streamShape, bool) {
	switch {
	case e.Kind == EntrySource && e.Source != nil:
		return streamShape{audio: e.Source.Shape, subtitles: e.Source.Subtitles, origin: e.Origin}, true
	case e.Kind == EntryNested && e.Nested != nil && e.Lane == LaneAudio:
		// A nested timeline is checked on its own; its first source stands
		// for the whole block.
		for _, p := range e.Nested.playlists {
			if p.ID != PlaylistMain {
				continue
			}
			for _, inner := range p.Entries {
				if s, ok := shapeOf(inner); ok {
					s.origin = e.Origin
					return s, true
				}
			}
		}
	}
	return streamShape{}, false
}

// checkStreams walks consecutive source-backed entries and fails on the
// first change of stream shape.
func checkStreams(p Playlist) error {
	if p.Lane == LaneVideo {
		return nil
	}
	var (
		prev    streamShape
		hasPrev bool
	)
	for _, e := range p.Entries {
		cur, ok := shapeOf(e)
		if !ok {
			continue
		}
		if hasPrev {
			if err := compareShapes(p.Lane, prev, cur); err != nil {
				return err
			}
		}
		prev, hasPrev = cur, true
	}
	return nil
}

func compareShapes(lane Lane, a, b streamShape) error {
	if lane == LaneSubtitles {
		if a.subtitles != b.subtitles {
			return diagf(StreamIncompatible, b.origin,
				"subtitle stream count changes from %d at %s to %d", a.subtitles, a.origin, b.subtitles)
		}
		return nil
	}
	if len(a.audio) != len(b.audio) {
		return diagf(StreamIncompatible, b.origin,
			"audio stream count changes from %d at %s to %d; select streams or add audio.remap",
			len(a.audio), a.origin, len(b.audio))
	}
	for i := range a.audio {
		if a.audio[i] != b.audio[i] {
			return diagf(StreamIncompatible, b.origin,
				"audio stream %d layout changes from %s (%d ch) at %s to %s (%d ch); add audio.remap",
				i, a.audio[i].Layout, a.audio[i].Channels, a.origin, b.audio[i].Layout, b.audio[i].Channels)
		}
	}
	return nil
}

func (b *builder) checkBaseStreams() error {
	if err := checkStreams(b.audio); err != nil {
		return err
	}
	if b.subtitles == nil {
		return nil
	}
	if err := checkSubtitlePresence(b.base.segments); err != nil {
		return err
	}
	return checkStreams(*b.subtitles)
}

// checkSubtitlePresence fails when consecutive sources switch between
// carrying subtitles and lacking them. A source without subtitles takes
// part unless it declares fill_missing.subtitles.
func checkSubtitlePresence(segments []placed) error {
	var (
		prev    placed
		prevHas bool
		hasPrev bool
	)
	for _, s := range segments {
		if s.subs == nil {
			continue
		}
		has := s.subs.Kind == EntrySource
		if !has && !s.subsUndeclared {
			continue
		}
		if hasPrev && has != prevHas {
			without := s.ref
			if has {
				without = prev.ref
			}
			return diagf(StreamIncompatible, s.ref,
				"subtitles change from %s at %s to %s at %s; set fill_missing.subtitles: empty on %s",
				presence(prevHas), prev.ref, presence(has), s.ref, without)
		}
		prev, prevHas, hasPrev = s, has, true
	}
	return nil
}

func presence(has bool) string {
	if has {
		return "present"
	}
	return "absent"
}
