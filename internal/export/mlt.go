// Package export writes a compiled model to interchange formats: MLT XML
// for editors and renderers, and chapter lists as OGM text or JSON.
package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"emwy/internal/compile"
	"emwy/internal/timecode"
)

// Options control which parts of a model an export includes.
type Options struct {
	// Overlays includes overlay video tracks and additional audio tracks.
	// Consumers that only understand a single video and audio lane leave it
	// off and receive the base and main tracks.
	Overlays bool
}

const mainTractor = "tractor0"

// WriteMLT encodes m as an MLT XML document.
func WriteMLT(out io.Writer, m *compile.Model, opts Options) error {
	if m == nil {
		return errors.New("export: nil model")
	}
	w := &mltWriter{counters: map[string]int{}, producers: map[string]string{}}
	tractor, err := w.tractor(mainTractor, "", m, opts.Overlays)
	if err != nil {
		return err
	}
	tractor.Properties = append(props("emwy:version", "2"), tractor.Properties...)

	doc := mltDocument{
		LCNumeric: "C",
		Producer:  mainTractor,
		Profile:   profileElement(m.Profile()),
		Elements:  append(w.elements, tractor),
	}
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return errors.Wrap(err, "write mlt header")
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encode mlt")
	}
	if _, err := io.WriteString(out, "\n"); err != nil {
		return errors.Wrap(err, "write mlt")
	}
	return nil
}

// WriteMLTFile writes the MLT document to path atomically.
func WriteMLTFile(path string, m *compile.Model, opts Options) error {
	return WriteFile(path, func(w io.Writer) error {
		return WriteMLT(w, m, opts)
	})
}

func profileElement(p compile.Profile) mltProfile {
	num, den := reduce(p.Width, p.Height)
	return mltProfile{
		Description:      "emwy",
		Width:            p.Width,
		Height:           p.Height,
		Progressive:      1,
		SampleAspectNum:  1,
		SampleAspectDen:  1,
		DisplayAspectNum: num,
		DisplayAspectDen: den,
		FrameRateNum:     p.FPS.Num,
		FrameRateDen:     p.FPS.Den,
		Colorspace:       709,
	}
}

func reduce(num, den int) (int, int) {
	a, b := num, den
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return num, den
	}
	return num / a, den / a
}

type mltWriter struct {
	elements  []interface{}
	counters  map[string]int
	producers map[string]string
}

func (w *mltWriter) nextID(prefix string) string {
	w.counters[prefix]++
	return fmt.Sprintf("%s_%04d", prefix, w.counters[prefix])
}

func (w *mltWriter) emit(el interface{}) {
	w.elements = append(w.elements, el)
}

// tractor emits the playlists of m and returns a tractor stacking them.
// Nested models reuse it with a prefix that keeps playlist ids unique.
func (w *mltWriter) tractor(id, prefix string, m *compile.Model, full bool) (mltTractor, error) {
	t := mltTractor{ID: id, Out: m.Length() - 1}
	index := map[string]int{}
	mainAudio := -1

	for _, track := range m.Tracks() {
		switch track.Role {
		case compile.RoleSubtitles:
			continue
		case compile.RoleOverlay, compile.RoleMusic, compile.RoleCommentary:
			if !full {
				continue
			}
		}
		p, ok := m.Playlist(track.Playlist)
		if !ok {
			return mltTractor{}, errors.Errorf("export: track references unknown playlist %q", track.Playlist)
		}
		playlistID := prefix + p.ID
		if err := w.playlist(playlistID, p); err != nil {
			return mltTractor{}, err
		}
		hide := "audio"
		if track.Lane == compile.LaneAudio {
			hide = "video"
		}
		index[track.Playlist] = len(t.Multitrack.Tracks)
		if track.Role == compile.RoleMain {
			mainAudio = len(t.Multitrack.Tracks)
		}
		t.Multitrack.Tracks = append(t.Multitrack.Tracks, mltTrack{Producer: playlistID, Hide: hide})

		if track.Role == compile.RoleMusic || track.Role == compile.RoleCommentary {
			if mainAudio < 0 {
				return mltTractor{}, errors.Errorf("export: %s track without a main audio track", track.Role)
			}
			t.Transitions = append(t.Transitions, mltTransition{
				ID:  w.nextID("mix"),
				In:  0,
				Out: p.Length() - 1,
				Properties: props(
					"mlt_service", "mix",
					"a_track", strconv.Itoa(mainAudio),
					"b_track", strconv.Itoa(index[track.Playlist]),
					"always_active", "1",
					"sum", "1",
				),
			})
		}
	}

	if full {
		for _, o := range m.Overlays() {
			a, okA := index[o.Base]
			b, okB := index[o.Overlay]
			if !okA || !okB {
				return mltTractor{}, errors.Errorf("export: overlay %q is not on the stack", o.Overlay)
			}
			for _, span := range o.Active {
				t.Transitions = append(t.Transitions, mltTransition{
					ID:  w.nextID("composite"),
					In:  span.Start,
					Out: span.End - 1,
					Properties: props(
						"mlt_service", "composite",
						"a_track", strconv.Itoa(a),
						"b_track", strconv.Itoa(b),
						"geometry", compositeGeometry(o.Geometry, o.Opacity),
						"fill", "1",
					),
				})
			}
		}
	}
	return t, nil
}

// compositeGeometry renders x/y:wxh:opacity in percent.
func compositeGeometry(g [4]float64, opacity float64) string {
	return fmt.Sprintf("%s%%/%s%%:%s%%x%s%%:%s",
		percent(g[0]), percent(g[1]), percent(g[2]), percent(g[3]), percent(opacity))
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', -1, 64)
}

// playlist emits one compiled playlist. Entries touched by a same-lane
// transition are trimmed and the overlap window becomes a small tractor
// between them, so the playlist keeps its compiled length.
func (w *mltWriter) playlist(id string, p compile.Playlist) error {
	type trim struct{ head, tail int64 }
	trims := make([]trim, len(p.Entries))
	incoming := make(map[int]compile.Transition, len(p.Transitions))
	for _, tr := range p.Transitions {
		trims[tr.OutIndex].tail += tr.TailA
		trims[tr.InIndex].head += tr.HeadB
		incoming[tr.InIndex] = tr
	}

	out := mltPlaylist{ID: id}
	for i, e := range p.Entries {
		if tr, ok := incoming[i]; ok {
			mixID, err := w.sameLaneTransition(id, i, p, tr)
			if err != nil {
				return err
			}
			out.Items = append(out.Items, mltEntry{Producer: mixID, In: 0, Out: tr.Duration() - 1})
		}
		body := e.Length - trims[i].head - trims[i].tail
		if body <= 0 {
			continue
		}
		item, err := w.item(entryKey(id, i), e, trims[i].head, body)
		if err != nil {
			return err
		}
		out.Items = append(out.Items, item)
	}
	w.emit(out)
	return nil
}

func entryKey(playlist string, index int) string {
	return playlist + "#" + strconv.Itoa(index)
}

func (w *mltWriter) sameLaneTransition(playlistID string, index int, p compile.Playlist, tr compile.Transition) (string, error) {
	d := tr.Duration()
	outgoing := p.Entries[tr.OutIndex]
	incoming := p.Entries[tr.InIndex]

	a, err := w.item(entryKey(playlistID, tr.OutIndex), outgoing, outgoing.Length-tr.TailA, d)
	if err != nil {
		return "", err
	}
	b, err := w.item(entryKey(playlistID, index), incoming, -tr.TailA, d)
	if err != nil {
		return "", err
	}

	id := w.nextID("transition")
	w.emit(mltPlaylist{ID: id + "_a", Items: []interface{}{a}})
	w.emit(mltPlaylist{ID: id + "_b", Items: []interface{}{b}})

	hide := "audio"
	service := props("mlt_service", "luma")
	switch {
	case p.Lane == compile.LaneAudio:
		hide = "video"
		service = props("mlt_service", "mix", "start", "0", "end", "1")
	case tr.Kind == "wipe":
		service = props("mlt_service", "luma", "resource", "%luma01.pgm")
	}
	w.emit(mltTractor{
		ID:  id,
		Out: d - 1,
		Multitrack: mltMultitrack{Tracks: []mltTrack{
			{Producer: id + "_a", Hide: hide},
			{Producer: id + "_b", Hide: hide},
		}},
		Transitions: []mltTransition{{
			ID:         id + "_mix",
			In:         0,
			Out:        d - 1,
			Properties: append(service, props("a_track", "0", "b_track", "1")...),
		}},
	})
	return id, nil
}

// item returns the playlist element showing length frames of e starting
// offset frames after its start. Offsets outside the entry reach into
// source handles and are clamped at the media start.
func (w *mltWriter) item(key string, e compile.Entry, offset, length int64) (interface{}, error) {
	switch e.Kind {
	case compile.EntrySource:
		producer, err := w.sourceProducer(key, e)
		if err != nil {
			return nil, err
		}
		in, err := timecode.ScaleFrames(e.Source.In, e.Source.Speed)
		if err != nil {
			return nil, err
		}
		in += offset
		// A source that starts at asset frame 0 has no handle before it, so
		// the overlap window repeats the first frames of the body.
		if in < 0 {
			in = 0
		}
		return mltEntry{Producer: producer, In: in, Out: in + length - 1}, nil

	case compile.EntryBlank:
		if e.Fill == compile.FillBlack {
			return w.colorEntry("#000000", length), nil
		}
		return mltBlank{Length: length}, nil

	case compile.EntryGenerator:
		gen := e.Generator
		if gen == nil {
			return nil, errors.Errorf("export: generator entry at %s has no generator", e.Origin)
		}
		switch {
		case gen.Kind == "silence":
			return mltBlank{Length: length}, nil
		case gen.Kind == "overlay_text":
			return w.textEntry(gen, length), nil
		case e.Lane != compile.LaneVideo:
			return nil, errors.Errorf("export: generator %q on %s lane", gen.Kind, e.Lane)
		}
		color := "#000000"
		if gen.Appearance != nil && gen.Appearance.Background.Color != "" {
			color = gen.Appearance.Background.Color
		}
		return w.colorEntry(color, length), nil

	case compile.EntryNested:
		if e.Nested == nil {
			return nil, errors.Errorf("export: nested entry at %s has no model", e.Origin)
		}
		// Both lanes of a nested segment share one tractor.
		nestedKey := "nested:" + e.Origin.String()
		id, ok := w.producers[nestedKey]
		if !ok {
			id = w.nextID("nested")
			t, err := w.tractor(id, id+"_", e.Nested, false)
			if err != nil {
				return nil, err
			}
			w.emit(t)
			w.producers[nestedKey] = id
		}
		in := offset
		if in+length > e.Length {
			in = e.Length - length
		}
		if in < 0 {
			in = 0
		}
		return mltEntry{Producer: id, In: in, Out: in + length - 1}, nil
	}
	return nil, errors.Errorf("export: unsupported entry kind %q", e.Kind)
}

// sourceProducer emits one producer per source entry; transition windows
// reuse it.
func (w *mltWriter) sourceProducer(key string, e compile.Entry) (string, error) {
	if id, ok := w.producers[key]; ok {
		return id, nil
	}
	src := e.Source
	if src == nil {
		return "", errors.Errorf("export: source entry at %s has no source", e.Origin)
	}
	id := w.nextID("source")
	p := mltProducer{ID: id}
	if !src.Speed.Equal(timecode.Ratio{Num: 1, Den: 1}) {
		speed := src.Speed.Decimal()
		p.Properties = props(
			"mlt_service", "timewarp",
			"resource", speed+":"+src.Path,
			"warp_speed", speed,
		)
	} else {
		p.Properties = props("mlt_service", "avformat", "resource", src.Path)
	}
	if e.Lane == compile.LaneAudio && len(src.Streams) == 1 {
		p.Properties = append(p.Properties, props("audio_index", strconv.Itoa(src.Streams[0]))...)
	}
	if e.Lane == compile.LaneAudio && src.Normalize != nil {
		p.Filters = append(p.Filters, mltFilter{Properties: props(
			"mlt_service", "loudness",
			"program", strconv.FormatFloat(*src.Normalize, 'f', -1, 64),
		)})
	}
	w.emit(p)
	w.producers[key] = id
	return id, nil
}

func (w *mltWriter) colorEntry(color string, length int64) mltEntry {
	id := w.nextID("color")
	w.emit(mltProducer{ID: id, Properties: props(
		"mlt_service", "color",
		"resource", color,
		"length", strconv.FormatInt(length, 10),
		"out", strconv.FormatInt(length-1, 10),
	)})
	return mltEntry{Producer: id, In: 0, Out: length - 1}
}

func (w *mltWriter) textEntry(gen *compile.GeneratorRef, length int64) mltEntry {
	id := w.nextID("text")
	text := gen.Text
	if text == "" {
		text = gen.Title
	}
	p := mltProducer{ID: id, Properties: props(
		"mlt_service", "qtext",
		"text", text,
		"length", strconv.FormatInt(length, 10),
		"out", strconv.FormatInt(length-1, 10),
	)}
	if look := gen.Appearance; look != nil {
		p.Properties = append(p.Properties, props(
			"fgcolour", look.TextColor,
			"size", strconv.Itoa(look.FontSize),
		)...)
		if look.FontFile != "" {
			p.Properties = append(p.Properties, props("family", look.FontFile)...)
		}
		if look.Background.Color != "" {
			p.Properties = append(p.Properties, props("bgcolour", look.Background.Color)...)
		}
	}
	w.emit(p)
	return mltEntry{Producer: id, In: 0, Out: length - 1}
}
