package compile

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"emwy/internal/config"
	"emwy/internal/probe"
	"emwy/internal/style"
	"emwy/internal/timecode"
)

// mode selects which lanes a segment expands into.
type mode int

const (
	modeBase       mode = iota // video, audio and subtitles
	modeOverlay                // video only, transparent by default
	modeAudioTrack             // audio only
)

var (
	videoGenerators = map[string]bool{"chapter_card": true, "title_card": true, "black": true, "still": true}
	audioGenerators = map[string]bool{"silence": true}
)

// placed is one enabled segment after expansion, positioned on its track.
type placed struct {
	ref    Ref
	common config.Common
	kind   config.SegmentKind
	start  int64
	length int64

	// playback style and speeds of a source segment
	style  string
	speeds *style.Speeds

	video *Entry
	audio *Entry
	subs  *Entry

	// set when a source has no subtitles and declares no subtitles fill
	subsUndeclared bool
}

func (p placed) entry(lane Lane) *Entry {
	switch lane {
	case LaneVideo:
		return p.video
	case LaneAudio:
		return p.audio
	case LaneSubtitles:
		return p.subs
	}
	return nil
}

// baseTimeline is the expanded base track.
type baseTimeline struct {
	scope    string
	segments []placed
}

func (t *baseTimeline) playlist(id string, lane Lane) Playlist {
	return assemble(id, lane, t.segments)
}

func (t *baseTimeline) length() int64 {
	if len(t.segments) == 0 {
		return 0
	}
	last := t.segments[len(t.segments)-1]
	return last.start + last.length
}

func (t *baseTimeline) hasSubtitles() bool {
	for _, s := range t.segments {
		if s.subs != nil && s.subs.Kind == EntrySource {
			return true
		}
	}
	return false
}

// assemble lays the lane's entries end to end.
func assemble(id string, lane Lane, segments []placed) Playlist {
	p := Playlist{ID: id, Lane: lane}
	for _, s := range segments {
		e := s.entry(lane)
		if e == nil {
			continue
		}
		entry := *e
		entry.Start = s.start
		entry.Lane = lane
		p.Entries = append(p.Entries, entry)
	}
	return p
}

func (b *builder) expandTimeline(scope string, segments []config.Segment) (*baseTimeline, error) {
	placedSegs, err := b.expandSegments(scope, segments, modeBase)
	if err != nil {
		return nil, err
	}
	return &baseTimeline{scope: scope, segments: placedSegs}, nil
}

// expandSegments expands the enabled segments in order. Disabled segments
// are skipped without shifting anything after them.
func (b *builder) expandSegments(scope string, segments []config.Segment, m mode) ([]placed, error) {
	var out []placed
	var cursor int64
	for i, seg := range segments {
		common := seg.Common()
		if !common.IsEnabled() {
			continue
		}
		ref := Ref{Scope: scope, Index: i, ID: common.ID}
		p, err := b.expandSegment(seg, ref, m)
		if err != nil {
			return nil, err
		}
		p.start = cursor
		cursor += p.length
		out = append(out, p)
	}
	return out, nil
}

func (b *builder) expandSegment(seg config.Segment, ref Ref, m mode) (placed, error) {
	var (
		p   placed
		err error
	)
	switch seg.Kind {
	case config.SegmentSource:
		p, err = b.expandSource(seg.Source, ref, m)
	case config.SegmentBlank:
		p, err = b.expandBlank(seg.Blank, ref, m)
	case config.SegmentGenerator:
		p, err = b.expandGenerator(seg.Generator, ref, m, 0)
	case config.SegmentNested:
		if m != modeBase {
			return placed{}, diagf(InvalidValue, ref, "nested segments are only supported on the base timeline")
		}
		p, err = b.expandNested(seg.Nested, ref)
	default:
		return placed{}, diagf(InvalidValue, ref, "segment type is not set")
	}
	if err != nil {
		return placed{}, err
	}
	p.ref = ref
	p.common = seg.Common()
	p.kind = seg.Kind
	return p, nil
}

func (b *builder) expandSource(s *config.SourceSegment, ref Ref, m mode) (placed, error) {
	meta, err := b.lookupMedia(s.Asset, ref.With("asset"))
	if err != nil {
		return placed{}, err
	}
	inF, err := b.frames(s.In, ref.With("in"))
	if err != nil {
		return placed{}, err
	}
	outF, err := b.frames(s.Out, ref.With("out"))
	if err != nil {
		return placed{}, err
	}
	if outF <= inF {
		return placed{}, diagf(InvalidRange, ref, "source requires in < out (frames %d to %d)", inF, outF)
	}
	if meta.HasDuration && outF > meta.DurationFrames {
		return placed{}, diagf(InvalidRange, ref.With("out"),
			"out frame %d is past the end of asset %q (%d frames)", outF, s.Asset, meta.DurationFrames)
	}

	speeds, err := b.resolveSpeeds(s.Style, s.Video, s.Audio, ref)
	if err != nil {
		return placed{}, err
	}
	length, err := timecode.ScaleFrames(outF-inF, speeds.Video)
	if err != nil {
		return placed{}, wrapDiag(InvalidRange, ref, err)
	}
	if length <= 0 {
		return placed{}, diagf(InvalidRange, ref, "source duration is zero after speed change")
	}
	fill, err := checkFillMissing(s.FillMissing, ref)
	if err != nil {
		return placed{}, err
	}

	p := placed{length: length, style: s.Style, speeds: &speeds}
	base := SourceRef{Asset: s.Asset, Path: meta.Path, In: inF, Out: outF}

	if m != modeAudioTrack {
		switch {
		case meta.HasVideo:
			src := base
			src.Speed = speeds.Video
			p.video = &Entry{Lane: LaneVideo, Length: length, Kind: EntrySource, Origin: ref, Source: &src}
		case m == modeBase && fill.video:
			p.video = blankEntry(LaneVideo, length, FillBlack, ref)
		default:
			return placed{}, diagf(MissingStream, ref, "asset %q has no video stream; set fill_missing.video", s.Asset)
		}
	}

	if m != modeOverlay {
		switch {
		case meta.HasAudio():
			src := base
			src.Speed = speeds.Audio
			if err := b.selectStreams(&src, meta, s.Audio, ref); err != nil {
				return placed{}, err
			}
			p.audio = &Entry{Lane: LaneAudio, Length: length, Kind: EntrySource, Origin: ref, Source: &src}
		case m == modeBase && fill.audio:
			p.audio = blankEntry(LaneAudio, length, FillSilence, ref)
		default:
			return placed{}, diagf(MissingStream, ref, "asset %q has no audio stream; set fill_missing.audio", s.Asset)
		}
	}

	if m == modeBase {
		if meta.HasSubtitles() {
			src := base
			src.Speed = speeds.Video
			src.Subtitles = meta.Subtitles
			p.subs = &Entry{Lane: LaneSubtitles, Length: length, Kind: EntrySource, Origin: ref, Source: &src}
		} else {
			p.subs = blankEntry(LaneSubtitles, length, FillEmpty, ref)
			p.subsUndeclared = !fill.subtitles
		}
	}
	return p, nil
}

func (b *builder) expandBlank(bl *config.BlankSegment, ref Ref, m mode) (placed, error) {
	length, err := b.positiveFrames(bl.Duration, ref.With("duration"))
	if err != nil {
		return placed{}, err
	}
	fill := Fill(strings.TrimSpace(bl.Fill))
	p := placed{length: length}
	switch m {
	case modeBase:
		switch fill {
		case "", FillBlack, FillSilence:
		case FillTransparent:
			return placed{}, diagf(InvalidValue, ref.With("fill"), "transparent blanks are only supported in overlays")
		default:
			return placed{}, diagf(InvalidValue, ref.With("fill"), "blank fill must be black or silence, got %q", bl.Fill)
		}
		p.video = blankEntry(LaneVideo, length, FillBlack, ref)
		p.audio = blankEntry(LaneAudio, length, FillSilence, ref)
		p.subs = blankEntry(LaneSubtitles, length, FillEmpty, ref)
	case modeOverlay:
		switch fill {
		case "":
			fill = FillTransparent
		case FillTransparent, FillBlack:
		default:
			return placed{}, diagf(InvalidValue, ref.With("fill"), "overlay blank fill must be black or transparent, got %q", bl.Fill)
		}
		p.video = blankEntry(LaneVideo, length, fill, ref)
	case modeAudioTrack:
		if fill != "" && fill != FillSilence {
			return placed{}, diagf(InvalidValue, ref.With("fill"), "audio blank fill must be silence, got %q", bl.Fill)
		}
		p.audio = blankEntry(LaneAudio, length, FillSilence, ref)
	}
	return p, nil
}

// expandGenerator expands a generator. A positive length overrides the
// authored duration; template overlays use it to match a base entry.
func (b *builder) expandGenerator(g *config.GeneratorSegment, ref Ref, m mode, length int64) (placed, error) {
	kind := strings.TrimSpace(g.Kind)
	if kind == "" {
		return placed{}, diagf(InvalidValue, ref.With("kind"), "generator requires kind")
	}
	isVideo := videoGenerators[kind]
	isAudio := audioGenerators[kind]
	switch {
	case kind == "overlay_text":
		if m != modeOverlay {
			return placed{}, diagf(InvalidValue, ref.With("kind"), "overlay_text generator is only supported in overlays")
		}
		isVideo = true
	case !isVideo && !isAudio:
		return placed{}, diagf(InvalidValue, ref.With("kind"), "unsupported generator kind %q", kind)
	case m == modeOverlay && isAudio:
		return placed{}, diagf(InvalidValue, ref.With("kind"), "generator %q has no video for an overlay", kind)
	case m == modeAudioTrack && isVideo:
		return placed{}, diagf(InvalidValue, ref.With("kind"), "generator %q has no audio for an audio track", kind)
	}
	if g.PairedAudio != nil && (m != modeBase || !isVideo) {
		return placed{}, diagf(InvalidValue, ref.With("paired_audio"), "paired_audio is only supported on base video generators")
	}

	if length <= 0 {
		var err error
		length, err = b.positiveFrames(g.Duration, ref.With("duration"))
		if err != nil {
			return placed{}, err
		}
	}

	gen, err := b.describeGenerator(g, kind, ref, m)
	if err != nil {
		return placed{}, err
	}
	fill, err := checkFillMissing(g.FillMissing, ref)
	if err != nil {
		return placed{}, err
	}

	p := placed{length: length}
	genEntry := func(lane Lane) *Entry {
		copied := *gen
		return &Entry{Lane: lane, Length: length, Kind: EntryGenerator, Origin: ref, Generator: &copied}
	}
	switch m {
	case modeOverlay:
		p.video = genEntry(LaneVideo)
		return p, nil
	case modeAudioTrack:
		p.audio = genEntry(LaneAudio)
		return p, nil
	}

	if isVideo {
		p.video = genEntry(LaneVideo)
		switch {
		case g.PairedAudio != nil:
			audio, err := b.pairedAudio(g.PairedAudio, length, ref.With("paired_audio"))
			if err != nil {
				return placed{}, err
			}
			p.audio = audio
		case fill.audio:
			p.audio = blankEntry(LaneAudio, length, FillSilence, ref)
		default:
			return placed{}, diagf(MissingStream, ref, "generator %q has no audio; set fill_missing.audio or paired_audio", kind)
		}
	} else {
		p.audio = genEntry(LaneAudio)
		if !fill.video {
			return placed{}, diagf(MissingStream, ref, "generator %q has no video; set fill_missing.video", kind)
		}
		p.video = blankEntry(LaneVideo, length, FillBlack, ref)
	}
	p.subs = blankEntry(LaneSubtitles, length, FillEmpty, ref)
	return p, nil
}

func (b *builder) describeGenerator(g *config.GeneratorSegment, kind string, ref Ref, m mode) (*GeneratorRef, error) {
	gen := &GeneratorRef{Kind: kind, Title: g.Title, Text: g.Text}
	switch kind {
	case "chapter_card", "title_card", "overlay_text":
		if strings.TrimSpace(g.Title) == "" && strings.TrimSpace(g.Text) == "" {
			return nil, diagf(InvalidValue, ref, "%s requires title or text", kind)
		}
		var (
			look style.Appearance
			err  error
		)
		if kind == "overlay_text" {
			look, err = b.c.styles.OverlayText(g.Style, g.TextAppearance)
		} else {
			look, err = b.c.styles.Card(g.Style, g.TextAppearance)
		}
		if err != nil {
			return nil, styleDiag(ref.With("style"), err)
		}
		if m != modeOverlay && look.Background.Transparent() {
			return nil, diagf(InvalidValue, ref.With("background"), "transparent card background is only supported in overlays")
		}
		if look.Background.Kind == style.BackgroundImage {
			if _, err := b.lookupImage(look.Background.Asset, ref.With("background")); err != nil {
				return nil, err
			}
		}
		gen.Appearance = &look
	case "still":
		meta, err := b.lookupImage(g.Asset, ref.With("asset"))
		if err != nil {
			return nil, err
		}
		gen.Asset = g.Asset
		gen.AssetPath = meta.Path
	}
	return gen, nil
}

func (b *builder) pairedAudio(pa *config.PairedAudio, length int64, ref Ref) (*Entry, error) {
	meta, err := b.lookupMedia(pa.Asset, ref.With("asset"))
	if err != nil {
		return nil, err
	}
	if !meta.HasAudio() {
		return nil, diagf(MissingStream, ref.With("asset"), "asset %q has no audio stream", pa.Asset)
	}
	var audioSpeed string
	if pa.Audio != nil {
		audioSpeed = pa.Audio.Speed
	}
	speed := b.c.styles.DefaultSpeed()
	if audioSpeed != "" {
		parsed, err := timecode.ParseSpeed(audioSpeed)
		if err != nil {
			return nil, wrapDiag(InvalidValue, ref.With("audio.speed"), err)
		}
		speed = parsed
	}

	inF, err := b.frames(pa.In, ref.With("in"))
	if err != nil {
		return nil, err
	}
	var outF int64
	if pa.Out.IsSet() {
		outF, err = b.frames(pa.Out, ref.With("out"))
		if err != nil {
			return nil, err
		}
	} else {
		needed := new(big.Rat).Mul(new(big.Rat).SetInt64(length), speed.Rat())
		needed.Add(needed, new(big.Rat).SetInt64(inF))
		outF, err = timecode.NearestFrame(needed)
		if err != nil {
			return nil, wrapDiag(InvalidRange, ref.With("out"), err)
		}
	}
	if outF <= inF {
		return nil, diagf(InvalidRange, ref, "paired audio requires in < out (frames %d to %d)", inF, outF)
	}
	if meta.HasDuration && outF > meta.DurationFrames {
		return nil, diagf(InvalidRange, ref.With("out"),
			"out frame %d is past the end of asset %q (%d frames)", outF, pa.Asset, meta.DurationFrames)
	}
	got, err := timecode.ScaleFrames(outF-inF, speed)
	if err != nil {
		return nil, wrapDiag(InvalidRange, ref, err)
	}
	if got != length {
		return nil, diagf(DurationMismatch, ref, "paired audio is %d frames but the generator is %d", got, length)
	}

	src := SourceRef{Asset: pa.Asset, Path: meta.Path, In: inF, Out: outF, Speed: speed}
	if err := b.selectStreams(&src, meta, pa.Audio, ref); err != nil {
		return nil, err
	}
	return &Entry{Lane: LaneAudio, Length: length, Kind: EntrySource, Origin: ref, Source: &src}, nil
}

func (b *builder) expandNested(n *config.NestedSegment, ref Ref) (placed, error) {
	scope := fmt.Sprintf("%s[%d].nested.segments", ref.Scope, ref.Index)
	inner := &builder{c: b.c}
	base, err := inner.expandTimeline(scope, n.Segments)
	if err != nil {
		return placed{}, err
	}
	if len(base.segments) == 0 {
		return placed{}, diagf(InvalidRange, ref, "nested timeline has no enabled segments")
	}
	inner.base = base
	inner.video = base.playlist(PlaylistBase, LaneVideo)
	inner.audio = base.playlist(PlaylistMain, LaneAudio)
	if base.hasSubtitles() {
		subs := base.playlist(PlaylistSubtitles, LaneSubtitles)
		inner.subtitles = &subs
	}
	if err := inner.checkBaseStreams(); err != nil {
		return placed{}, err
	}
	if err := inner.compileBaseTransitions(); err != nil {
		return placed{}, err
	}
	b.warnings = append(b.warnings, inner.warnings...)

	videoLen, audioLen := inner.video.Length(), inner.audio.Length()
	if videoLen != audioLen {
		return placed{}, diagf(DurationMismatch, ref, "nested video is %d frames but audio is %d", videoLen, audioLen)
	}
	model := inner.model()
	return placed{
		length: videoLen,
		video:  &Entry{Lane: LaneVideo, Length: videoLen, Kind: EntryNested, Origin: ref, Nested: model},
		audio:  &Entry{Lane: LaneAudio, Length: videoLen, Kind: EntryNested, Origin: ref, Nested: model},
		subs:   blankEntry(LaneSubtitles, videoLen, FillEmpty, ref),
	}, nil
}

// selectStreams records which audio streams the entry plays and the shape
// they present downstream.
func (b *builder) selectStreams(src *SourceRef, meta probe.Metadata, audio *config.AudioSettings, ref Ref) error {
	var settings config.AudioSettings
	if audio != nil {
		settings = *audio
	}

	if len(settings.Streams) > 0 {
		seen := map[int]bool{}
		for _, idx := range settings.Streams {
			if idx < 0 || idx >= len(meta.Audio) {
				return diagf(InvalidValue, ref.With("audio.streams"),
					"asset %q has %d audio streams; stream %d does not exist", meta.ID, len(meta.Audio), idx)
			}
			if seen[idx] {
				return diagf(InvalidValue, ref.With("audio.streams"), "audio stream %d selected twice", idx)
			}
			seen[idx] = true
			src.Streams = append(src.Streams, idx)
		}
	} else {
		for idx := range meta.Audio {
			src.Streams = append(src.Streams, idx)
		}
	}

	if settings.Remap != nil {
		channels, layout := settings.Remap.Channels, settings.Remap.Layout
		if channels == 0 && layout == "" {
			layout = b.c.profile.AudioLayout
		}
		target, err := probe.NormalizeStream(channels, layout)
		if err != nil {
			return wrapDiag(InvalidValue, ref.With("audio.remap"), err)
		}
		src.Shape = []probe.AudioStream{target}
		src.Remapped = true
	} else {
		for _, idx := range src.Streams {
			src.Shape = append(src.Shape, meta.Audio[idx])
		}
	}

	level := b.c.doc.Defaults.Audio.Normalize
	if settings.Normalize != nil {
		level = settings.Normalize
	}
	if level != nil && level.LevelDB != nil {
		v := *level.LevelDB
		src.Normalize = &v
	}
	return nil
}

func (b *builder) resolveSpeeds(styleID string, video *config.LaneSettings, audio *config.AudioSettings, ref Ref) (style.Speeds, error) {
	var videoRaw, audioRaw string
	if video != nil {
		videoRaw = video.Speed
	}
	if audio != nil {
		audioRaw = audio.Speed
	}
	speeds, err := b.c.styles.ResolveSpeeds(styleID, videoRaw, audioRaw)
	if err != nil {
		var mismatch *style.MismatchError
		if errors.As(err, &mismatch) {
			return style.Speeds{}, wrapDiag(SpeedMismatch, ref, err)
		}
		var nf *style.NotFoundError
		if errors.As(err, &nf) {
			return style.Speeds{}, wrapDiag(UnresolvedStyle, ref.With("style"), err)
		}
		return style.Speeds{}, wrapDiag(InvalidValue, ref.With("speed"), err)
	}
	return speeds, nil
}

func (b *builder) lookupMedia(id string, ref Ref) (probe.Metadata, error) {
	if strings.TrimSpace(id) == "" {
		return probe.Metadata{}, diagf(UnresolvedAsset, ref, "asset is required")
	}
	meta, ok := b.c.catalog.Lookup(id)
	if !ok {
		return probe.Metadata{}, diagf(UnresolvedAsset, ref, "asset %q not found in assets.video or assets.audio", id)
	}
	if meta.Kind == probe.KindImage {
		return probe.Metadata{}, diagf(UnresolvedAsset, ref, "asset %q is an image; use a still generator", id)
	}
	return meta, nil
}

func (b *builder) lookupImage(id string, ref Ref) (probe.Metadata, error) {
	if strings.TrimSpace(id) == "" {
		return probe.Metadata{}, diagf(UnresolvedAsset, ref, "image asset is required")
	}
	meta, ok := b.c.catalog.Lookup(id)
	if !ok || meta.Kind != probe.KindImage {
		return probe.Metadata{}, diagf(UnresolvedAsset, ref, "image asset %q not found in assets.image", id)
	}
	return meta, nil
}

// fills records which lanes a segment may synthesize.
type fills struct {
	video, audio, subtitles bool
}

func checkFillMissing(f *config.FillMissing, ref Ref) (fills, error) {
	if f == nil {
		return fills{}, nil
	}
	ref = ref.With("fill_missing")
	if f.Video != "" && f.Video != string(FillBlack) {
		return fills{}, diagf(InvalidValue, ref, "fill_missing.video must be black, got %q", f.Video)
	}
	if f.Audio != "" && f.Audio != string(FillSilence) {
		return fills{}, diagf(InvalidValue, ref, "fill_missing.audio must be silence, got %q", f.Audio)
	}
	if f.Subtitles != "" && f.Subtitles != string(FillEmpty) {
		return fills{}, diagf(InvalidValue, ref, "fill_missing.subtitles must be empty, got %q", f.Subtitles)
	}
	if f.Video == "" && f.Audio == "" && f.Subtitles == "" {
		return fills{}, diagf(InvalidValue, ref, "fill_missing must name at least one lane")
	}
	return fills{video: f.Video != "", audio: f.Audio != "", subtitles: f.Subtitles != ""}, nil
}

func styleDiag(ref Ref, err error) *Diagnostic {
	var nf *style.NotFoundError
	if errors.As(err, &nf) {
		return wrapDiag(UnresolvedStyle, ref, err)
	}
	return wrapDiag(InvalidValue, ref, err)
}

func blankEntry(lane Lane, length int64, fill Fill, ref Ref) *Entry {
	return &Entry{Lane: lane, Length: length, Kind: EntryBlank, Fill: fill, Origin: ref}
}
