// Package compile turns a project document into a frame-exact Model:
// per-lane playlists, a track stack, overlay transitions and chapters.
//
// Compilation is a pure transform. A Compiler holds only read-only
// registries, so one Compiler may be used from several goroutines and
// each call to Compile builds a fresh Model.
package compile

import (
	"errors"
	"fmt"
	"strings"

	"emwy/internal/config"
	"emwy/internal/probe"
	"emwy/internal/style"
	"emwy/internal/timecode"
)

// Compiler compiles one project document.
type Compiler struct {
	doc     config.Project
	catalog probe.Catalog
	styles  *style.Registry
	profile Profile
}

// New validates the profile and builds the style registry. catalog supplies
// asset metadata; when nil, one is built from the document's declarations.
func New(doc config.Project, catalog probe.Catalog) (*Compiler, error) {
	profile, err := parseProfile(doc.Profile)
	if err != nil {
		return nil, err
	}
	styles, err := style.NewRegistry(doc.Assets, doc.Defaults)
	if err != nil {
		ref := Ref{Scope: "assets", Index: -1}
		var nf *style.NotFoundError
		if errors.As(err, &nf) {
			return nil, wrapDiag(UnresolvedStyle, ref, err)
		}
		return nil, wrapDiag(InvalidValue, ref, err)
	}
	if catalog == nil {
		static, err := probe.FromProject(doc, profile.FPS)
		if err != nil {
			return nil, wrapDiag(InvalidValue, Ref{Scope: "assets", Index: -1}, err)
		}
		catalog = static
	}
	return &Compiler{doc: doc, catalog: catalog, styles: styles, profile: profile}, nil
}

// Compile is New followed by Compile.
func Compile(doc config.Project, catalog probe.Catalog) (*Model, error) {
	c, err := New(doc, catalog)
	if err != nil {
		return nil, err
	}
	return c.Compile()
}

// Profile returns the parsed output profile.
func (c *Compiler) Profile() Profile { return c.profile }

// Compile runs every stage and returns the first failure.
func (c *Compiler) Compile() (*Model, error) {
	m, _, err := c.CompileWithWarnings()
	return m, err
}

// CompileWithWarnings is Compile that also returns advisory findings such
// as clamped overlay ranges.
func (c *Compiler) CompileWithWarnings() (*Model, []Warning, error) {
	b := c.newBuilder()
	for _, stage := range b.stages() {
		if err := stage.run(); err != nil {
			return nil, nil, err
		}
	}
	return b.model(), b.warnings, nil
}

// Validate compiles in validate-all mode. Each stage reports its own first
// error; stages whose inputs failed to build are skipped.
func Validate(doc config.Project, catalog probe.Catalog) Report {
	var report Report
	for _, name := range doc.Unreferenced() {
		report.Warnings = append(report.Warnings, Warning{
			Ref:     Ref{Scope: "assets", Index: -1},
			Message: name + " is defined but never referenced",
		})
	}
	c, err := New(doc, catalog)
	if err != nil {
		report.Errors = append(report.Errors, asDiagnostic(err))
		return report
	}
	b := c.newBuilder()
	for _, stage := range b.stages() {
		if stage.needsBase && b.base == nil {
			continue
		}
		if err := stage.run(); err != nil {
			report.Errors = append(report.Errors, asDiagnostic(err))
		}
	}
	report.Warnings = append(report.Warnings, b.warnings...)
	return report
}

func asDiagnostic(err error) *Diagnostic {
	var d *Diagnostic
	if errors.As(err, &d) {
		return d
	}
	return wrapDiag(InvalidValue, Ref{Index: -1}, err)
}

type stage struct {
	name      string
	needsBase bool
	run       func() error
}

// builder holds the state of one compile.
type builder struct {
	c *Compiler

	base      *baseTimeline
	video     Playlist
	audio     Playlist
	subtitles *Playlist
	chapters  []Chapter
	overlays  []Playlist
	composite []OverlayTransition
	extra     []Playlist
	extraRole []Role
	warnings  []Warning
}

func (c *Compiler) newBuilder() *builder { return &builder{c: c} }

func (b *builder) stages() []stage {
	return []stage{
		{name: "expand", run: b.expandBase},
		{name: "streams", needsBase: true, run: b.checkBaseStreams},
		{name: "transitions", needsBase: true, run: b.compileBaseTransitions},
		{name: "chapters", needsBase: true, run: b.compileChapters},
		{name: "overlays", needsBase: true, run: b.compileOverlays},
		{name: "audio_tracks", needsBase: true, run: b.compileAudioTracks},
	}
}

func (b *builder) expandBase() error {
	base, err := b.expandTimeline("timeline.segments", b.c.doc.Timeline.Segments)
	if err != nil {
		return err
	}
	if len(base.segments) == 0 {
		return diagf(InvalidRange, Ref{Scope: "timeline.segments", Index: -1}, "timeline has no enabled segments")
	}
	video := base.playlist(PlaylistBase, LaneVideo)
	audio := base.playlist(PlaylistMain, LaneAudio)
	if video.Length() != audio.Length() {
		return diagf(DurationMismatch, Ref{Scope: "timeline.segments", Index: -1},
			"base video is %d frames but main audio is %d", video.Length(), audio.Length())
	}
	b.base = base
	b.video, b.audio = video, audio
	if base.hasSubtitles() {
		subs := base.playlist(PlaylistSubtitles, LaneSubtitles)
		b.subtitles = &subs
	}
	return nil
}

func (b *builder) model() *Model {
	m := &Model{
		profile:  b.c.profile,
		output:   b.c.doc.Output,
		overlays: b.composite,
		chapters: b.chapters,
	}
	add := func(p Playlist, role Role) {
		m.playlists = append(m.playlists, p)
		m.tracks = append(m.tracks, Track{Playlist: p.ID, Lane: p.Lane, Role: role})
	}
	add(b.video, RoleBase)
	add(b.audio, RoleMain)
	if b.subtitles != nil {
		add(*b.subtitles, RoleSubtitles)
	}
	for _, p := range b.overlays {
		add(p, RoleOverlay)
	}
	for i, p := range b.extra {
		add(p, b.extraRole[i])
	}
	return m
}

func parseProfile(cfg config.ProfileConfig) (Profile, error) {
	ref := Ref{Scope: "profile", Index: -1}
	fps, err := timecode.ParseRate(cfg.FPS)
	if err != nil {
		return Profile{}, wrapDiag(InvalidValue, ref.With("fps"), err)
	}
	if len(cfg.Resolution) != 2 || cfg.Resolution[0] <= 0 || cfg.Resolution[1] <= 0 {
		return Profile{}, diagf(InvalidValue, ref.With("resolution"), "resolution must be [width, height]")
	}
	p := Profile{
		FPS:         fps,
		Width:       cfg.Resolution[0],
		Height:      cfg.Resolution[1],
		SampleRate:  cfg.Audio.SampleRate,
		PixelFormat: cfg.PixelFormat,
	}
	if p.SampleRate == 0 {
		p.SampleRate = 48000
	}
	if p.SampleRate < 0 {
		return Profile{}, diagf(InvalidValue, ref.With("audio.sample_rate"), "sample rate must be positive")
	}
	if p.PixelFormat == "" {
		p.PixelFormat = "yuv420p"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Audio.Channels)) {
	case "", "stereo":
		p.Channels, p.AudioLayout = 2, "stereo"
	case "mono":
		p.Channels, p.AudioLayout = 1, "mono"
	default:
		return Profile{}, diagf(InvalidValue, ref.With("audio.channels"), "channels must be mono or stereo, got %q", cfg.Audio.Channels)
	}
	return p, nil
}

// frames resolves an authored time to a frame index at the profile rate.
func (b *builder) frames(t config.Time, ref Ref) (int64, error) {
	if !t.IsSet() {
		return 0, diagf(MalformedTime, ref, "time value is required")
	}
	parsed, err := timecode.Parse(t.String())
	if err != nil {
		return 0, wrapDiag(MalformedTime, ref, err)
	}
	n, err := parsed.Frames(b.c.profile.FPS)
	if err != nil {
		return 0, wrapDiag(MalformedTime, ref, err)
	}
	return n, nil
}

// positiveFrames resolves a duration that must be at least one frame.
func (b *builder) positiveFrames(t config.Time, ref Ref) (int64, error) {
	n, err := b.frames(t, ref)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, diagf(InvalidRange, ref, "duration %s rounds to zero frames", t)
	}
	return n, nil
}

func (b *builder) warn(ref Ref, format string, args ...interface{}) {
	b.warnings = append(b.warnings, Warning{Ref: ref, Message: fmt.Sprintf(format, args...)})
}
