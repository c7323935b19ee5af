package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// ValidateStrict checks things the compiler does not look at: include and
// media files on disk, and assets or styles nothing references.
func (p Project) ValidateStrict() []ValidationResult {
	var results []ValidationResult
	results = append(results, p.validateExternalFiles()...)
	results = append(results, p.validateAssetFiles()...)
	results = append(results, p.validateUnreferenced()...)
	return results
}

func (p Project) validateExternalFiles() []ValidationResult {
	var results []ValidationResult
	for _, path := range p.AssetFiles {
		if _, err := os.Stat(resolveExternalPath(p.Root, path)); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("asset file %q not found", path),
			})
		}
	}
	for _, path := range p.StyleFiles {
		if _, err := os.Stat(resolveExternalPath(p.Root, path)); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("style file %q not found", path),
			})
		}
	}
	return results
}

func (p Project) validateAssetFiles() []ValidationResult {
	type fileRef struct{ group, id, file string }
	var refs []fileRef
	for id, a := range p.Assets.Video {
		refs = append(refs, fileRef{"video", id, a.File})
	}
	for id, a := range p.Assets.Audio {
		refs = append(refs, fileRef{"audio", id, a.File})
	}
	for id, a := range p.Assets.Image {
		refs = append(refs, fileRef{"image", id, a.File})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].group != refs[j].group {
			return refs[i].group < refs[j].group
		}
		return refs[i].id < refs[j].id
	})

	var results []ValidationResult
	for _, ref := range refs {
		file := strings.TrimSpace(ref.file)
		if file == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("assets.%s.%s: file is required", ref.group, ref.id),
			})
			continue
		}
		if _, err := os.Stat(resolveExternalPath(p.Root, file)); err != nil {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("assets.%s.%s: file %q not found", ref.group, ref.id, file),
			})
		}
	}
	return results
}

func (p Project) validateUnreferenced() []ValidationResult {
	unused := p.Unreferenced()
	var results []ValidationResult
	for _, name := range unused {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: fmt.Sprintf("%s is defined but not referenced by any segment", name),
		})
	}
	return results
}

// References collects the ids of assets and styles that segments use.
type References struct {
	Assets            map[string]bool
	Images            map[string]bool
	Cards             map[string]bool
	OverlayTextStyles map[string]bool
	PlaybackStyles    map[string]bool
}

// Referenced walks every segment, overlay and audio track.
func (p Project) Referenced() References {
	refs := References{
		Assets:            map[string]bool{},
		Images:            map[string]bool{},
		Cards:             map[string]bool{},
		OverlayTextStyles: map[string]bool{},
		PlaybackStyles:    map[string]bool{},
	}
	refs.walk(p.Timeline.Segments, false)
	for _, track := range p.Timeline.Overlays {
		refs.walk(track.Segments, true)
		if track.Template != nil {
			refs.walk([]Segment{*track.Template}, true)
		}
		if track.Apply != nil && track.Apply.Style != "" {
			refs.PlaybackStyles[track.Apply.Style] = true
		}
	}
	for _, track := range p.Timeline.AudioTracks {
		refs.walk(track.Segments, false)
	}
	for id := range refs.PlaybackStyles {
		if text := p.Assets.PlaybackStyles[id].OverlayTextStyle; text != "" {
			refs.OverlayTextStyles[text] = true
		}
	}
	for _, groups := range []map[string]TextAppearance{p.Assets.Cards, p.Assets.OverlayTextStyles} {
		for _, look := range groups {
			refs.addAppearanceImages(look)
		}
	}
	return refs
}

func (r References) walk(segments []Segment, overlay bool) {
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentSource:
			r.Assets[seg.Source.Asset] = true
			if seg.Source.Style != "" {
				r.PlaybackStyles[seg.Source.Style] = true
			}
		case SegmentGenerator:
			gen := seg.Generator
			if gen.Asset != "" {
				r.Images[gen.Asset] = true
			}
			if gen.Style != "" {
				if gen.Kind == "overlay_text" {
					r.OverlayTextStyles[gen.Style] = true
				} else {
					r.Cards[gen.Style] = true
				}
			}
			if gen.PairedAudio != nil {
				r.Assets[gen.PairedAudio.Asset] = true
			}
			r.addAppearanceImages(gen.TextAppearance)
		case SegmentNested:
			r.walk(seg.Nested.Segments, overlay)
		}
	}
}

func (r References) addAppearanceImages(look TextAppearance) {
	if look.BackgroundImage != "" {
		r.Images[look.BackgroundImage] = true
	}
	if look.Background != nil && look.Background.Asset != "" {
		r.Images[look.Background.Asset] = true
	}
}

// Unreferenced lists defined assets and styles that nothing uses, sorted.
func (p Project) Unreferenced() []string {
	refs := p.Referenced()
	var out []string
	collect := func(label string, names []string, used map[string]bool) {
		for _, name := range names {
			if !used[name] {
				out = append(out, fmt.Sprintf("%s %q", label, name))
			}
		}
	}
	collect("asset", sortedKeys(p.Assets.Video), refs.Assets)
	collect("asset", sortedKeys(p.Assets.Audio), refs.Assets)
	collect("image asset", sortedKeys(p.Assets.Image), refs.Images)
	collect("card style", sortedKeys(p.Assets.Cards), refs.Cards)
	collect("overlay text style", sortedKeys(p.Assets.OverlayTextStyles), refs.OverlayTextStyles)
	collect("playback style", sortedKeys(p.Assets.PlaybackStyles), refs.PlaybackStyles)
	sort.Strings(out)
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
