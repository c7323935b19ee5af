package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// resolveExternalPath returns path as-is if absolute, otherwise joins it with projectRoot.
func resolveExternalPath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}

// assetFile is the shape of a file listed in asset_files.
type assetFile struct {
	Video map[string]MediaAsset `yaml:"video"`
	Audio map[string]MediaAsset `yaml:"audio"`
	Image map[string]ImageAsset `yaml:"image"`
}

// styleFile is the shape of a file listed in style_files.
type styleFile struct {
	Cards             map[string]TextAppearance `yaml:"cards"`
	OverlayTextStyles map[string]TextAppearance `yaml:"overlay_text_styles"`
	PlaybackStyles    map[string]PlaybackStyle  `yaml:"playback_styles"`
}

// loadAssetFiles reads each file in AssetFiles and merges its groups into
// p.Assets with duplicate detection.
func (p *Project) loadAssetFiles(projectRoot string) error {
	if len(p.AssetFiles) == 0 {
		return nil
	}
	if p.Assets.Video == nil {
		p.Assets.Video = map[string]MediaAsset{}
	}
	if p.Assets.Audio == nil {
		p.Assets.Audio = map[string]MediaAsset{}
	}
	if p.Assets.Image == nil {
		p.Assets.Image = map[string]ImageAsset{}
	}

	// Media ids share one namespace across the video and audio groups.
	media := inlineSources(p.Assets.Video, nil)
	media = inlineSources(p.Assets.Audio, media)
	images := inlineSources(p.Assets.Image, nil)

	for _, relPath := range p.AssetFiles {
		var file assetFile
		if err := readExternal(projectRoot, relPath, "asset", &file); err != nil {
			return err
		}
		if err := mergeNamed(p.Assets.Video, file.Video, media, "asset", relPath); err != nil {
			return err
		}
		if err := mergeNamed(p.Assets.Audio, file.Audio, media, "asset", relPath); err != nil {
			return err
		}
		if err := mergeNamed(p.Assets.Image, file.Image, images, "image asset", relPath); err != nil {
			return err
		}
	}
	return nil
}

// loadStyleFiles reads each file in StyleFiles and merges its style groups
// into p.Assets with duplicate detection.
func (p *Project) loadStyleFiles(projectRoot string) error {
	if len(p.StyleFiles) == 0 {
		return nil
	}
	if p.Assets.Cards == nil {
		p.Assets.Cards = map[string]TextAppearance{}
	}
	if p.Assets.OverlayTextStyles == nil {
		p.Assets.OverlayTextStyles = map[string]TextAppearance{}
	}
	if p.Assets.PlaybackStyles == nil {
		p.Assets.PlaybackStyles = map[string]PlaybackStyle{}
	}

	cards := inlineSources(p.Assets.Cards, nil)
	texts := inlineSources(p.Assets.OverlayTextStyles, nil)
	playback := inlineSources(p.Assets.PlaybackStyles, nil)

	for _, relPath := range p.StyleFiles {
		var file styleFile
		if err := readExternal(projectRoot, relPath, "style", &file); err != nil {
			return err
		}
		if err := mergeNamed(p.Assets.Cards, file.Cards, cards, "card style", relPath); err != nil {
			return err
		}
		if err := mergeNamed(p.Assets.OverlayTextStyles, file.OverlayTextStyles, texts, "overlay text style", relPath); err != nil {
			return err
		}
		if err := mergeNamed(p.Assets.PlaybackStyles, file.PlaybackStyles, playback, "playback style", relPath); err != nil {
			return err
		}
	}
	return nil
}

func readExternal(projectRoot, relPath, kind string, out interface{}) error {
	data, err := os.ReadFile(resolveExternalPath(projectRoot, relPath))
	if err != nil {
		return errors.Wrapf(err, "load %s file %q", kind, relPath)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "parse %s file %q", kind, relPath)
	}
	return nil
}

// inlineSources records every name already defined inline so later files
// cannot silently replace it.
func inlineSources[T any](defined map[string]T, sources map[string]string) map[string]string {
	if sources == nil {
		sources = make(map[string]string, len(defined))
	}
	for name := range defined {
		sources[name] = "inline config"
	}
	return sources
}

func mergeNamed[T any](dst, src map[string]T, sources map[string]string, kind, relPath string) error {
	for name, value := range src {
		if existing, ok := sources[name]; ok {
			return errors.Errorf("%s %q defined in both %s and %q", kind, name, existing, relPath)
		}
		sources[name] = relPath
		dst[name] = value
	}
	return nil
}
