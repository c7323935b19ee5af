package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"emwy/internal/config"
	"emwy/internal/logx"
	"emwy/internal/paths"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize an emwy project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
	return cmd
}

func resolveInitDir(projectFlag string, args []string) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return nextAvailableDir(cwd)
}

func nextAvailableDir(base string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(base, fmt.Sprintf("emwy-%d", i))
		exists, err := paths.DirExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(projectDir, args)
	if err != nil {
		return err
	}

	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return err
	}

	session, err := logx.New(pp, logx.Options{Level: userSettings.Logging.Level, Console: consoleWriter(cmd)})
	if err != nil {
		return err
	}
	defer session.Close()
	logger := session.Component("init")
	logger.Info().Str("root", pp.Root).Msg("init")

	exists, err := paths.FileExists(pp.ProjectFile)
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if exists {
		logger.Info().Str("path", pp.ProjectFile).Msg("project exists")
		cmd.Printf("Project already initialized at %s\n", pp.Root)
		return nil
	}

	data, err := config.Marshal(scaffold())
	if err != nil {
		return err
	}
	if err := os.WriteFile(pp.ProjectFile, data, 0o644); err != nil {
		return fmt.Errorf("write project: %w", err)
	}
	logger.Info().Str("path", pp.ProjectFile).Msg("created project")

	cmd.Printf("Initialized project at %s\n", pp.Root)
	cmd.Printf("  created %s\n", filepath.Base(pp.ProjectFile))
	return nil
}

// scaffold is the starter document: a title card followed by one excerpt
// of a placeholder video.
func scaffold() config.Project {
	p := config.Default()
	p.Assets.Video = map[string]config.MediaAsset{
		"intro": {File: "media/intro.mp4"},
	}
	p.Assets.Cards = map[string]config.TextAppearance{
		"title": {
			TextColor:  "#ffffff",
			Background: &config.Background{Kind: "color", Color: "#000000"},
		},
	}
	p.Timeline.Segments = []config.Segment{
		{
			Kind: config.SegmentGenerator,
			Generator: &config.GeneratorSegment{
				Common:      config.Common{Title: "Opening"},
				Kind:        "title_card",
				Duration:    "3",
				Style:       "title",
				FillMissing: &config.FillMissing{Audio: "silence"},
			},
		},
		{
			Kind: config.SegmentSource,
			Source: &config.SourceSegment{
				Common: config.Common{Title: "Intro"},
				Asset:  "intro",
				In:     "0",
				Out:    "10",
			},
		},
	}
	p.Output.File = "output.mkv"
	return p
}
