package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"emwy/internal/export"
)

var (
	exportOutput   string
	exportOverlays bool
	exportChapters bool
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the compiled project as MLT XML",
		Args:  cobra.NoArgs,
		RunE:  runExport,
	}
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Destination file (default <project>.mlt, \"-\" for stdout)")
	cmd.Flags().BoolVar(&exportOverlays, "overlays", true, "Include overlay and extra audio tracks (default from settings)")
	cmd.Flags().BoolVar(&exportChapters, "chapters", false, "Also write a chapter file beside the export")
	return cmd
}

type exportPayload struct {
	MLT      string `json:"mlt"`
	Chapters string `json:"chapters,omitempty"`
	Frames   int64  `json:"frames"`
	Overlays bool   `json:"overlays"`
}

func runExport(cmd *cobra.Command, _ []string) error {
	w, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer w.Close()

	model, warnings, err := w.compile()
	if err != nil {
		return err
	}
	writeWarnings(cmd, w, warnings)

	overlays := userSettings.Export.Overlays
	if cmd.Flags().Changed("overlays") {
		overlays = exportOverlays
	}
	opts := export.Options{Overlays: overlays}
	logger := w.logger("export")

	if exportOutput == "-" {
		if exportChapters {
			return fmt.Errorf("--chapters cannot be combined with --output -")
		}
		return export.WriteMLT(cmd.OutOrStdout(), model, opts)
	}

	target := w.paths.ResolveOutput(exportOutput, w.paths.ExportFile(".mlt"))
	if err := export.WriteMLTFile(target, model, opts); err != nil {
		logger.Error().Err(err).Str("path", target).Msg("export failed")
		return err
	}
	logger.Info().Str("path", target).Bool("overlays", overlays).Msg("wrote mlt")
	payload := exportPayload{MLT: target, Frames: model.Length(), Overlays: overlays}

	if exportChapters {
		format, err := export.ParseChapterFormat(userSettings.Export.Format)
		if err != nil {
			return err
		}
		chapterPath := w.paths.ExportFile(format.Extension())
		if err := export.WriteChaptersFile(chapterPath, model.Chapters(), format); err != nil {
			return err
		}
		logger.Info().Str("path", chapterPath).Int("chapters", len(model.Chapters())).Msg("wrote chapters")
		payload.Chapters = chapterPath
	}

	if outputJSON {
		return writeJSON(cmd, payload)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%s frames)\n", payload.MLT, itoa(payload.Frames))
	if payload.Chapters != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Chapters %s\n", payload.Chapters)
	}
	return nil
}
