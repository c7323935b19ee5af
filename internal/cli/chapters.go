package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"emwy/internal/export"
	"emwy/internal/tui"
)

var (
	chaptersFormat string
	chaptersOutput string
)

func newChaptersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chapters",
		Short: "Write or list the compiled chapter markers",
		Args:  cobra.NoArgs,
		RunE:  runChapters,
	}
	cmd.Flags().StringVar(&chaptersFormat, "format", "", "Chapter format: ogm or json (default from settings)")
	cmd.Flags().StringVarP(&chaptersOutput, "output", "o", "", "Destination file, \"-\" for stdout (default: print a table)")
	return cmd
}

func runChapters(cmd *cobra.Command, _ []string) error {
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

	raw := chaptersFormat
	if raw == "" {
		raw = userSettings.Export.Format
	}
	format, err := export.ParseChapterFormat(raw)
	if err != nil {
		return err
	}
	chapters := model.Chapters()

	switch {
	case chaptersOutput == "-":
		return export.WriteChapters(cmd.OutOrStdout(), chapters, format)
	case chaptersOutput != "":
		target := w.paths.ResolveOutput(chaptersOutput, "")
		if err := export.WriteChaptersFile(target, chapters, format); err != nil {
			return err
		}
		log := w.logger("chapters")
		log.Info().Str("path", target).Int("chapters", len(chapters)).Msg("wrote chapters")
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chapter(s) to %s\n", len(chapters), target)
		return nil
	case outputJSON:
		return export.WriteChaptersJSON(cmd.OutOrStdout(), chapters)
	}

	rows := make([][]string, 0, len(chapters))
	for i, ch := range chapters {
		rows = append(rows, []string{strconv.Itoa(i + 1), ch.Time, itoa(ch.Frame), strconv.Itoa(ch.Level), ch.Title})
	}
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTable(
		[]string{"#", "TIME", "FRAME", "LEVEL", "TITLE"},
		rows,
		[]tui.Align{tui.AlignRight, tui.AlignLeft, tui.AlignRight, tui.AlignRight},
		w.mode,
	))
	return nil
}
