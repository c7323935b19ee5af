package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"emwy/internal/compile"
	"emwy/internal/timecode"
	"emwy/internal/tui"
)

func asDiagnostic(err error) *compile.Diagnostic {
	var d *compile.Diagnostic
	if errors.As(err, &d) {
		return d
	}
	return nil
}

func writeJSON(cmd *cobra.Command, payload interface{}) error {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func formatFrames(frames int64, fps timecode.Ratio) string {
	return fmt.Sprintf("%d (%s)", frames, timecode.FormatChapter(frames, fps))
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }

func playlistRows(m *compile.Model) [][]string {
	fps := m.Profile().FPS
	var rows [][]string
	for _, p := range m.Playlists() {
		rows = append(rows, []string{
			p.ID,
			string(p.Lane),
			strconv.Itoa(len(p.Entries)),
			strconv.Itoa(len(p.Transitions)),
			itoa(p.Length()),
			timecode.FormatChapter(p.Length(), fps),
		})
	}
	return rows
}

func writePlaylistTable(cmd *cobra.Command, w *workspace, m *compile.Model) {
	fmt.Fprintln(cmd.OutOrStdout(), w.styler.Header("Playlists"))
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTable(
		[]string{"ID", "LANE", "ENTRIES", "TRANSITIONS", "FRAMES", "DURATION"},
		playlistRows(m),
		[]tui.Align{tui.AlignLeft, tui.AlignLeft, tui.AlignRight, tui.AlignRight, tui.AlignRight, tui.AlignRight},
		w.mode,
	))
}

func writeWarnings(cmd *cobra.Command, w *workspace, warnings []compile.Warning) {
	for _, warn := range warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", w.styler.Status(tui.StatusWarning, "warning:"), warn.String())
	}
}

func warningStrings(warnings []compile.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, w.String())
	}
	return out
}

func writeModelJSON(out io.Writer, m *compile.Model) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func timecodeOf(m *compile.Model, frames int64) string {
	return timecode.FormatChapter(frames, m.Profile().FPS)
}
