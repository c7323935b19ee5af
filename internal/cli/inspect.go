package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"emwy/internal/compile"
	"emwy/internal/timecode"
	"emwy/internal/tui"
)

var inspectPlaylist string

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the compiled stack, overlays and chapters",
		Args:  cobra.NoArgs,
		RunE:  runInspect,
	}
	cmd.Flags().StringVar(&inspectPlaylist, "playlist", "", "List the entries of one playlist")
	return cmd
}

func runInspect(cmd *cobra.Command, _ []string) error {
	w, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer w.Close()

	model, warnings, err := w.compile()
	if err != nil {
		return err
	}

	if inspectPlaylist != "" {
		p, ok := model.Playlist(inspectPlaylist)
		if !ok {
			return fmt.Errorf("no playlist %q (have %s)", inspectPlaylist, strings.Join(playlistIDs(model), ", "))
		}
		if outputJSON {
			return writeJSON(cmd, p)
		}
		writeEntryTable(cmd, w, p, model)
		return nil
	}

	if outputJSON {
		return writeModelJSON(cmd.OutOrStdout(), model)
	}

	writeWarnings(cmd, w, warnings)
	out := cmd.OutOrStdout()
	profile := model.Profile()
	fmt.Fprintf(out, "%s %dx%d @ %s fps, %d Hz %s\n", w.styler.Header("Profile:"),
		profile.Width, profile.Height, profile.FPS.Decimal(), profile.SampleRate, profile.AudioLayout)
	writePlaylistTable(cmd, w, model)

	fmt.Fprintln(out, w.styler.Header("Tracks"))
	var trackRows [][]string
	for i, t := range model.Tracks() {
		trackRows = append(trackRows, []string{strconv.Itoa(i), t.Playlist, string(t.Lane), string(t.Role)})
	}
	fmt.Fprintln(out, tui.RenderTable([]string{"#", "PLAYLIST", "LANE", "ROLE"}, trackRows,
		[]tui.Align{tui.AlignRight}, w.mode))

	if overlays := model.Overlays(); len(overlays) > 0 {
		fmt.Fprintln(out, w.styler.Header("Overlays"))
		var rows [][]string
		for _, o := range overlays {
			rows = append(rows, []string{
				o.Overlay,
				spanText(o.Declared),
				activeText(o.Active),
				fmt.Sprintf("%g %g %g %g", o.Geometry[0], o.Geometry[1], o.Geometry[2], o.Geometry[3]),
				fmt.Sprintf("%g", o.Opacity),
			})
		}
		fmt.Fprintln(out, tui.RenderTable([]string{"OVERLAY", "DECLARED", "ACTIVE", "GEOMETRY", "OPACITY"}, rows, nil, w.mode))
	}

	if chapters := model.Chapters(); len(chapters) > 0 {
		fmt.Fprintln(out, w.styler.Header("Chapters"))
		var rows [][]string
		for _, ch := range chapters {
			rows = append(rows, []string{ch.Time, itoa(ch.Frame), strconv.Itoa(ch.Level), ch.Title})
		}
		fmt.Fprintln(out, tui.RenderTable([]string{"TIME", "FRAME", "LEVEL", "TITLE"}, rows,
			[]tui.Align{tui.AlignLeft, tui.AlignRight, tui.AlignRight}, w.mode))
	}
	return nil
}

func writeEntryTable(cmd *cobra.Command, w *workspace, p compile.Playlist, m *compile.Model) {
	fps := m.Profile().FPS
	rows := make([][]string, 0, len(p.Entries))
	for i, e := range p.Entries {
		rows = append(rows, []string{
			strconv.Itoa(i),
			itoa(e.Start),
			itoa(e.Length),
			timecodeOf(m, e.Start),
			string(e.Kind),
			describeEntry(e),
			e.Origin.String(),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), w.styler.Header(fmt.Sprintf("%s (%s, %s)", p.ID, p.Lane, formatFrames(p.Length(), fps))))
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderTable(
		[]string{"#", "START", "LENGTH", "TIME", "KIND", "DETAIL", "ORIGIN"},
		rows,
		[]tui.Align{tui.AlignRight, tui.AlignRight, tui.AlignRight},
		w.mode,
	))
	for _, tr := range p.Transitions {
		fmt.Fprintf(cmd.OutOrStdout(), "transition %s %d->%d at %d (%d+%d frames)\n",
			tr.Kind, tr.OutIndex, tr.InIndex, tr.Cut, tr.TailA, tr.HeadB)
	}
}

func describeEntry(e compile.Entry) string {
	switch e.Kind {
	case compile.EntrySource:
		s := e.Source
		detail := fmt.Sprintf("%s [%d,%d)", s.Asset, s.In, s.Out)
		if !s.Speed.Equal(timecode.One) {
			detail += " x" + s.Speed.Decimal()
		}
		return detail
	case compile.EntryBlank:
		return string(e.Fill)
	case compile.EntryGenerator:
		g := e.Generator
		if label := firstNonEmpty(g.Title, g.Text, g.Asset); label != "" {
			return fmt.Sprintf("%s %q", g.Kind, label)
		}
		return g.Kind
	case compile.EntryNested:
		if e.Nested != nil {
			return fmt.Sprintf("%d frames, %d chapters", e.Nested.Length(), len(e.Nested.Chapters()))
		}
	}
	return ""
}

func spanText(s compile.Span) string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

func activeText(spans []compile.Span) string {
	if len(spans) == 0 {
		return "none"
	}
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = spanText(s)
	}
	return strings.Join(parts, " ")
}

func playlistIDs(m *compile.Model) []string {
	var ids []string
	for _, p := range m.Playlists() {
		ids = append(ids, p.ID)
	}
	return ids
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
