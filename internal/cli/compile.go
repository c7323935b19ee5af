package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"emwy/internal/compile"
	"emwy/internal/export"
	"emwy/internal/state"
	"emwy/internal/tui"
)

var (
	compileOutput string
	compileNoSave bool
)

// stateLockTimeout bounds how long compile waits for another process
// holding the project state lock.
const stateLockTimeout = 10 * time.Second

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the project into playlists, a track stack and chapters",
		Args:  cobra.NoArgs,
		RunE:  runCompile,
	}
	cmd.Flags().StringVarP(&compileOutput, "output", "o", "", "Write the compiled model as JSON to this path (\"-\" for stdout)")
	cmd.Flags().BoolVar(&compileNoSave, "no-state", false, "Do not record the compile in the project state file")
	return cmd
}

type compileResult struct {
	Project     string         `json:"project"`
	Fingerprint string         `json:"fingerprint"`
	Frames      int64          `json:"frames"`
	Duration    string         `json:"duration"`
	Change      state.Change   `json:"change"`
	Warnings    []string       `json:"warnings,omitempty"`
	Model       *compile.Model `json:"model,omitempty"`
}

func runCompile(cmd *cobra.Command, _ []string) error {
	w, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer w.Close()

	model, warnings, err := w.compile()
	if err != nil {
		return err
	}

	fingerprint, err := state.Fingerprint(model)
	if err != nil {
		return err
	}
	change, err := w.recordCompile(cmd.Context(), model, fingerprint)
	if err != nil {
		return err
	}

	if compileOutput != "" && compileOutput != "-" {
		target := w.paths.ResolveOutput(compileOutput, "")
		if err := export.WriteFile(target, func(out io.Writer) error {
			return writeModelJSON(out, model)
		}); err != nil {
			return err
		}
		log := w.logger("compile")
		log.Info().Str("path", target).Msg("wrote compiled model")
	}

	result := compileResult{
		Project:     w.paths.ProjectFile,
		Fingerprint: fingerprint,
		Frames:      model.Length(),
		Duration:    timecodeOf(model, model.Length()),
		Change:      change,
		Warnings:    warningStrings(warnings),
	}
	if compileOutput == "-" {
		result.Model = model
	}

	if outputJSON || compileOutput == "-" {
		return writeJSON(cmd, result)
	}

	writeWarnings(cmd, w, warnings)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Project: %s\n", w.styler.Faint(w.paths.ProjectFile))
	writePlaylistTable(cmd, w, model)
	fmt.Fprintf(out, "Length: %s\n", formatFrames(model.Length(), model.Profile().FPS))
	fmt.Fprintf(out, "Chapters: %d\n", len(model.Chapters()))
	fmt.Fprintf(out, "Fingerprint: %s\n", fingerprint)
	status := tui.StatusOK
	if change.Changed {
		status = tui.StatusChanged
	}
	fmt.Fprintf(out, "Status: %s\n", w.styler.Status(status, change.Reason))
	return nil
}

// recordCompile compares the fingerprint with the last recorded compile and
// stores the new record unless --no-state is set.
func (w *workspace) recordCompile(ctx context.Context, model *compile.Model, fingerprint string) (state.Change, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	docHash := state.DocumentHash(w.contents)
	store := state.NewStore(w.paths.StateFile, w.paths.LockFile)
	logger := w.logger("state")

	if compileNoSave {
		cs, err := store.Read()
		if err != nil {
			return state.Change{}, err
		}
		return state.DetectChange(cs, fingerprint, docHash), nil
	}

	ctx, cancel := context.WithTimeout(ctx, stateLockTimeout)
	defer cancel()

	var change state.Change
	err := store.Update(ctx, func(cs *state.CompileState) error {
		change = state.DetectChange(cs, fingerprint, docHash)
		cs.Last = &state.Record{
			Fingerprint:  fingerprint,
			DocumentHash: docHash,
			CompiledAt:   time.Now().UTC(),
			Session:      w.log.ID,
			Frames:       model.Length(),
			Playlists:    len(model.Playlists()),
			Chapters:     len(model.Chapters()),
		}
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("update state failed")
		return state.Change{}, err
	}
	logger.Info().
		Str("fingerprint", fingerprint).
		Bool("changed", change.Changed).
		Str("reason", change.Reason).
		Msg("state updated")
	return change, nil
}
