package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"emwy/internal/compile"
	"emwy/internal/config"
	"emwy/internal/logx"
	"emwy/internal/paths"
	"emwy/internal/tui"
)

// workspace is everything a project command needs once the document is
// loaded.
type workspace struct {
	paths    paths.ProjectPaths
	doc      config.Project
	contents []byte
	log      *logx.Session
	mode     tui.OutputMode
	styler   tui.Styler
}

func openWorkspace(cmd *cobra.Command) (*workspace, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return nil, err
	}
	exists, err := paths.FileExists(pp.ProjectFile)
	if err != nil {
		return nil, fmt.Errorf("stat project: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("no project document at %s (run emwy init)", pp.ProjectFile)
	}
	if err := pp.EnsureMetaDirs(); err != nil {
		return nil, err
	}

	session, err := logx.New(pp, logx.Options{
		Level:   userSettings.Logging.Level,
		Console: consoleWriter(cmd),
		NoColor: userSettings.Display.Color == tui.ColorNever,
	})
	if err != nil {
		return nil, err
	}

	contents, err := os.ReadFile(pp.ProjectFile)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("read project: %w", err)
	}
	doc, err := config.Load(pp.ProjectFile)
	if err != nil {
		session.Logger.Error().Err(err).Msg("load project failed")
		session.Close()
		return nil, err
	}

	mode := tui.DetectMode(cmd.OutOrStdout(), userSettings.Display.Color, outputJSON)
	return &workspace{
		paths:    pp,
		doc:      doc,
		contents: contents,
		log:      session,
		mode:     mode,
		styler:   tui.NewStyler(cmd.OutOrStdout(), mode),
	}, nil
}

func consoleWriter(cmd *cobra.Command) io.Writer {
	if !verbose && !userSettings.Logging.Console {
		return nil
	}
	return cmd.ErrOrStderr()
}

func (w *workspace) Close() error {
	return w.log.Close()
}

func (w *workspace) logger(component string) zerolog.Logger {
	return w.log.Component(component)
}

// compile runs the compiler and logs the outcome.
func (w *workspace) compile() (*compile.Model, []compile.Warning, error) {
	logger := w.logger("compile")
	logger.Info().Str("document", w.paths.ProjectFile).Msg("compile started")
	started := time.Now()

	c, err := compile.New(w.doc, nil)
	if err != nil {
		logDiagnostic(logger, err)
		return nil, nil, err
	}
	model, warnings, err := c.CompileWithWarnings()
	if err != nil {
		logDiagnostic(logger, err)
		return nil, nil, err
	}
	for _, warn := range warnings {
		logger.Warn().Str("ref", warn.Ref.String()).Msg(warn.Message)
	}
	logger.Info().
		Int64("frames", model.Length()).
		Int("playlists", len(model.Playlists())).
		Int("chapters", len(model.Chapters())).
		Dur("elapsed", time.Since(started)).
		Msg("compile finished")
	return model, warnings, nil
}

func logDiagnostic(logger zerolog.Logger, err error) {
	event := logger.Error().Err(err)
	if d := asDiagnostic(err); d != nil {
		event = event.Str("kind", string(d.Kind)).Str("ref", d.Ref.String())
	}
	event.Msg("compile failed")
}
