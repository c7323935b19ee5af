package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"emwy/internal/compile"
	"emwy/internal/config"
	"emwy/internal/tui"
)

var validateStrict bool

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report every compile error in the project at once",
		Long: "Validate compiles each part of the project independently and reports at most one error per part, " +
			"plus warnings. With --strict it also checks that asset files exist and flags unreferenced assets and styles.",
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
	cmd.Flags().BoolVar(&validateStrict, "strict", false, "Also check files on disk and unreferenced definitions")
	return cmd
}

type validateIssue struct {
	Level   string `json:"level"`
	Kind    string `json:"kind,omitempty"`
	Ref     string `json:"ref,omitempty"`
	Message string `json:"message"`
}

type validatePayload struct {
	Project string          `json:"project"`
	OK      bool            `json:"ok"`
	Issues  []validateIssue `json:"issues"`
}

func runValidate(cmd *cobra.Command, _ []string) error {
	w, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer w.Close()

	report := compile.Validate(w.doc, nil)
	var strict []config.ValidationResult
	if validateStrict {
		strict = w.doc.ValidateStrict()
	}
	issues := collectIssues(report, strict)

	logger := w.logger("validate")
	errorCount := 0
	for _, issue := range issues {
		if issue.Level == "error" {
			errorCount++
			logger.Error().Str("kind", issue.Kind).Str("ref", issue.Ref).Msg(issue.Message)
		} else {
			logger.Warn().Str("ref", issue.Ref).Msg(issue.Message)
		}
	}
	logger.Info().Int("errors", errorCount).Int("issues", len(issues)).Msg("validation finished")

	if outputJSON {
		if err := writeJSON(cmd, validatePayload{
			Project: w.paths.ProjectFile,
			OK:      errorCount == 0,
			Issues:  issues,
		}); err != nil {
			return err
		}
	} else {
		writeIssues(cmd, w, issues)
	}

	if errorCount > 0 {
		return fmt.Errorf("validation failed with %d error(s)", errorCount)
	}
	return nil
}

func collectIssues(report compile.Report, strict []config.ValidationResult) []validateIssue {
	issues := make([]validateIssue, 0, len(report.Errors)+len(report.Warnings)+len(strict))
	for _, d := range report.Errors {
		issues = append(issues, validateIssue{
			Level:   "error",
			Kind:    string(d.Kind),
			Ref:     d.Ref.String(),
			Message: d.Message,
		})
	}
	for _, warn := range report.Warnings {
		issue := validateIssue{Level: "warning", Message: warn.Message}
		if warn.Ref.Scope != "" {
			issue.Ref = warn.Ref.String()
		}
		issues = append(issues, issue)
	}
	// Unreferenced definitions already arrive as report warnings.
	for _, res := range strict {
		if res.Level != "error" {
			continue
		}
		issues = append(issues, validateIssue{Level: res.Level, Message: res.Message})
	}
	return issues
}

func writeIssues(cmd *cobra.Command, w *workspace, issues []validateIssue) {
	out := cmd.OutOrStdout()
	if len(issues) == 0 {
		fmt.Fprintf(out, "%s %s\n", w.styler.Status(tui.StatusOK, "ok:"), w.paths.ProjectFile)
		return
	}
	for _, issue := range issues {
		status := tui.StatusWarning
		if issue.Level == "error" {
			status = tui.StatusError
		}
		label := w.styler.Status(status, issue.Level+":")
		switch {
		case issue.Kind != "":
			fmt.Fprintf(out, "%s [%s] %s: %s\n", label, issue.Kind, issue.Ref, issue.Message)
		case issue.Ref != "":
			fmt.Fprintf(out, "%s %s: %s\n", label, issue.Ref, issue.Message)
		default:
			fmt.Fprintf(out, "%s %s\n", label, issue.Message)
		}
	}
}
