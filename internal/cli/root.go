package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"emwy/internal/settings"
)

var (
	projectDir   string
	outputJSON   bool
	settingsPath string
	verbose      bool

	userSettings = settings.Default()
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "emwy",
		Short:         "Compile emwy video projects into frame-exact edit plans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, _, _, err := settings.Load(settingsPath)
			if err != nil {
				return err
			}
			userSettings = s
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to project document or directory")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().StringVar(&settingsPath, "config", "", "Path to settings file (default ~/.config/emwy/config.toml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror log output to stderr")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newCompileCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newChaptersCmd())
	cmd.AddCommand(newInspectCmd())
	return cmd
}
