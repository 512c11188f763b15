package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jog-pendant/pkg/config"
)

var settingsForce bool

// settingsCmd prints the effective settings
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective pendant settings",
	Long: `Show the settings the pendant would run with, as YAML.

Settings are layered, lowest first: built-in defaults, the settings file,
JOGPENDANT_ environment variables (JOGPENDANT_TUNING__FEED_FACTOR=30 sets
tuning.feed_factor) and command line flags.`,
	Args: cobra.NoArgs,
	RunE: runShowSettings,
}

// settingsInitCmd writes a settings file
var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective settings to the settings file",
	Args:  cobra.NoArgs,
	RunE:  runInitSettings,
}

func init() {
	settingsCmd.AddCommand(settingsInitCmd)
	settingsInitCmd.Flags().BoolVarP(&settingsForce, "force", "f", false, "overwrite an existing file")
}

func runShowSettings(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "# settings file: %s\n", settingsPath)
	}
	return config.WriteSettings(cmd.OutOrStdout(), s)
}

func runInitSettings(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	if _, err := os.Stat(settingsPath); err == nil && !settingsForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", settingsPath)
	}
	if err := os.MkdirAll(filepath.Dir(settingsPath), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	f, err := os.Create(settingsPath)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	if err := config.WriteSettings(f, s); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", settingsPath)
	return nil
}
