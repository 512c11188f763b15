package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jog-pendant/pkg/config"
)

var (
	// Root command flags
	verbose      bool
	settingsPath string
	configDir    string
	axesFlag     string
	inchesFlag   bool
	logLevel     string
	logFile      string

	// Root command
	rootCmd = &cobra.Command{
		Use:   "jog-pendant",
		Short: "A terminal jog pendant for grbl CNC controllers",
		Long: `jog-pendant turns a terminal into the jog pendant of a grbl controller.

Pick axes, choose the step digit and jog with the mouse wheel or the keyboard,
zero work offsets and run files stored on the controller.`,
		Version:           "1.0.0",
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all subcommands)
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output and debug logging")
	flags.StringVar(&settingsPath, "settings", config.DefaultSettingsPath(), "settings file")
	flags.StringVar(&configDir, "config-dir", config.DefaultDir(), "directory holding saved profiles")
	flags.StringVar(&axesFlag, "axes", "", "axis letters, e.g. XYZ or XYZA")
	flags.BoolVar(&inchesFlag, "inches", false, "start in inch mode")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "log file")

	// Add subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingFlags returns the settings keys set on the command line. Flags left
// at their default do not override the file or the environment.
func settingFlags(cmd *cobra.Command) map[string]interface{} {
	out := make(map[string]interface{})
	flags := cmd.Flags()
	if flags.Changed("axes") {
		out["axes"] = axesFlag
	}
	if flags.Changed("inches") {
		out["inches"] = inchesFlag
	}
	if flags.Changed("log-level") {
		out["log.level"] = logLevel
	}
	if flags.Changed("log-file") {
		out["log.file"] = logFile
	}
	if verbose && !flags.Changed("log-level") {
		out["log.level"] = "debug"
	}
	return out
}

// loadSettings layers the settings file, the environment and the flags.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	s, err := config.LoadSettings(settingsPath, settingFlags(cmd))
	if err != nil {
		return config.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

func profileManager() *config.FileProfileManager {
	return config.NewFileProfileManager(configDir)
}
