package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"jog-pendant/pkg/config"
)

var (
	// Config command flags
	configPort        string
	configDescription string
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:     "config",
	Aliases: []string{"profile"},
	Short:   "Manage saved connection profiles",
	Long: `Manage saved connection profiles.

A profile names a controller: its serial port settings, the axis letters of
the machine and whether it starts in inches.`,
}

// saveCmd saves a profile
var saveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save a connection profile",
	Long: `Save a connection profile under a name.

Example:
  jog-pendant config save mill -p /dev/ttyACM0 -b 115200 --axes XYZA`,
	Args: cobra.ExactArgs(1),
	RunE: runSaveConfig,
}

// loadCmd loads a profile
var loadCmd = &cobra.Command{
	Use:   "load <name>",
	Short: "Connect using a saved profile",
	Long: `Load a saved profile and immediately start the pendant on it.

Example:
  jog-pendant config load mill`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

// listConfigCmd lists all profiles
var listConfigCmd = &cobra.Command{
	Use:   "list",
	Short: "List all saved profiles",
	RunE:  runListConfigs,
}

// deleteCmd deletes a profile
var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Short:   "Delete a saved profile",
	Aliases: []string{"rm", "remove"},
	Args:    cobra.ExactArgs(1),
	RunE:    runDeleteConfig,
}

// showCmd shows details of a profile
var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show details of a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowConfig,
}

func init() {
	configCmd.AddCommand(saveCmd)
	configCmd.AddCommand(loadCmd)
	configCmd.AddCommand(listConfigCmd)
	configCmd.AddCommand(deleteCmd)
	configCmd.AddCommand(showCmd)

	saveCmd.Flags().StringVarP(&configPort, "port", "p", "", "serial port")
	saveCmd.Flags().StringVar(&configDescription, "description", "", "free text description")
	addSerialFlags(saveCmd)
	saveCmd.MarkFlagRequired("port")

	loadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run against the built-in controller simulator")
	loadCmd.Flags().StringVar(&historyFile, "history", "", "save the controller traffic to this file on exit")
	loadCmd.Flags().StringVar(&historyFormat, "history-format", "timestamped", "history format (plain, timestamped, json)")
	loadCmd.Flags().IntVar(&retries, "retries", 3, "open retries for a busy or missing port")
}

func runSaveConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	name := args[0]

	p := config.Profile{
		Name:        name,
		Serial:      serialFromFlags(configPort),
		Description: configDescription,
	}
	if cmd.Flags().Changed("axes") {
		p.Axes = strings.ToUpper(axesFlag)
	}
	if cmd.Flags().Changed("inches") {
		p.Inches = inchesFlag
	}

	if err := profileManager().SaveProfile(p); err != nil {
		return fmt.Errorf("saving profile '%s': %w", name, err)
	}

	color.New(color.FgGreen).Fprintf(out, "Profile '%s' saved.\n", name)
	fmt.Fprintf(out, "  Port: %s\n", p.Serial.Port)
	fmt.Fprintf(out, "  Baud Rate: %d\n", p.Serial.BaudRate)
	if p.Axes != "" {
		fmt.Fprintf(out, "  Axes: %s\n", p.Axes)
	}
	return nil
}

func runListConfigs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	profiles, err := profileManager().ListProfiles()
	if err != nil {
		return fmt.Errorf("listing profiles: %w", err)
	}

	if len(profiles) == 0 {
		fmt.Fprintln(out, "No saved profiles found.")
		fmt.Fprintln(out, "\nUse 'jog-pendant config save <name>' to save one.")
		return nil
	}

	fmt.Fprintf(out, "Found %d saved profile(s):\n\n", len(profiles))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPORT\tBAUD\tAXES\tLAST USED")
	fmt.Fprintln(w, "----\t----\t----\t----\t---------")
	for _, p := range profiles {
		axes := p.Axes
		if axes == "" {
			axes = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			p.Name,
			p.Serial.Port,
			p.Serial.BaudRate,
			axes,
			p.LastUsedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Fprintln(out, "\nUse 'jog-pendant connect <name>' to connect using a profile.")
	return nil
}

func runDeleteConfig(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := profileManager().DeleteProfile(name); err != nil {
		return fmt.Errorf("deleting profile '%s': %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted.\n", name)
	return nil
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	name := args[0]

	profiles, err := profileManager().ListProfiles()
	if err != nil {
		return fmt.Errorf("loading profiles: %w", err)
	}

	var found *config.Profile
	for i := range profiles {
		if profiles[i].Name == name {
			found = &profiles[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("profile '%s' not found", name)
	}

	fmt.Fprintf(out, "Profile: %s\n", found.Name)
	fmt.Fprintln(out, strings.Repeat("=", len(found.Name)+9))
	if found.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", found.Description)
	}
	fmt.Fprintf(out, "Port:        %s\n", found.Serial.Port)
	fmt.Fprintf(out, "Baud Rate:   %d\n", found.Serial.BaudRate)
	fmt.Fprintf(out, "Data Bits:   %d\n", found.Serial.DataBits)
	fmt.Fprintf(out, "Stop Bits:   %d\n", found.Serial.StopBits)
	fmt.Fprintf(out, "Parity:      %s\n", found.Serial.Parity)
	fmt.Fprintf(out, "Timeout:     %v\n", found.Serial.Timeout)
	axes := found.Axes
	if axes == "" {
		axes = "(from settings)"
	}
	fmt.Fprintf(out, "Axes:        %s\n", axes)
	fmt.Fprintf(out, "Units:       %s\n", unitName(found.Inches))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Created:     %s\n", found.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Last Used:   %s\n", found.LastUsedAt.Format(time.RFC3339))
	return nil
}
