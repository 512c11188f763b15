package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"
	"go.uber.org/zap"

	"jog-pendant/pkg/app"
	"jog-pendant/pkg/config"
	"jog-pendant/pkg/history"
	"jog-pendant/pkg/logging"
	"jog-pendant/pkg/serial"
)

var (
	// Connect command flags
	baudRate      int
	dataBits      int
	stopBits      int
	parity        string
	readTimeout   time.Duration
	retries       int
	dryRun        bool
	historyFile   string
	historyFormat string
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port|profile>",
	Short: "Connect to a grbl controller and start the pendant",
	Long: `Connect to a controller directly or using a saved profile, then run the
pendant until Ctrl+Q.

You can specify either:
  - A port name (e.g., COM3, /dev/ttyUSB0) with optional parameters
  - A saved profile name

Examples:
  # Connect to /dev/ttyUSB0 at the default 115200 baud
  jog-pendant connect /dev/ttyUSB0

  # Four axis machine at 250000 baud
  jog-pendant connect /dev/ttyACM0 -b 250000 --axes XYZA

  # Connect using a saved profile
  jog-pendant connect mill

  # Try the pendant against the built-in simulator
  jog-pendant connect --dry-run`,
	Args: func(cmd *cobra.Command, args []string) error {
		if dryRun {
			return cobra.MaximumNArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	Aliases: []string{"c", "open"},
	RunE:    runConnect,
}

func init() {
	addSerialFlags(connectCmd)
	connectCmd.Flags().IntVar(&retries, "retries", serial.DefaultRetryConfig().MaxRetries, "open retries for a busy or missing port")
	connectCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run against the built-in controller simulator")
	connectCmd.Flags().StringVar(&historyFile, "history", "", "save the controller traffic to this file on exit")
	connectCmd.Flags().StringVar(&historyFormat, "history-format", "timestamped", "history format (plain, timestamped, json)")
}

func addSerialFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&baudRate, "baud", "b", 115200, "baud rate")
	cmd.Flags().IntVarP(&dataBits, "data", "d", 8, "data bits (5, 6, 7, or 8)")
	cmd.Flags().IntVarP(&stopBits, "stop", "s", 1, "stop bits (1 or 2)")
	cmd.Flags().StringVar(&parity, "parity", "none", "parity (none, odd, even, mark, space)")
	cmd.Flags().DurationVarP(&readTimeout, "timeout", "t", 100*time.Millisecond, "read timeout")
}

func serialFromFlags(port string) serial.SerialConfig {
	return serial.SerialConfig{
		Port:     port,
		BaudRate: baudRate,
		DataBits: dataBits,
		StopBits: stopBits,
		Parity:   parity,
		Timeout:  readTimeout,
	}
}

func runConnect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	format, err := history.ParseFileFormat(historyFormat)
	if err != nil {
		return err
	}

	cfg := app.RunnerConfig{
		Options: app.Options{
			HistorySize:   history.DefaultMaxEntries,
			HistoryFile:   historyFile,
			HistoryFormat: format,
		},
		Retry:    serial.DefaultRetryConfig(),
		Simulate: dryRun,
		Out:      out,
	}
	cfg.Retry.MaxRetries = retries

	label := "simulator"
	if !dryRun {
		sc, profile, err := resolveTarget(cmd, args[0])
		if err != nil {
			return err
		}
		cfg.Serial = sc
		label = sc.Port
		if profile != nil {
			applyProfile(cmd, &settings, *profile)
			label = fmt.Sprintf("%s (%s)", profile.Name, sc.Port)
		}
	}
	cfg.Settings = settings

	logger, closer, err := logging.New(settings.Log)
	if err != nil {
		return err
	}
	defer closer.Close()
	defer logger.Sync()

	if verbose {
		printConnection(out, cfg)
	}

	runner := app.NewRunner(cfg, logger)
	port, err := connectWithSpinner(out, runner, label)
	if err != nil {
		printConnectHints(cmd.ErrOrStderr(), err, runner.LastPortError())
		return err
	}

	logger.Info("session starting", zap.String("target", label), zap.String("axes", settings.Axes))
	return runner.Run(port)
}

// resolveTarget turns a port name or a saved profile name into a serial
// configuration. The profile is nil for a plain port.
func resolveTarget(cmd *cobra.Command, target string) (serial.SerialConfig, *config.Profile, error) {
	if isSerialPort(target) {
		sc := serialFromFlags(target)
		if err := sc.Validate(); err != nil {
			return serial.SerialConfig{}, nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return sc, nil, nil
	}

	pm := profileManager()
	profile, err := pm.LoadProfile(target)
	if err != nil {
		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "'%s' is neither a valid port nor a saved profile.\n", target)
		fmt.Fprintf(w, "\nAvailable ports:\n")

		ports, _ := serial.ListPorts()
		if len(ports) == 0 {
			fmt.Fprintf(w, "  No serial ports found.\n")
		}
		for _, p := range ports {
			fmt.Fprintf(w, "  - %s\n", p)
		}

		profiles, _ := pm.ListProfiles()
		if len(profiles) > 0 {
			fmt.Fprintf(w, "\nSaved profiles:\n")
			for _, p := range profiles {
				fmt.Fprintf(w, "  - %s (port: %s)\n", p.Name, p.Serial.Port)
			}
		}
		return serial.SerialConfig{}, nil, fmt.Errorf("unknown port or profile '%s'", target)
	}
	return profile.Serial, &profile, nil
}

// applyProfile lets a profile's machine description stand in for the
// settings unless the command line says otherwise.
func applyProfile(cmd *cobra.Command, s *config.Settings, p config.Profile) {
	if p.Axes != "" && !cmd.Flags().Changed("axes") {
		s.Axes = p.Axes
	}
	if p.Inches && !cmd.Flags().Changed("inches") {
		s.Inches = true
	}
}

func isSerialPort(name string) bool {
	lower := strings.ToLower(name)

	// Windows COM ports
	if strings.HasPrefix(lower, "com") {
		return true
	}

	// Unix-like serial devices
	if strings.HasPrefix(name, "/dev/") {
		return true
	}

	return serial.IsPortAvailable(name)
}

func connectWithSpinner(w io.Writer, runner *app.Runner, label string) (io.ReadWriteCloser, error) {
	spinner, err := yacspin.New(yacspin.Config{
		Writer:            w,
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            " connecting to " + label,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopMessage:       "connected",
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
		StopFailMessage:   "failed",
	})
	if err != nil {
		// no spinner, same connection
		return runner.Connect()
	}

	_ = spinner.Start()
	port, err := runner.Connect()
	if err != nil {
		_ = spinner.StopFail()
		return nil, err
	}
	_ = spinner.Stop()
	return port, nil
}

func printConnection(w io.Writer, cfg app.RunnerConfig) {
	fmt.Fprintf(w, "Axes:      %s\n", cfg.Settings.Axes)
	fmt.Fprintf(w, "Units:     %s\n", unitName(cfg.Settings.Inches))
	if cfg.Simulate {
		fmt.Fprintf(w, "Port:      simulator\n")
		return
	}
	fmt.Fprintf(w, "Port:      %s\n", cfg.Serial.Port)
	fmt.Fprintf(w, "Settings:  %d %d-%s-%d\n",
		cfg.Serial.BaudRate,
		cfg.Serial.DataBits,
		strings.ToUpper(cfg.Serial.Parity[:1]),
		cfg.Serial.StopBits)
}

func unitName(inches bool) string {
	if inches {
		return "inch"
	}
	return "mm"
}

// printConnectHints suggests fixes for common open failures. cause is the
// port's last error, which the hints are matched against when known.
func printConnectHints(w io.Writer, err, cause error) {
	red := color.New(color.FgRed)
	red.Fprintf(w, "\nFailed to open the controller: %v\n", err)
	if cause == nil {
		cause = err
	} else if cause.Error() != err.Error() {
		fmt.Fprintf(w, "Last port error: %v\n", cause)
	}

	var hints []string
	errStr := strings.ToLower(cause.Error())
	if strings.Contains(errStr, "permission") || strings.Contains(errStr, "access") {
		hints = append(hints,
			"Check if you have permission to access the port",
			"On Linux: add your user to the 'dialout' group: sudo usermod -a -G dialout $USER")
	}
	if strings.Contains(errStr, "busy") || strings.Contains(errStr, "in use") {
		hints = append(hints,
			"The port may be in use by another sender or serial monitor",
			"Close the other program and try again")
	}
	if strings.Contains(errStr, "not found") || strings.Contains(errStr, "no such") {
		hints = append(hints,
			"The specified port does not exist",
			"Use 'jog-pendant list' to see available ports")
	}
	if len(hints) == 0 {
		return
	}

	fmt.Fprintf(w, "\nPossible solutions:\n")
	for _, h := range hints {
		fmt.Fprintf(w, "  - %s\n", h)
	}
}
