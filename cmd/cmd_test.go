package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"jog-pendant/pkg/config"
	"jog-pendant/pkg/serial"
)

// resetFlags puts every flag back to its default so commands can be executed
// repeatedly in one process.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// isolated returns the flags that keep a command away from the user's real
// configuration.
func isolated(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{"--config-dir", dir, "--settings", filepath.Join(dir, config.SettingsFileName)}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "jog-pendant" {
		t.Errorf("rootCmd.Use = %s, want jog-pendant", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("rootCmd.Short should not be empty")
	}

	for _, expected := range []string{"list", "config", "connect", "settings"} {
		found := false
		for _, cmd := range rootCmd.Commands() {
			if cmd.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected subcommand '%s' not found", expected)
		}
	}
}

func TestConfigCommandHelp(t *testing.T) {
	out, err := executeCommand(t, "config", "--help")
	if err != nil {
		t.Fatalf("config --help failed: %v", err)
	}

	for _, expected := range []string{"save", "load", "list", "delete", "show"} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected config help to contain '%s'", expected)
		}
	}
}

func TestConnectCommandHelp(t *testing.T) {
	out, err := executeCommand(t, "connect", "--help")
	if err != nil {
		t.Fatalf("connect --help failed: %v", err)
	}

	for _, expected := range []string{"port", "baud", "dry-run", "history"} {
		if !strings.Contains(out, expected) {
			t.Errorf("Expected connect help to contain '%s'", expected)
		}
	}
}

func TestConnectRequiresTarget(t *testing.T) {
	args := append([]string{"connect"}, isolated(t)...)
	if _, err := executeCommand(t, args...); err == nil {
		t.Error("connect without a target should fail")
	}
}

func TestConnectUnknownProfile(t *testing.T) {
	args := append([]string{"connect", "no-such-machine"}, isolated(t)...)
	out, err := executeCommand(t, args...)
	if err == nil {
		t.Fatal("connect to an unknown profile should fail")
	}
	if !strings.Contains(out, "neither a valid port nor a saved profile") {
		t.Errorf("output = %q", out)
	}
}

func TestConfigProfileLifecycle(t *testing.T) {
	iso := isolated(t)
	run := func(args ...string) (string, error) {
		return executeCommand(t, append(args, iso...)...)
	}

	out, err := run("config", "save", "mill", "-p", "/dev/ttyACM0", "-b", "250000", "--axes", "xyza", "--description", "garage")
	if err != nil {
		t.Fatalf("config save failed: %v", err)
	}
	if !strings.Contains(out, "Profile 'mill' saved") {
		t.Errorf("save output = %q", out)
	}

	out, err = run("config", "list")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	for _, want := range []string{"mill", "/dev/ttyACM0", "250000", "XYZA"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	out, err = run("config", "show", "mill")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"Profile: mill", "Description: garage", "Axes:        XYZA", "Units:       mm"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if _, err := run("config", "delete", "mill"); err != nil {
		t.Fatalf("config delete failed: %v", err)
	}
	if _, err := run("config", "show", "mill"); err == nil {
		t.Error("config show after delete should fail")
	}
}

func TestConfigSaveInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing port", []string{"config", "save", "mill"}},
		{"bad baud", []string{"config", "save", "mill", "-p", "/dev/ttyACM0", "-b", "1234"}},
		{"bad axes", []string{"config", "save", "mill", "-p", "/dev/ttyACM0", "--axes", "XYQ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := executeCommand(t, append(tt.args, isolated(t)...)...); err == nil {
				t.Error("config save should fail")
			}
		})
	}
}

func TestConfigListEmpty(t *testing.T) {
	out, err := executeCommand(t, append([]string{"config", "list"}, isolated(t)...)...)
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	if !strings.Contains(out, "No saved profiles found.") {
		t.Errorf("output = %q", out)
	}
}

func TestSettingsShow(t *testing.T) {
	args := append([]string{"settings", "--axes", "xyzab"}, isolated(t)...)
	out, err := executeCommand(t, args...)
	if err != nil {
		t.Fatalf("settings failed: %v", err)
	}
	for _, want := range []string{"axes: XYZAB", "status_interval: 200ms", "feed_factor:"} {
		if !strings.Contains(out, want) {
			t.Errorf("settings output missing %q:\n%s", want, out)
		}
	}
}

func TestSettingsShowInvalid(t *testing.T) {
	args := append([]string{"settings", "--axes", "XXY"}, isolated(t)...)
	if _, err := executeCommand(t, args...); err == nil {
		t.Error("settings with duplicate axes should fail")
	}
}

func TestSettingsInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", config.SettingsFileName)
	args := []string{"settings", "init", "--settings", path, "--config-dir", t.TempDir(), "--axes", "XYZA"}

	if _, err := executeCommand(t, args...); err != nil {
		t.Fatalf("settings init failed: %v", err)
	}

	s, err := config.LoadSettings(path, nil)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Axes != "XYZA" {
		t.Errorf("written axes = %q, want XYZA", s.Axes)
	}

	if _, err := executeCommand(t, args...); err == nil {
		t.Error("second settings init without --force should fail")
	}
	if _, err := executeCommand(t, append(args, "--force")...); err != nil {
		t.Errorf("settings init --force failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("settings file missing: %v", err)
	}
}

func TestSettingFlags(t *testing.T) {
	c := &cobra.Command{Use: "sample"}
	c.Flags().StringVar(&axesFlag, "axes", "", "")
	c.Flags().BoolVar(&inchesFlag, "inches", false, "")
	c.Flags().StringVar(&logLevel, "log-level", "", "")
	c.Flags().StringVar(&logFile, "log-file", "", "")

	if got := settingFlags(c); len(got) != 0 {
		t.Errorf("settingFlags() with nothing set = %v, want empty", got)
	}

	if err := c.Flags().Set("axes", "XZ"); err != nil {
		t.Fatal(err)
	}
	verbose = true
	defer func() { verbose = false }()

	got := settingFlags(c)
	if got["axes"] != "XZ" {
		t.Errorf("settingFlags()[axes] = %v, want XZ", got["axes"])
	}
	if got["log.level"] != "debug" {
		t.Errorf("settingFlags()[log.level] = %v, want debug", got["log.level"])
	}
	if _, ok := got["inches"]; ok {
		t.Error("unchanged inches flag should not override settings")
	}
}

func TestApplyProfile(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{Use: "sample"}
		c.Flags().String("axes", "", "")
		c.Flags().Bool("inches", false, "")
		return c
	}
	profile := config.Profile{Name: "lathe", Axes: "XZ", Inches: true}

	s := config.DefaultSettings()
	applyProfile(newCmd(), &s, profile)
	if s.Axes != "XZ" || !s.Inches {
		t.Errorf("applyProfile() = axes %q inches %v, want XZ true", s.Axes, s.Inches)
	}

	c := newCmd()
	if err := c.Flags().Set("axes", "XYZ"); err != nil {
		t.Fatal(err)
	}
	s = config.DefaultSettings()
	applyProfile(c, &s, profile)
	if s.Axes != config.DefaultSettings().Axes {
		t.Errorf("applyProfile() overrode an explicit --axes: %q", s.Axes)
	}
}

func TestIsSerialPort(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"COM3", true},
		{"com10", true},
		{"/dev/ttyUSB0", true},
		{"/dev/cu.usbmodem1101", true},
		{"mill", false},
		{"my-router", false},
	}

	for _, tt := range tests {
		if got := isSerialPort(tt.name); got != tt.want {
			t.Errorf("isSerialPort(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPrintPorts(t *testing.T) {
	ports := []serial.PortInfo{
		{Name: "/dev/ttyACM0", Description: "Arduino Uno", IsUSB: true, VID: "2341", PID: "0043", SerialNumber: "A1"},
		{Name: "/dev/ttyS0"},
	}

	tests := []struct {
		name    string
		format  string
		details bool
		want    []string
		wantErr bool
	}{
		{"table", "table", false, []string{"Found 2 serial port(s)", "/dev/ttyS0"}, false},
		{"table details", "table", true, []string{"[USB] VID:2341 PID:0043 - Arduino Uno (SN: A1)"}, false},
		{"csv", "csv", false, []string{"port\n/dev/ttyACM0\n/dev/ttyS0\n"}, false},
		{"csv details", "csv", true, []string{"/dev/ttyACM0,true,2341,0043,Arduino Uno,A1"}, false},
		{"json", "json", false, []string{`"/dev/ttyACM0"`}, false},
		{"json details", "json", true, []string{`"is_usb": true`, `"vid": "2341"`}, false},
		{"unknown", "xml", false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := printPorts(&buf, ports, tt.format, tt.details)
			if (err != nil) != tt.wantErr {
				t.Fatalf("printPorts() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("printPorts() output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestPrintPortsEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := printPorts(&buf, nil, "table", false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No serial ports found.") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintConnectHints(t *testing.T) {
	denied := errors.New("open /dev/ttyACM0: permission denied")

	tests := []struct {
		err   error
		cause error
		want  string
	}{
		{denied, nil, "dialout"},
		{errors.New("serial port busy"), nil, "in use by another sender"},
		{errors.New("open /dev/ttyACM9: no such file or directory"), nil, "jog-pendant list"},
		{errors.New("something odd"), nil, ""},
		{fmt.Errorf("failed to open serial port after 1 attempts: %w", denied), denied, "Last port error: " + denied.Error()},
		{fmt.Errorf("failed to open serial port after 1 attempts: %w", denied), denied, "dialout"},
		{errors.New("no luck"), errors.New("no luck"), ""},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		printConnectHints(&buf, tt.err, tt.cause)
		out := buf.String()
		if !strings.Contains(out, tt.err.Error()) {
			t.Errorf("printConnectHints(%v) does not repeat the error:\n%s", tt.err, out)
		}
		if tt.want == "" {
			if strings.Contains(out, "Possible solutions") || strings.Contains(out, "Last port error") {
				t.Errorf("printConnectHints(%v) offered hints:\n%s", tt.err, out)
			}
			continue
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("printConnectHints(%v, %v) missing %q:\n%s", tt.err, tt.cause, tt.want, out)
		}
	}
}

func TestSerialFromFlags(t *testing.T) {
	resetFlags(rootCmd)
	sc := serialFromFlags("/dev/ttyUSB0")
	if err := sc.Validate(); err != nil {
		t.Errorf("default flag serial config invalid: %v", err)
	}
	if sc.BaudRate != 115200 || sc.Parity != "none" {
		t.Errorf("serialFromFlags() = %+v", sc)
	}
}
