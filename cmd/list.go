package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"jog-pendant/pkg/serial"
)

var (
	listDetails bool
	listFormat  string
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial ports a controller may be attached to.

On different platforms:
  - Windows: Lists COM ports
  - Linux: Lists /dev/tty* devices
  - macOS: Lists /dev/cu.* and /dev/tty.* devices`,
	Aliases: []string{"ls", "ports"},
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listDetails, "details", "d", false, "show USB details")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, csv, json)")
}

func runList(cmd *cobra.Command, args []string) error {
	portInfos, err := serial.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("listing ports: %w", err)
	}
	return printPorts(cmd.OutOrStdout(), portInfos, listFormat, listDetails)
}

func printPorts(w io.Writer, portInfos []serial.PortInfo, format string, details bool) error {
	switch format {
	case "csv":
		printPortsCSV(w, portInfos, details)
	case "json":
		return printPortsJSON(w, portInfos, details)
	case "table", "":
		printPortsTable(w, portInfos, details)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func printPortsTable(w io.Writer, portInfos []serial.PortInfo, details bool) {
	if len(portInfos) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return
	}

	fmt.Fprintf(w, "Found %d serial port(s):\n", len(portInfos))
	for _, p := range portInfos {
		fmt.Fprintf(w, "  %s", p.Name)
		if details && p.IsUSB {
			fmt.Fprintf(w, " [USB]")
			if p.VID != "" || p.PID != "" {
				fmt.Fprintf(w, " VID:%s PID:%s", p.VID, p.PID)
			}
			if p.Description != "" {
				fmt.Fprintf(w, " - %s", p.Description)
			}
			if p.SerialNumber != "" {
				fmt.Fprintf(w, " (SN: %s)", p.SerialNumber)
			}
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "\nUse 'jog-pendant connect <port>' to start the pendant.")
}

func printPortsCSV(w io.Writer, portInfos []serial.PortInfo, details bool) {
	if !details {
		fmt.Fprintln(w, "port")
		for _, p := range portInfos {
			fmt.Fprintln(w, p.Name)
		}
		return
	}

	fmt.Fprintln(w, "port,is_usb,vid,pid,description,serial_number")
	for _, p := range portInfos {
		fmt.Fprintf(w, "%s,%t,%s,%s,%s,%s\n",
			p.Name,
			p.IsUSB,
			p.VID,
			p.PID,
			p.Description,
			p.SerialNumber)
	}
}

func printPortsJSON(w io.Writer, portInfos []serial.PortInfo, details bool) error {
	var v interface{} = portInfos
	if !details {
		names := make([]string, 0, len(portInfos))
		for _, p := range portInfos {
			names = append(names, p.Name)
		}
		v = names
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
