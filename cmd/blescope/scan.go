package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blescope/internal/session"
	"gopkg.in/yaml.v3"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for BLE devices",
	Long: `Scan for nearby Bluetooth Low Energy devices for a fixed duration and
print every device seen, in the order it was first seen. Devices that do not
advertise a name are shown as "Unknown".`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var scanFormat string

var scanFormats = []string{"table", "json", "yaml"}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "table", "Output format (table, json, yaml)")
}

// interruptContext cancels the returned context on Ctrl+C or SIGTERM
func interruptContext(parent context.Context, out io.Writer, what string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			_, _ = fmt.Fprintf(out, "\nCtrl+C pressed, cancelling %s...\n", what)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func runScan(cmd *cobra.Command, _ []string) error {
	valid := false
	for _, f := range scanFormats {
		if scanFormat == f {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid format '%s': must be one of %v", scanFormat, scanFormats)
	}

	a, err := newApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := interruptContext(cmd.Context(), cmd.ErrOrStderr(), "scan")
	defer cancel()

	progress := NewCountdownProgressPrinter(cmd.ErrOrStderr(), "Scanning for BLE devices", "Scanning", a.session.ScanTimeout())
	progress.Start()
	devices, err := a.session.Scan(ctx)
	progress.Stop()
	if err != nil {
		return err
	}

	return writeDevices(cmd.OutOrStdout(), devices, scanFormat)
}

func writeDevices(out io.Writer, devices []session.DiscoveredDevice, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(devices); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeDevicesTable(out, devices)
	}
}

func writeDevicesTable(out io.Writer, devices []session.DiscoveredDevice) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(out, "No devices discovered")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tADDRESS")

	for i, d := range devices {
		name := d.Name
		if r := []rune(name); len(r) > 24 {
			name = string(r[:21]) + "..."
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, name, d.Address)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := color.New(color.FgGreen).Fprintf(out, "Scan complete, found %d devices\n", len(devices))
	return err
}
