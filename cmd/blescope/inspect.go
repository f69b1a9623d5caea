package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blescope/internal/bledb"
	"github.com/srg/blescope/internal/session"
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <device-address>",
	Short: "Connect to a BLE device and count its GATT services",
	Long: `Connects to a BLE device by address, checks the link, lists its GATT
services and disconnects. Prints the same lines as the interactive console.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var (
	inspectName     string
	inspectServices bool
)

func init() {
	inspectCmd.Flags().StringVar(&inspectName, "name", "", "Device name used in messages (default \"Unknown\")")
	inspectCmd.Flags().BoolVar(&inspectServices, "services", false, "Also print every service UUID with its SIG name")
}

func runInspect(cmd *cobra.Command, args []string) error {
	address := strings.TrimSpace(args[0])
	if address == "" {
		return fmt.Errorf("device address must not be empty")
	}

	a, err := newApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, cancel := interruptContext(cmd.Context(), cmd.ErrOrStderr(), "connect")
	defer cancel()

	out := cmd.OutOrStdout()
	dev := session.NewDiscoveredDevice(address, inspectName)

	progress := NewProgressPrinter(cmd.ErrOrStderr(), fmt.Sprintf("Inspecting device %s", address), "Connecting")
	progress.Start()
	outcome, err := a.session.ConnectAndInspect(ctx, dev, func(line string) {
		fmt.Fprintln(out, line)
	})
	progress.Stop()

	if outcome.Connected {
		color.New(color.FgGreen).Fprintf(out, "Connected to %s!\n", dev.Label())
		if err == nil {
			fmt.Fprintf(out, "Number of services: %d\n", len(outcome.Services))
			if inspectServices {
				for _, uuid := range outcome.Services {
					if name := bledb.LookupService(uuid); name != "" {
						fmt.Fprintf(out, "  - %s (%s)\n", uuid, name)
						continue
					}
					fmt.Fprintf(out, "  - %s\n", uuid)
				}
			}
		}
	}
	if err != nil {
		return fmt.Errorf("error during connect: %w", err)
	}
	if !outcome.Connected {
		color.New(color.FgRed).Fprintf(out, "Could not connect to %s.\n", dev.Label())
	}
	return nil
}
