package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/srg/blescope/internal/shell"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd launches the interactive console when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "blescope",
	Short: "Minimal BLE scan & connect console",
	Long: `Minimal Bluetooth Low Energy console:

- Scan for nearby BLE devices
- Pick one from the list and connect to it
- See how many GATT services it advertises

Run without arguments for the interactive console, or use the scan and
inspect subcommands for scripted use. The BLE stack is selected with the
BLESCOPE_BACKEND environment variable (go-ble, tinygo, bluez).`,
	Version: formatVersion(version),
	Args:    cobra.NoArgs,
	RunE:    runConsole,
}

func runConsole(cmd *cobra.Command, _ []string) error {
	// the terminal belongs to the UI, logs only go to --log-file
	app, err := newApp(cmd, nil)
	if err != nil {
		return err
	}
	defer app.Close()

	cmd.SilenceUsage = true
	return shell.Run(cmd.Context(), app.session, app.logger)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true
	rootCmd.SetVersionTemplate(fmt.Sprintf("blescope %s (commit %s, built %s)\n", formatVersion(version), commit, date))

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(inspectCmd)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-file", "", "Write logs to this file")
	flags.Duration("scan-duration", 0, "Scan duration (default 5s)")
	flags.Duration("connect-timeout", 0, "Connection timeout (0 waits for the BLE stack)")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}
