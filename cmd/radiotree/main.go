// Command radiotree is a client for radiotree devices.
//
// It connects to a device's control port, reads and writes nodes of its
// property tree, watches subtrees for changes and finds devices on the local
// network.
//
// Usage:
//
//	radiotree [--addr host:port] <command> [flags] [args]
//
// Examples:
//
//	# Find devices on the local network
//	radiotree browse
//
//	# Read and write the master clock rate
//	radiotree get /mboards/0/tick_rate
//	radiotree set /mboards/0/tick_rate 100e6
//
//	# Show every DSP rate
//	radiotree ls -l '/mboards/0/*_dsps/*/rate/value'
//
//	# Follow the first radio
//	radiotree watch /radio0
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/interaction"
	"github.com/radiotree/radiotree-go/pkg/transport"
)

var (
	addr    string
	timeout time.Duration
	verbose bool
	jsonOut bool
)

var rootCmd = &cobra.Command{
	Use:   "radiotree",
	Short: "Inspect and control radiotree devices",
	Long: `radiotree talks to the control port of a radiotree device. It reads and
writes property tree nodes, lists registered components, watches subtrees
and discovers devices through mDNS.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&addr, "addr", "a", fmt.Sprintf("localhost:%d", transport.DefaultPort), "Device address (host:port)")
	pf.DurationVar(&timeout, "timeout", 5*time.Second, "Request timeout")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&jsonOut, "json", false, "Output in JSON format")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// dial connects to the device at addr.
func dial(ctx context.Context) (*interaction.Client, error) {
	c, err := interaction.Dial(ctx, addr, interaction.ClientConfig{
		DialRetry: timeout,
		Timeout:   timeout,
		Logger:    slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return c, nil
}

// withClient dials, runs fn and closes the connection.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *interaction.Client) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

// printJSON outputs data as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
