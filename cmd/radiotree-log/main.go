// Command radiotree-log views and analyzes radiotree event logs (.rtlog).
//
// Event logs are written by radiotree-device when started with -event-log.
// Each file is a stream of CBOR-encoded events covering tree mutations,
// structural changes, protocol messages and diagnostics.
//
// Usage:
//
//	radiotree-log <command> [flags] <file.rtlog>
//
// Examples:
//
//	# View every event
//	radiotree-log view device.rtlog
//
//	# View writes below the first radio
//	radiotree-log view --category mutation --path /mboards/0/dboards/A device.rtlog
//
//	# Export to JSONL
//	radiotree-log export --format jsonl device.rtlog
//
//	# Keep one session and save it to a new file
//	radiotree-log filter --session 5f1c... -o session.rtlog device.rtlog
//
//	# Show statistics
//	radiotree-log stats device.rtlog
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/log"
)

var (
	filterLayer    string
	filterCategory string
	filterSession  string
	filterPath     string
	filterSince    string
	filterUntil    string
)

var rootCmd = &cobra.Command{
	Use:   "radiotree-log",
	Short: "View and analyze radiotree event logs",
	Long: `radiotree-log reads the CBOR event logs written by radiotree-device.
It can print them, export them to JSONL or CSV, cut them down to a subset,
and summarize them.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&filterLayer, "layer", "", "Filter by layer (transport, wire, service, tree, registry)")
	pf.StringVar(&filterCategory, "category", "", "Filter by category (message, mutation, lifecycle, diagnostic, error)")
	pf.StringVar(&filterSession, "session", "", "Filter by session ID")
	pf.StringVar(&filterPath, "path", "", "Keep events at or below this tree path")
	pf.StringVar(&filterSince, "since", "", "Keep events at or after this time (RFC3339)")
	pf.StringVar(&filterUntil, "until", "", "Keep events before this time (RFC3339)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildFilter turns the persistent flags into a log.Filter.
func buildFilter() (log.Filter, error) {
	f := log.Filter{
		SessionID:  filterSession,
		PathPrefix: filterPath,
	}
	if filterLayer != "" {
		l, err := parseLayer(filterLayer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if filterCategory != "" {
		c, err := parseCategory(filterCategory)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if filterSince != "" {
		t, err := time.Parse(time.RFC3339, filterSince)
		if err != nil {
			return f, fmt.Errorf("invalid --since: %w", err)
		}
		f.TimeStart = &t
	}
	if filterUntil != "" {
		t, err := time.Parse(time.RFC3339, filterUntil)
		if err != nil {
			return f, fmt.Errorf("invalid --until: %w", err)
		}
		f.TimeEnd = &t
	}
	return f, nil
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "service":
		return log.LayerService, nil
	case "tree":
		return log.LayerTree, nil
	case "registry":
		return log.LayerRegistry, nil
	default:
		return 0, fmt.Errorf("unknown layer: %s", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "mutation":
		return log.CategoryMutation, nil
	case "lifecycle":
		return log.CategoryLifecycle, nil
	case "diagnostic":
		return log.CategoryDiagnostic, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category: %s", s)
	}
}

// eachEvent calls fn for every event in path that matches filter.
func eachEvent(path string, filter log.Filter, fn func(log.Event) error) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := fn(event); err != nil {
			return err
		}
	}
}
