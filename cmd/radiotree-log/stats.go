package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/log"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats <file.rtlog>",
		Short: "Show statistics about a log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter()
			if err != nil {
				return err
			}
			stats, err := collectStats(args[0], filter)
			if err != nil {
				return err
			}
			printStats(os.Stdout, stats)
			return nil
		},
	})
}

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	Sessions         map[string]int
	Errors           int
	Rollbacks        int
	SlowCallbacks    int

	// Writes counts mutations per node path.
	Writes map[string]int

	Start time.Time
	End   time.Time
}

func collectStats(path string, filter log.Filter) (*Stats, error) {
	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		Sessions:         make(map[string]int),
		Writes:           make(map[string]int),
	}

	err := eachEvent(path, filter, func(event log.Event) error {
		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		if event.SessionID != "" {
			stats.Sessions[event.SessionID]++
		}
		if event.Error != nil {
			stats.Errors++
		}
		if event.Mutation != nil {
			stats.Writes[event.Mutation.Path]++
		}
		if d := event.Diagnostic; d != nil {
			switch d.Kind {
			case log.DiagnosticRollback:
				stats.Rollbacks++
			case log.DiagnosticSlowCallback:
				stats.SlowCallbacks++
			}
		}
		if stats.Start.IsZero() || event.Timestamp.Before(stats.Start) {
			stats.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.End) {
			stats.End = event.Timestamp
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintf(w, "Total events:   %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return
	}
	fmt.Fprintf(w, "Time range:     %s - %s (%s)\n",
		stats.Start.UTC().Format(time.RFC3339), stats.End.UTC().Format(time.RFC3339),
		stats.End.Sub(stats.Start).Round(time.Millisecond))
	fmt.Fprintf(w, "Sessions:       %d\n", len(stats.Sessions))
	fmt.Fprintf(w, "Errors:         %d\n", stats.Errors)
	fmt.Fprintf(w, "Rollbacks:      %d\n", stats.Rollbacks)
	fmt.Fprintf(w, "Slow callbacks: %d\n", stats.SlowCallbacks)

	fmt.Fprintln(w, "\nBy layer:")
	for _, l := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerService, log.LayerTree, log.LayerRegistry} {
		if n := stats.EventsByLayer[l]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", l, n)
		}
	}

	fmt.Fprintln(w, "\nBy category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryMutation, log.CategoryLifecycle, log.CategoryDiagnostic, log.CategoryError} {
		if n := stats.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", c, n)
		}
	}

	if len(stats.Writes) > 0 {
		fmt.Fprintln(w, "\nMost written nodes:")
		for _, p := range topPaths(stats.Writes, 10) {
			fmt.Fprintf(w, "  %6d  %s\n", stats.Writes[p], p)
		}
	}
}

// topPaths returns up to n paths ordered by descending count, then by path.
func topPaths(counts map[string]int, n int) []string {
	paths := make([]string, 0, len(counts))
	for p := range counts {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		if counts[paths[i]] != counts[paths[j]] {
			return counts[paths[i]] > counts[paths[j]]
		}
		return paths[i] < paths[j]
	})
	if len(paths) > n {
		paths = paths[:n]
	}
	return paths
}
