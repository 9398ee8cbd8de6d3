package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/log"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "view <file.rtlog>",
		Short: "View a log file in human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter()
			if err != nil {
				return err
			}
			return runView(args[0], filter, os.Stdout)
		},
	})
}

func runView(path string, filter log.Filter, w io.Writer) error {
	count := 0
	err := eachEvent(path, filter, func(event log.Event) error {
		formatEvent(w, event)
		count++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d events\n", count)
	return nil
}

// formatEvent writes one event: a header line followed by indented details.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [%s] %-9s %s\n", ts, shortID(event.SessionID), event.Layer, eventLabel(event))

	switch {
	case event.Mutation != nil:
		m := event.Mutation
		fmt.Fprintf(w, "  %s: %s -> %s", m.Path, m.Previous, m.Value)
		if m.Desired.IsValid() && !m.Desired.Equal(m.Value) {
			fmt.Fprintf(w, " (desired %s)", m.Desired)
		}
		if m.Depth > 0 {
			fmt.Fprintf(w, " depth=%d", m.Depth)
		}
		if m.Internal {
			fmt.Fprint(w, " internal")
		}
		fmt.Fprintln(w)

	case event.Lifecycle != nil:
		l := event.Lifecycle
		switch {
		case l.Component != "":
			fmt.Fprintf(w, "  component %s at %s\n", l.Component, l.Path)
		case l.Target != "":
			fmt.Fprintf(w, "  %s -> %s\n", l.Path, l.Target)
		case l.Count > 0:
			fmt.Fprintf(w, "  %s (%d nodes)\n", l.Path, l.Count)
		case l.Value.IsValid():
			fmt.Fprintf(w, "  %s = %s\n", l.Path, l.Value)
		case l.Path != "":
			fmt.Fprintf(w, "  %s\n", l.Path)
		}
		if event.RemoteAddr != "" {
			fmt.Fprintf(w, "  remote: %s\n", event.RemoteAddr)
		}

	case event.Diagnostic != nil:
		d := event.Diagnostic
		fmt.Fprintf(w, "  %s", d.Path)
		if d.Duration > 0 {
			fmt.Fprintf(w, " took %s", formatDuration(d.Duration))
		}
		if d.Count > 0 {
			fmt.Fprintf(w, " undid %d changes", d.Count)
		}
		fmt.Fprintln(w)
		if d.Message != "" {
			fmt.Fprintf(w, "  %s\n", d.Message)
		}

	case event.Message != nil:
		m := event.Message
		fmt.Fprintf(w, "  %s id=%d", event.Direction, m.MessageID)
		if m.Operation != nil {
			fmt.Fprintf(w, " op=%s", m.Operation)
		}
		if m.Path != "" {
			fmt.Fprintf(w, " path=%s", m.Path)
		}
		if m.Status != nil {
			fmt.Fprintf(w, " status=%s", m.Status)
		}
		if m.SubscriptionID != nil {
			fmt.Fprintf(w, " sub=%d", *m.SubscriptionID)
		}
		if m.ProcessingTime != nil {
			fmt.Fprintf(w, " (%s)", formatDuration(*m.ProcessingTime))
		}
		fmt.Fprintln(w)

	case event.Frame != nil:
		f := event.Frame
		fmt.Fprintf(w, "  %s %d bytes", event.Direction, f.Size)
		if f.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
		if len(f.Data) > 0 {
			fmt.Fprintf(w, "  %s\n", hex.EncodeToString(f.Data))
		}

	case event.Error != nil:
		fmt.Fprintf(w, "  %s: %s\n", event.Error.Layer, event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, "  context: %s\n", event.Error.Context)
		}
	}
}

func eventLabel(event log.Event) string {
	switch {
	case event.Mutation != nil:
		return "SET"
	case event.Lifecycle != nil:
		return event.Lifecycle.Action.String()
	case event.Diagnostic != nil:
		return event.Diagnostic.Kind.String()
	case event.Message != nil:
		return event.Message.Type.String()
	case event.Frame != nil:
		return "FRAME"
	case event.Error != nil:
		return "ERROR"
	}
	return event.Category.String()
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	default:
		return d.Round(time.Millisecond).String()
	}
}
