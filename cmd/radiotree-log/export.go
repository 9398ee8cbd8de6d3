package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/log"
)

var (
	exportFormat string
	exportOutput string
)

func init() {
	cmd := &cobra.Command{
		Use:   "export <file.rtlog>",
		Short: "Export a log file to JSONL or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter()
			if err != nil {
				return err
			}
			return runExport(args[0], filter, exportFormat, exportOutput)
		},
	}
	cmd.Flags().StringVar(&exportFormat, "format", "jsonl", "Output format (jsonl, csv)")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(cmd)
}

// record is the flat export form of an event.
type record struct {
	Timestamp string `json:"timestamp"`
	Session   string `json:"session,omitempty"`
	Layer     string `json:"layer"`
	Category  string `json:"category"`
	Event     string `json:"event"`
	Path      string `json:"path,omitempty"`
	Value     any    `json:"value,omitempty"`
	Previous  any    `json:"previous,omitempty"`
	Remote    string `json:"remote,omitempty"`
	Message   string `json:"message,omitempty"`
}

func toRecord(event log.Event) record {
	r := record{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Session:   event.SessionID,
		Layer:     event.Layer.String(),
		Category:  event.Category.String(),
		Event:     eventLabel(event),
		Path:      log.EventPath(event),
		Remote:    event.RemoteAddr,
	}
	switch {
	case event.Mutation != nil:
		r.Value = event.Mutation.Value.Any()
		r.Previous = event.Mutation.Previous.Any()
	case event.Lifecycle != nil:
		if event.Lifecycle.Value.IsValid() {
			r.Value = event.Lifecycle.Value.Any()
		}
		if event.Lifecycle.Target != "" {
			r.Message = event.Lifecycle.Target
		}
	case event.Diagnostic != nil:
		r.Message = event.Diagnostic.Message
	case event.Error != nil:
		r.Message = event.Error.Message
	}
	return r
}

func runExport(path string, filter log.Filter, format, output string) error {
	if format != "jsonl" && format != "csv" {
		return fmt.Errorf("unknown format: %s (use jsonl or csv)", format)
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "jsonl" {
		return exportJSONL(path, filter, w)
	}
	return exportCSV(path, filter, w)
}

func exportJSONL(path string, filter log.Filter, w io.Writer) error {
	enc := json.NewEncoder(w)
	return eachEvent(path, filter, func(event log.Event) error {
		return enc.Encode(toRecord(event))
	})
}

func exportCSV(path string, filter log.Filter, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "session", "layer", "category", "event", "path", "value", "previous", "remote", "message"}); err != nil {
		return err
	}
	err := eachEvent(path, filter, func(event log.Event) error {
		r := toRecord(event)
		return cw.Write([]string{
			r.Timestamp, r.Session, r.Layer, r.Category, r.Event, r.Path,
			csvValue(r.Value), csvValue(r.Previous), r.Remote, r.Message,
		})
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case map[string]any:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}
