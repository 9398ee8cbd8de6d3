package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/log"
)

var filterOutput string

func init() {
	cmd := &cobra.Command{
		Use:   "filter <file.rtlog>",
		Short: "Write the matching events to a new log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := buildFilter()
			if err != nil {
				return err
			}
			n, err := runFilter(args[0], filter, filterOutput)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events to %s\n", n, filterOutput)
			return nil
		},
	}
	cmd.Flags().StringVarP(&filterOutput, "output", "o", "", "Output file (required)")
	_ = cmd.MarkFlagRequired("output")
	rootCmd.AddCommand(cmd)
}

// runFilter copies the events of path matching filter to output and returns
// how many were written.
func runFilter(path string, filter log.Filter, output string) (int, error) {
	if output == "" {
		return 0, errors.New("output file required")
	}
	f, err := os.Create(output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	enc := log.NewEncoder(f)
	n := 0
	err = eachEvent(path, filter, func(event log.Event) error {
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
		n++
		return nil
	})
	if err != nil {
		return n, err
	}
	return n, f.Sync()
}
