package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/discovery"
)

var (
	browseTimeout time.Duration
	browseSerial  string
	browseIface   string
)

func init() {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Find devices on the local network",
		Long: `browse listens for radiotree devices advertised over mDNS and prints
them once the timeout expires. With --serial it stops at the first match
and prints its address, which can be passed to --addr.

Example:
  radiotree browse --timeout 3s
  radiotree --addr $(radiotree browse --serial 30A1F2) get /mboards/0/name`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := discovery.DefaultBrowserConfig()
			cfg.Interface = browseIface
			if browseTimeout > 0 {
				cfg.BrowseTimeout = browseTimeout
			}
			b := discovery.NewMDNSBrowser(cfg)
			defer b.Stop()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if browseSerial != "" {
				svc, err := b.Find(ctx, browseSerial)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), svc.Address())
				return nil
			}
			found, err := b.FindAll(ctx, cfg.BrowseTimeout)
			if err != nil {
				return err
			}
			return printServices(cmd.OutOrStdout(), found)
		},
	}
	cmd.Flags().DurationVar(&browseTimeout, "timeout", 3*time.Second, "How long to listen")
	cmd.Flags().StringVar(&browseSerial, "serial", "", "Stop at the device with this serial")
	cmd.Flags().StringVar(&browseIface, "interface", "", "Network interface to browse on")
	rootCmd.AddCommand(cmd)
}

type jsonService struct {
	Serial   string `json:"serial"`
	Product  string `json:"product"`
	Name     string `json:"name,omitempty"`
	Address  string `json:"address"`
	Protocol int    `json:"protocol"`
}

func printServices(w io.Writer, services []*discovery.DeviceService) error {
	sort.Slice(services, func(i, j int) bool { return services[i].Serial < services[j].Serial })

	if jsonOut {
		out := make([]jsonService, len(services))
		for i, s := range services {
			out[i] = jsonService{Serial: s.Serial, Product: s.Product, Name: s.Name, Address: s.Address(), Protocol: s.Protocol}
		}
		return printJSON(w, out)
	}
	if len(services) == 0 {
		fmt.Fprintln(w, "no devices found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIAL\tPRODUCT\tNAME\tADDRESS")
	for _, s := range services {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Serial, s.Product, orDash(s.Name), s.Address())
	}
	return tw.Flush()
}
