package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/interaction"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

func init() {
	componentsCmd := &cobra.Command{
		Use:     "components [id]",
		Aliases: []string{"comp"},
		Short:   "List registered components, or show one",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				if len(args) == 1 {
					info, err := c.Lookup(ctx, args[0])
					if err != nil {
						return err
					}
					return printComponents(cmd.OutOrStdout(), []wire.ComponentInfo{info})
				}
				infos, err := c.Components(ctx)
				if err != nil {
					return err
				}
				return printComponents(cmd.OutOrStdout(), infos)
			})
		},
	}

	unregisterCmd := &cobra.Command{
		Use:   "unregister <id>",
		Short: "Unregister a component and remove its subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				if err := c.Unregister(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "unregistered %s\n", args[0])
				return nil
			})
		},
	}

	rootCmd.AddCommand(componentsCmd, unregisterCmd)
}

func printComponents(w io.Writer, infos []wire.ComponentInfo) error {
	if jsonOut {
		return printJSON(w, infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "no components registered")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tROOT\tINSTANCE")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.ID, orDash(info.Kind), info.Root, orDash(info.InstanceID))
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
