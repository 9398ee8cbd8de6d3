package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/inspect"
	"github.com/radiotree/radiotree-go/pkg/interaction"
)

var (
	lsLong      bool
	showDesired bool
)

func init() {
	getCmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Read a node, or every node matching a pattern",
		Long: `get prints the value of a node. Paths may be aliases. A path containing
"*" or "**" is treated as a pattern and prints every matching node.

Example:
  radiotree get /mboards/0/tick_rate
  radiotree get /rx_dsp0/rate/value --desired
  radiotree get '/mboards/0/sensors/*'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				return runGet(ctx, c, cmd.OutOrStdout(), args[0])
			})
		},
	}
	getCmd.Flags().BoolVar(&showDesired, "desired", false, "Also show the last requested value")

	setCmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Write a node",
		Long: `set writes a value to a node. The text is parsed according to the node's
kind. The device may coerce the value; the stored value is printed.

Example:
  radiotree set /mboards/0/tick_rate 100e6
  radiotree set /radio0/antenna/value "RX2"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				return runSet(ctx, c, cmd.OutOrStdout(), args[0], strings.Join(args[1:], " "))
			})
		},
	}

	lsCmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List the children of a path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				return runList(ctx, c, cmd.OutOrStdout(), path, lsLong)
			})
		},
	}
	lsCmd.Flags().BoolVarP(&lsLong, "long", "l", false, "Show every node below path with its value")

	treeCmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Print the subtree at path",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				return runTree(ctx, c, cmd.OutOrStdout(), path)
			})
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				if err := c.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}

	rootCmd.AddCommand(getCmd, setCmd, lsCmd, treeCmd, rmCmd)
}

// jsonEntry is the JSON form of an inspected node.
type jsonEntry struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Value       any    `json:"value"`
	Desired     any    `json:"desired,omitempty"`
	Access      string `json:"access"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
}

func toJSON(entries []inspect.Entry) []jsonEntry {
	out := make([]jsonEntry, len(entries))
	for i, e := range entries {
		out[i] = jsonEntry{
			Path:        e.Path,
			Kind:        e.Kind.String(),
			Value:       e.Value.Any(),
			Access:      inspect.FormatAccess(e.Access),
			Unit:        e.Unit,
			Description: e.Description,
		}
		if e.Desired.IsValid() && !e.Desired.Equal(e.Value) {
			out[i].Desired = e.Desired.Any()
		}
	}
	return out
}

func runGet(ctx context.Context, c *interaction.Client, w io.Writer, path string) error {
	ri := inspect.NewRemoteInspector(c)
	f := inspect.NewFormatter()
	f.ShowDesired = showDesired

	if inspect.IsPattern(path) {
		entries, err := ri.Entries(ctx, path)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(w, toJSON(entries))
		}
		fmt.Fprint(w, f.FormatTable(inspect.PatternRoot(path), entries))
		return nil
	}

	vp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if jsonOut {
		out := map[string]any{"path": path, "value": vp.Value.Any()}
		if showDesired && vp.Desired.IsValid() {
			out["desired"] = vp.Desired.Any()
		}
		return printJSON(w, out)
	}
	fmt.Fprintln(w, vp.Value)
	if showDesired && vp.Desired.IsValid() && !vp.Desired.Equal(vp.Value) {
		fmt.Fprintf(w, "desired: %s\n", vp.Desired)
	}
	return nil
}

func runSet(ctx context.Context, c *interaction.Client, w io.Writer, path, text string) error {
	ri := inspect.NewRemoteInspector(c)
	v, err := ri.Write(ctx, path, text)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, map[string]any{"path": path, "value": v.Any()})
	}
	fmt.Fprintf(w, "%s = %s\n", path, v)
	return nil
}

func runList(ctx context.Context, c *interaction.Client, w io.Writer, path string, long bool) error {
	if long {
		entries, err := inspect.NewRemoteInspector(c).Entries(ctx, path)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(w, toJSON(entries))
		}
		fmt.Fprint(w, inspect.NewFormatter().FormatTable(path, entries))
		return nil
	}

	children, err := c.List(ctx, path)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, children)
	}
	for _, name := range children {
		fmt.Fprintln(w, name)
	}
	return nil
}

func runTree(ctx context.Context, c *interaction.Client, w io.Writer, path string) error {
	n, err := inspect.NewRemoteInspector(c).Inspect(ctx, path)
	if err != nil {
		return err
	}
	f := inspect.NewFormatter()
	f.ShowMetadata = true
	fmt.Fprint(w, f.FormatTree(n))
	fmt.Fprintf(w, "\n%d nodes\n", n.Count())
	return nil
}
