package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/inspect"
	"github.com/radiotree/radiotree-go/pkg/interaction"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

// createOptions are the flags of the create command.
type createOptions struct {
	Kind        string
	Access      string
	Unit        string
	Description string
	Min         float64
	Max         float64
	HasMin      bool
	HasMax      bool
	Clip        bool
	Choices     []string
}

var createOpts createOptions

func init() {
	cmd := &cobra.Command{
		Use:   "create <path> <value>",
		Short: "Create a node",
		Long: `create adds a node to the device tree. The value's kind is guessed from
the text unless --kind is given. --min/--max reject (or with --clip, clamp)
out-of-range numbers; --choice restricts the node to a set of values.

Example:
  radiotree create /user/label "bench A"
  radiotree create /user/gain 10 --kind float --min 0 --max 30 --clip
  radiotree create /user/mode auto --choice auto --choice manual`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			createOpts.HasMin = cmd.Flags().Changed("min")
			createOpts.HasMax = cmd.Flags().Changed("max")
			payload, err := createOpts.payload(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *interaction.Client) error {
				return runCreate(ctx, c, cmd.OutOrStdout(), args[0], payload)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&createOpts.Kind, "kind", "", "Value kind (bool, int, float, string)")
	f.StringVar(&createOpts.Access, "access", "rw", "Access (ro, rw)")
	f.StringVar(&createOpts.Unit, "unit", "", "Unit shown next to the value")
	f.StringVar(&createOpts.Description, "description", "", "Node description")
	f.Float64Var(&createOpts.Min, "min", 0, "Lower bound for numeric nodes")
	f.Float64Var(&createOpts.Max, "max", 0, "Upper bound for numeric nodes")
	f.BoolVar(&createOpts.Clip, "clip", false, "Clamp out-of-range values instead of rejecting them")
	f.StringArrayVar(&createOpts.Choices, "choice", nil, "Allowed value (repeatable)")
	rootCmd.AddCommand(cmd)
}

// payload builds the create request from the options and the initial value
// text.
func (o createOptions) payload(text string) (*wire.CreatePayload, error) {
	kind := property.KindInvalid
	if o.Kind != "" {
		k, err := property.ParseKind(o.Kind)
		if err != nil {
			return nil, err
		}
		kind = k
	}
	v, err := inspect.ParseValue(kind, text)
	if err != nil {
		return nil, err
	}
	access, err := inspect.ParseAccess(o.Access)
	if err != nil {
		return nil, err
	}

	p := &wire.CreatePayload{
		Value:       v,
		Access:      access,
		Unit:        o.Unit,
		Description: o.Description,
		Clip:        o.Clip,
	}
	if o.HasMin {
		p.Min = &o.Min
	}
	if o.HasMax {
		p.Max = &o.Max
	}
	if o.HasMin && o.HasMax && o.Min > o.Max {
		return nil, fmt.Errorf("--min %g is above --max %g", o.Min, o.Max)
	}
	for _, c := range o.Choices {
		cv, err := inspect.ParseValue(v.Kind(), c)
		if err != nil {
			return nil, fmt.Errorf("choice %q: %w", c, err)
		}
		p.Choices = append(p.Choices, cv)
	}
	return p, nil
}

func runCreate(ctx context.Context, c *interaction.Client, w io.Writer, path string, p *wire.CreatePayload) error {
	vp, err := c.Create(ctx, path, p)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, map[string]any{"path": path, "value": vp.Value.Any()})
	}
	fmt.Fprintf(w, "created %s = %s\n", path, vp.Value)
	return nil
}
