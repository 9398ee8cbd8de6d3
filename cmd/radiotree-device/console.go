package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"

	"github.com/radiotree/radiotree-go/pkg/inspect"
)

// console is the interactive command line of the device.
type console struct {
	daemon    *daemon
	inspector *inspect.Inspector
	formatter *inspect.Formatter
	rl        *readline.Instance
	out       io.Writer
}

func newConsole(d *daemon) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "device> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsoleWithOutput(d, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsoleWithOutput(d *daemon, out io.Writer) *console {
	return &console{
		daemon:    d,
		inspector: inspect.NewInspector(d.tree),
		formatter: inspect.NewFormatter(),
		out:       out,
	}
}

// Run reads commands until the user quits or ctx is done. Quitting cancels
// the daemon.
func (c *console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
		if c.exec(line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// exec runs one command line and reports whether the user asked to quit.
func (c *console) exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "get", "read", "r":
		c.cmdGet(args)
	case "set", "write", "w":
		c.cmdSet(args)
	case "ls":
		c.cmdList(args)
	case "tree", "inspect", "i":
		c.cmdTree(args)
	case "alias":
		c.cmdAlias(args)
	case "unalias":
		c.cmdUnalias(args)
	case "components", "comp":
		c.cmdComponents()
	case "save":
		c.cmdSave()
	case "status":
		c.cmdStatus()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, `
Device Commands:
  Tree:
    get <path>             - Read a node (patterns with * and ** list matches)
    set <path> <value>     - Write a node as a client would
    ls [path]              - List the children of a path
    tree [path]            - Show the subtree at path
    alias <path> <target>  - Make path an alias of target
    unalias <path>         - Remove an alias

  Device:
    components             - List registered components
    status                 - Show device status
    save                   - Save writable nodes to the state file

  General:
    help                   - Show this help
    quit                   - Exit device`)
}

func (c *console) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: get <path>")
		fmt.Fprintln(c.out, "  Example: get /mboards/0/tick_rate")
		return
	}
	path := args[0]
	if inspect.IsPattern(path) {
		entries, err := c.inspector.Entries(path)
		if err != nil {
			fmt.Fprintf(c.out, "Error: %v\n", err)
			return
		}
		fmt.Fprint(c.out, c.formatter.FormatTable(inspect.PatternRoot(path), entries))
		return
	}
	h, err := c.daemon.tree.Resolve(path)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	v, err := h.Get()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s = %s\n", path, c.formatter.FormatValue(v, h.Metadata().Unit))
}

func (c *console) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.out, "Usage: set <path> <value>")
		fmt.Fprintln(c.out, "  Example: set /rx_dsp0/rate/value 1e6")
		return
	}
	v, err := c.inspector.Write(args[0], strings.Trim(strings.Join(args[1:], " "), "\"'"))
	if err != nil {
		fmt.Fprintf(c.out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s = %s\n", args[0], v)
}

func (c *console) cmdList(args []string) {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	children, err := c.daemon.tree.List(path)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	for _, name := range children {
		fmt.Fprintf(c.out, "  %s\n", name)
	}
}

func (c *console) cmdTree(args []string) {
	path := "/"
	if len(args) > 0 {
		path = args[0]
	}
	n, err := c.inspector.Inspect(path)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprint(c.out, c.formatter.FormatTree(n))
}

func (c *console) cmdAlias(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: alias <path> <target>")
		return
	}
	if err := c.daemon.tree.Alias(args[0], args[1]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s -> %s\n", args[0], args[1])
}

func (c *console) cmdUnalias(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: unalias <path>")
		return
	}
	if err := c.daemon.tree.Unalias(args[0]); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "removed alias %s\n", args[0])
}

func (c *console) cmdComponents() {
	comps := c.daemon.registry.Components()
	if len(comps) == 0 {
		fmt.Fprintln(c.out, "No components registered")
		return
	}
	fmt.Fprintf(c.out, "\nComponents (%d):\n", len(comps))
	fmt.Fprintln(c.out, "-------------------------------------------")
	for _, comp := range comps {
		fmt.Fprintf(c.out, "  %-12s %-12s %s\n", comp.ID, comp.Kind, comp.Root)
	}
}

func (c *console) cmdSave() {
	if err := c.daemon.save(); err != nil {
		fmt.Fprintf(c.out, "Save failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Saved to %s\n", c.daemon.state.Path())
}

func (c *console) cmdStatus() {
	d := c.daemon
	fmt.Fprintln(c.out, "\nDevice Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	fmt.Fprintf(c.out, "  Serial:       %s\n", d.serial())
	fmt.Fprintf(c.out, "  Name:         %s\n", d.readString("/mboards/0/name"))
	if rate, err := d.device.TickRate(); err == nil {
		fmt.Fprintf(c.out, "  Tick rate:    %s\n", inspect.FormatSI(rate, "Hz"))
	}
	fmt.Fprintf(c.out, "  Components:   %d\n", d.registry.Len())
	fmt.Fprintf(c.out, "  Subscriptions: %d\n", d.server.SubscriptionCount())

	aliases := d.tree.Aliases()
	names := make([]string, 0, len(aliases))
	for a := range aliases {
		names = append(names, a)
	}
	sort.Strings(names)
	fmt.Fprintf(c.out, "  Aliases:      %s\n", strings.Join(names, " "))
	if d.bridge != nil {
		st := d.bridge.Stats()
		fmt.Fprintf(c.out, "  Bridge:       connected=%t published=%d dropped=%d\n", d.bridge.Connected(), st.Published, st.Dropped)
	}
	fmt.Fprintln(c.out)
}
