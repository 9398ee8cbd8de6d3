package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/radiotree/radiotree-go/pkg/connection"
	"github.com/radiotree/radiotree-go/pkg/interaction"
	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/wire"
)

var (
	watchMinInterval time.Duration
	watchMaxInterval time.Duration
	watchNoReconnect bool
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Print changes below path until interrupted",
		Long: `watch subscribes to the subtree at path and prints every change. When the
connection drops, watch reconnects with backoff and subscribes again; the
priming report after a reconnect shows the values missed meanwhile.

Example:
  radiotree watch /mboards/0/sensors
  radiotree watch /rx_dsp0 --min-interval 200ms`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := newWatcher(args[0], cmd.OutOrStdout(), &interaction.SubscribeOptions{
				MinInterval: watchMinInterval,
				MaxInterval: watchMaxInterval,
			})
			return w.run(ctx, !watchNoReconnect)
		},
	}
	cmd.Flags().DurationVar(&watchMinInterval, "min-interval", 0, "Coalescing window for changes")
	cmd.Flags().DurationVar(&watchMaxInterval, "max-interval", 0, "Heartbeat period (0 uses the device default)")
	cmd.Flags().BoolVar(&watchNoReconnect, "no-reconnect", false, "Exit when the connection drops")
	rootCmd.AddCommand(cmd)
}

// watcher keeps one subscription alive across reconnects.
type watcher struct {
	path string
	opts *interaction.SubscribeOptions
	out  io.Writer

	// dial is replaceable in tests.
	dial func(ctx context.Context) (*interaction.Client, error)

	mu     sync.Mutex
	client *interaction.Client
	mgr    *connection.Manager
	lost   chan struct{}
}

func newWatcher(path string, out io.Writer, opts *interaction.SubscribeOptions) *watcher {
	return &watcher{
		path: path,
		opts: opts,
		out:  out,
		dial: func(ctx context.Context) (*interaction.Client, error) {
			return interaction.Dial(ctx, addr, interaction.ClientConfig{
				DialRetry: -1,
				Timeout:   timeout,
				Logger:    slog.Default(),
			})
		},
		lost: make(chan struct{}, 1),
	}
}

// run connects and prints notifications until ctx is done. Without
// reconnect it returns once the connection drops.
func (w *watcher) run(ctx context.Context, reconnect bool) error {
	cfg := connection.DefaultConfig()
	cfg.AttemptTimeout = timeout
	cfg.Logger = slog.Default()
	w.mgr = connection.NewManagerWithConfig(w.connect, cfg)
	w.mgr.SetAutoReconnect(reconnect)
	w.mgr.OnReconnecting(func(attempt int, delay time.Duration) {
		slog.Info("reconnecting", slog.Int("attempt", attempt), slog.Duration("delay", delay))
	})
	w.mgr.OnDisconnected(func() {
		fmt.Fprintf(w.out, "%s connection lost\n", stamp())
		select {
		case w.lost <- struct{}{}:
		default:
		}
	})
	defer w.close()

	if err := w.mgr.Connect(ctx); err != nil {
		return err
	}
	w.mgr.StartReconnectLoop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.lost:
			if !reconnect {
				return fmt.Errorf("connection to %s lost", addr)
			}
		}
	}
}

// connect dials, subscribes and prints the priming report. A dropped
// connection is reported to the manager.
func (w *watcher) connect(ctx context.Context) error {
	c, err := w.dial(ctx)
	if err != nil {
		return err
	}
	c.SetNotificationHandler(func(n *wire.Notification) {
		w.printChanges(n.Changes)
	})

	id, values, err := c.Subscribe(ctx, w.path, w.opts)
	if err != nil {
		c.Close()
		return err
	}
	slog.Debug("subscribed", slog.String("path", w.path), slog.Uint64("id", uint64(id)))

	w.mu.Lock()
	old := w.client
	w.client = c
	w.mu.Unlock()
	if old != nil {
		old.Close()
	}

	w.printChanges(values)
	go func() {
		<-c.Done()
		w.mu.Lock()
		current := w.client == c
		w.mu.Unlock()
		if current {
			w.mgr.NotifyConnectionLost()
		}
	}()
	return nil
}

func (w *watcher) printChanges(changes map[string]property.Value) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprint(w.out, formatChanges(stamp(), changes))
}

func (w *watcher) close() {
	w.mu.Lock()
	c := w.client
	w.client = nil
	w.mu.Unlock()
	if c != nil {
		c.Close()
	}
	if w.mgr != nil {
		w.mgr.Close()
	}
}

// formatChanges renders changes one per line, sorted by path.
func formatChanges(ts string, changes map[string]property.Value) string {
	paths := make([]string, 0, len(changes))
	for p := range changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out string
	for _, p := range paths {
		out += fmt.Sprintf("%s %s = %s\n", ts, p, changes[p])
	}
	return out
}

func stamp() string {
	return time.Now().Format("15:04:05.000")
}
