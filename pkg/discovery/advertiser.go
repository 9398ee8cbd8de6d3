package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		TTL: 120 * time.Second,
	}
}

// MDNSAdvertiser registers a device's control server with zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   DeviceInfo
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &MDNSAdvertiser{config: config}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	return selectInterface(a.config.Interface)
}

// Advertise starts advertising info, replacing any previous advertisement.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *DeviceInfo) error {
	txt := EncodeDeviceTXT(info)
	if err := ValidateTXT(txt); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	port := int(info.Port)
	if port == 0 {
		port = DefaultPort
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.InstanceName(),
		ServiceType,
		Domain,
		port,
		TXTRecordsToStrings(txt),
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}

	a.server = server
	a.info = *info
	a.config.Logger.Info("advertising device",
		slog.String("instance", info.InstanceName()),
		slog.Int("port", port))
	return nil
}

// Update replaces the advertised TXT records, e.g. after a rename.
func (a *MDNSAdvertiser) Update(info *DeviceInfo) error {
	txt := EncodeDeviceTXT(info)
	if err := ValidateTXT(txt); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	a.server.SetText(TXTRecordsToStrings(txt))
	a.info = *info
	return nil
}

// Info returns the advertised device info and whether an advertisement is
// active.
func (a *MDNSAdvertiser) Info() (DeviceInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info, a.server != nil
}

// Stop withdraws the advertisement. It is a no-op when not advertising.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

func selectInterface(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
