package discovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for Find and FindAll.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
	}
}

// ServiceEntry is a resolved DNS-SD entry, decoupled from the mDNS library.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToDeviceService converts the entry, decoding its TXT records.
func (e *ServiceEntry) ToDeviceService() (*DeviceService, error) {
	info, err := DecodeDeviceTXT(StringsToTXTRecords(e.Text))
	if err != nil {
		return nil, err
	}
	return &DeviceService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    append([]string(nil), e.Addrs...),
		Serial:       info.Serial,
		Product:      info.Product,
		Name:         info.Name,
		Protocol:     info.Protocol,
	}, nil
}

// MDNSBrowser finds radiotree devices with zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	return &MDNSBrowser{config: config}
}

// Browse streams devices as they appear. Entries seen on several interfaces
// are aggregated by instance name; a device is emitted once. The channel is
// closed when ctx is cancelled or Stop is called.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *DeviceService, error) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	in := make(chan *ServiceEntry)
	gone := make(chan *ServiceEntry)
	out := make(chan *DeviceService)

	go convertEntries(ctx, entries, in)
	go convertEntries(ctx, removed, gone)
	go aggregate(ctx, in, gone, out)

	var opts []zeroconf.ClientOption
	if ifaces := selectInterface(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// Find returns the first device with the given serial. It gives up after
// BrowseTimeout unless ctx has an earlier deadline.
func (b *MDNSBrowser) Find(ctx context.Context, serial string) (*DeviceService, error) {
	ctx, cancel := context.WithTimeout(ctx, b.config.BrowseTimeout)
	defer cancel()

	found, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for svc := range found {
		if svc.Serial == serial {
			return svc, nil
		}
	}
	return nil, fmt.Errorf("%w: serial %s", ErrNotFound, serial)
}

// FindAll collects every device seen within timeout (BrowseTimeout if zero).
func (b *MDNSBrowser) FindAll(ctx context.Context, timeout time.Duration) ([]*DeviceService, error) {
	if timeout <= 0 {
		timeout = b.config.BrowseTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	found, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	var all []*DeviceService
	for svc := range found {
		all = append(all, svc)
	}
	return all, nil
}

// Stop cancels all active browse operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

func convertEntries(ctx context.Context, in <-chan *zeroconf.ServiceEntry, out chan<- *ServiceEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- fromZeroconf(entry):
			case <-ctx.Done():
				return
			}
		}
	}
}

func fromZeroconf(entry *zeroconf.ServiceEntry) *ServiceEntry {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}
	return &ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}
}

// aggregate merges entries by instance name and emits each device once.
// A device whose addresses all disappear may be emitted again later.
func aggregate(ctx context.Context, entries, removed <-chan *ServiceEntry, out chan<- *DeviceService) {
	defer close(out)

	services := make(map[string]*DeviceService)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			svc, err := entry.ToDeviceService()
			if err != nil {
				continue
			}
			if existing, found := services[svc.InstanceName]; found {
				existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
				continue
			}
			services[svc.InstanceName] = svc
			select {
			case out <- svc:
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := services[entry.Instance]; found {
				existing.Addresses = removeAddresses(existing.Addresses, entry.Addrs)
				if len(existing.Addresses) == 0 {
					delete(services, entry.Instance)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range add {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

func removeAddresses(addresses, drop []string) []string {
	toRemove := make(map[string]bool, len(drop))
	for _, addr := range drop {
		toRemove[addr] = true
	}
	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
