package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	// ServiceType is the DNS-SD service type of a radiotree control server.
	ServiceType = "_radiotree._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default control server port.
	DefaultPort = 49200

	// ProtocolVersion is advertised in the proto TXT key.
	ProtocolVersion = 1
)

// TXT record keys.
const (
	TXTKeySerial  = "serial"
	TXTKeyProduct = "product"
	TXTKeyName    = "name"
	TXTKeyProto   = "proto"
)

const (
	// BrowseTimeout is the default timeout for Find.
	BrowseTimeout = 10 * time.Second

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTValueLen bounds a single key=value string.
	MaxTXTValueLen = 255
)

// Errors.
var (
	ErrMissingRequired = errors.New("missing required TXT field")
	ErrInvalidTXT      = errors.New("invalid TXT record")
	ErrNotAdvertising  = errors.New("not advertising")
	ErrNotFound        = errors.New("device not found")
)

// DeviceInfo is what a device advertises about itself.
type DeviceInfo struct {
	Serial  string
	Product string
	Name    string
	Port    uint16

	// Protocol is the control protocol version. Zero means ProtocolVersion.
	Protocol int
}

// InstanceName returns the DNS-SD instance name for the device.
func (i *DeviceInfo) InstanceName() string {
	name := i.Serial
	if i.Product != "" {
		name = i.Product + "-" + i.Serial
	}
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}

// DeviceService is a control server found on the network.
type DeviceService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Serial   string
	Product  string
	Name     string
	Protocol int
}

// Address returns a dialable host:port, preferring the first resolved
// address over the host name.
func (s *DeviceService) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

func (s *DeviceService) String() string {
	if s.Name != "" {
		return fmt.Sprintf("%s (%s %s) at %s", s.Name, s.Product, s.Serial, s.Address())
	}
	return fmt.Sprintf("%s %s at %s", s.Product, s.Serial, s.Address())
}
