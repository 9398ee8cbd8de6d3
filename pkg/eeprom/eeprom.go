package eeprom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
)

const (
	// SerialLen is the serial field length on N100 boards.
	SerialLen = 9

	// NameMaxLen is the name field length shared by every map.
	NameMaxLen = 32 - SerialLen

	b000SerialLen = 8
)

// I2C addresses of the motherboard EEPROMs.
const (
	AddrN100 uint8 = 0x50
	AddrB000 uint8 = 0x50
	AddrE100 uint8 = 0x51
)

// ErrUnknownMap is returned for a Map value with no layout.
var ErrUnknownMap = errors.New("unknown eeprom map")

// I2C reads and writes EEPROM bytes on a bus.
type I2C interface {
	ReadEEPROM(addr, offset uint8, n int) ([]byte, error)
	WriteEEPROM(addr, offset uint8, data []byte) error
}

// Map selects an EEPROM layout.
type Map uint8

const (
	MapN100 Map = iota + 1
	MapB000
	MapE100
)

// String returns the map name.
func (m Map) String() string {
	switch m {
	case MapN100:
		return "N100"
	case MapB000:
		return "B000"
	case MapE100:
		return "E100"
	default:
		return "UNKNOWN"
	}
}

// ParseMap parses a map name, case-insensitively.
func ParseMap(s string) (Map, error) {
	switch strings.ToUpper(s) {
	case "N100":
		return MapN100, nil
	case "B000":
		return MapB000, nil
	case "E100":
		return MapE100, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMap, s)
}

// Addr returns the I2C address of the map's EEPROM.
func (m Map) Addr() uint8 {
	if m == MapE100 {
		return AddrE100
	}
	return AddrN100
}

// Keys returns the keys the map stores, sorted.
func (m Map) Keys() []string {
	var keys []string
	switch m {
	case MapN100:
		keys = []string{"rev", "product", "mac-addr", "ip-addr", "gpsdo", "serial", "name"}
	case MapB000:
		keys = []string{"serial", "name", "mcr"}
	case MapE100:
		keys = []string{"vendor", "device", "revision", "content"}
		for _, f := range e100Strings {
			keys = append(keys, f.key)
		}
	}
	sort.Strings(keys)
	return keys
}

// EEPROM holds motherboard EEPROM contents as strings keyed by field name.
type EEPROM map[string]string

// Clone returns a copy of e.
func (e EEPROM) Clone() EEPROM {
	out := make(EEPROM, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// N100 layout.
const (
	n100Rev     uint8 = 0x00
	n100MAC     uint8 = 0x02
	n100IP      uint8 = 0x0C
	n100Product uint8 = 0x14
	n100GPSDO   uint8 = 0x17
	n100Serial  uint8 = 0x18
	n100Name    uint8 = n100Serial + SerialLen
)

const (
	gpsdoNone     = 0
	gpsdoInternal = 1
	gpsdoOnboard  = 2
)

// B000 layout, packed downward from the end of the part.
const (
	b000Serial uint8 = 0xF8
	b000Name   uint8 = b000Serial - NameMaxLen
	b000MCR    uint8 = b000Name - 4
)

// Master clock rates outside (mcrMin, mcrMax) are treated as unprogrammed.
const (
	mcrMin = 1e6
	mcrMax = 1e9
)

// E100 layout: vendor(2) device(2) revision(1) content(1) then strings.
const (
	e100Vendor   uint8 = 0
	e100Device   uint8 = 2
	e100Revision uint8 = 4
	e100Content  uint8 = 5
)

type stringField struct {
	key    string
	offset uint8
	size   int
}

var e100Strings = []stringField{
	{"model", 6, 8},
	{"env_var", 14, 16},
	{"env_setting", 30, 64},
	{"serial", 94, 10},
	{"name", 104, NameMaxLen},
}

// Load reads the EEPROM contents for map m.
func Load(bus I2C, m Map) (EEPROM, error) {
	switch m {
	case MapN100:
		return loadN100(bus)
	case MapB000:
		return loadB000(bus)
	case MapE100:
		return loadE100(bus)
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownMap, m)
}

// Commit writes the keys present in e. Absent keys are left untouched on
// the part.
func (e EEPROM) Commit(bus I2C, m Map) error {
	switch m {
	case MapN100:
		return e.storeN100(bus)
	case MapB000:
		return e.storeB000(bus)
	case MapE100:
		return e.storeE100(bus)
	}
	return fmt.Errorf("%w: %d", ErrUnknownMap, m)
}

func read(bus I2C, addr, offset uint8, n int) ([]byte, error) {
	b, err := bus.ReadEEPROM(addr, offset, n)
	if err != nil {
		return nil, fmt.Errorf("read eeprom 0x%02x+0x%02x: %w", addr, offset, err)
	}
	if len(b) < n {
		return nil, fmt.Errorf("read eeprom 0x%02x+0x%02x: short read (%d of %d bytes)", addr, offset, len(b), n)
	}
	return b[:n], nil
}

func write(bus I2C, addr, offset uint8, data []byte) error {
	if err := bus.WriteEEPROM(addr, offset, data); err != nil {
		return fmt.Errorf("write eeprom 0x%02x+0x%02x: %w", addr, offset, err)
	}
	return nil
}

func readString(bus I2C, addr, offset uint8, n int) (string, error) {
	b, err := read(bus, addr, offset, n)
	if err != nil {
		return "", err
	}
	return bytesToString(b), nil
}

// bytesToString stops at the first byte outside printable ASCII, which
// covers both NUL terminators and erased (0xff) cells.
func bytesToString(b []byte) string {
	for i, c := range b {
		if c < 32 || c > 127 {
			return string(b[:i])
		}
	}
	return string(b)
}

// stringToBytes truncates s to max bytes. A NUL terminator is appended only
// when it leaves room for one more byte, so a string one short of the field
// leaves the last cell as it was.
func stringToBytes(s string, max int) []byte {
	if len(s) > max {
		s = s[:max]
	}
	b := []byte(s)
	if len(b) < max-1 {
		b = append(b, 0)
	}
	return b
}

func loadN100(bus I2C) (EEPROM, error) {
	e := EEPROM{}
	addr := AddrN100

	b, err := read(bus, addr, n100Rev, 2)
	if err != nil {
		return nil, err
	}
	e["rev"] = strconv.Itoa(int(binary.LittleEndian.Uint16(b)))

	if b, err = read(bus, addr, n100Product, 2); err != nil {
		return nil, err
	}
	if prod := binary.LittleEndian.Uint16(b); prod == 0 || prod == 0xffff {
		e["product"] = ""
	} else {
		e["product"] = strconv.Itoa(int(prod))
	}

	mac, err := read(bus, addr, n100MAC, 6)
	if err != nil {
		return nil, err
	}
	e["mac-addr"] = net.HardwareAddr(mac).String()

	if b, err = read(bus, addr, n100IP, 4); err != nil {
		return nil, err
	}
	e["ip-addr"] = net.IP(b).To4().String()

	if b, err = read(bus, addr, n100GPSDO, 1); err != nil {
		return nil, err
	}
	switch b[0] {
	case gpsdoInternal:
		e["gpsdo"] = "internal"
	case gpsdoOnboard:
		e["gpsdo"] = "onboard"
	default:
		e["gpsdo"] = "none"
	}

	if e["serial"], err = readString(bus, addr, n100Serial, SerialLen); err != nil {
		return nil, err
	}
	if e["name"], err = readString(bus, addr, n100Name, NameMaxLen); err != nil {
		return nil, err
	}

	// Unprogrammed boards derive a serial from the low 12 bits of the MAC.
	if e["serial"] == "" {
		serial := uint(mac[5]) | uint(mac[4]&0x0f)<<8
		e["serial"] = strconv.FormatUint(uint64(serial), 10)
	}
	return e, nil
}

func (e EEPROM) storeN100(bus I2C) error {
	addr := AddrN100
	if v, ok := e["rev"]; ok {
		n, err := parseUint16("rev", v)
		if err != nil {
			return err
		}
		if err := write(bus, addr, n100Rev, binary.LittleEndian.AppendUint16(nil, n)); err != nil {
			return err
		}
	}
	if v, ok := e["product"]; ok {
		var n uint16
		if v != "" {
			var err error
			if n, err = parseUint16("product", v); err != nil {
				return err
			}
		}
		if err := write(bus, addr, n100Product, binary.LittleEndian.AppendUint16(nil, n)); err != nil {
			return err
		}
	}
	if v, ok := e["mac-addr"]; ok {
		mac, err := parseMAC(v)
		if err != nil {
			return err
		}
		if err := write(bus, addr, n100MAC, mac); err != nil {
			return err
		}
	}
	if v, ok := e["ip-addr"]; ok {
		ip, err := parseIPv4(v)
		if err != nil {
			return err
		}
		if err := write(bus, addr, n100IP, ip); err != nil {
			return err
		}
	}
	if v, ok := e["gpsdo"]; ok {
		b := byte(gpsdoNone)
		switch v {
		case "internal":
			b = gpsdoInternal
		case "onboard":
			b = gpsdoOnboard
		}
		if err := write(bus, addr, n100GPSDO, []byte{b}); err != nil {
			return err
		}
	}
	if v, ok := e["serial"]; ok {
		if err := write(bus, addr, n100Serial, stringToBytes(v, SerialLen)); err != nil {
			return err
		}
	}
	if v, ok := e["name"]; ok {
		if err := write(bus, addr, n100Name, stringToBytes(v, NameMaxLen)); err != nil {
			return err
		}
	}
	return nil
}

func loadB000(bus I2C) (EEPROM, error) {
	e := EEPROM{}
	addr := AddrB000
	var err error
	if e["serial"], err = readString(bus, addr, b000Serial, b000SerialLen); err != nil {
		return nil, err
	}
	if e["name"], err = readString(bus, addr, b000Name, NameMaxLen); err != nil {
		return nil, err
	}
	b, err := read(bus, addr, b000MCR, 4)
	if err != nil {
		return nil, err
	}
	mcr := binary.BigEndian.Uint32(b)
	if float64(mcr) > mcrMin && float64(mcr) < mcrMax {
		e["mcr"] = strconv.FormatUint(uint64(mcr), 10)
	} else {
		e["mcr"] = ""
	}
	return e, nil
}

func (e EEPROM) storeB000(bus I2C) error {
	addr := AddrB000
	if v, ok := e["serial"]; ok {
		if err := write(bus, addr, b000Serial, stringToBytes(v, b000SerialLen)); err != nil {
			return err
		}
	}
	if v, ok := e["name"]; ok {
		if err := write(bus, addr, b000Name, stringToBytes(v, NameMaxLen)); err != nil {
			return err
		}
	}
	if v, ok := e["mcr"]; ok {
		var mcr uint32
		if v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > float64(^uint32(0)) {
				return fmt.Errorf("mcr: invalid rate %q", v)
			}
			mcr = uint32(f)
		}
		if err := write(bus, addr, b000MCR, binary.BigEndian.AppendUint32(nil, mcr)); err != nil {
			return err
		}
	}
	return nil
}

func loadE100(bus I2C) (EEPROM, error) {
	e := EEPROM{}
	addr := AddrE100
	hdr, err := read(bus, addr, 0, int(e100Strings[0].offset))
	if err != nil {
		return nil, err
	}
	e["vendor"] = strconv.Itoa(int(binary.BigEndian.Uint16(hdr[e100Vendor:])))
	e["device"] = strconv.Itoa(int(binary.BigEndian.Uint16(hdr[e100Device:])))
	e["revision"] = strconv.Itoa(int(hdr[e100Revision]))
	e["content"] = strconv.Itoa(int(hdr[e100Content]))
	for _, f := range e100Strings {
		if e[f.key], err = readString(bus, addr, f.offset, f.size); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e EEPROM) storeE100(bus I2C) error {
	addr := AddrE100
	for _, f := range []struct {
		key    string
		offset uint8
	}{{"vendor", e100Vendor}, {"device", e100Device}} {
		v, ok := e[f.key]
		if !ok {
			continue
		}
		n, err := parseUint16(f.key, v)
		if err != nil {
			return err
		}
		if err := write(bus, addr, f.offset, binary.BigEndian.AppendUint16(nil, n)); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		key    string
		offset uint8
	}{{"revision", e100Revision}, {"content", e100Content}} {
		v, ok := e[f.key]
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		if err := write(bus, addr, f.offset, []byte{byte(n)}); err != nil {
			return err
		}
	}
	for _, f := range e100Strings {
		if v, ok := e[f.key]; ok {
			if err := write(bus, addr, f.offset, stringToBytes(v, f.size)); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseUint16(key, v string) (uint16, error) {
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return uint16(n), nil
}

func parseMAC(v string) (net.HardwareAddr, error) {
	mac, err := net.ParseMAC(v)
	if err != nil || len(mac) != 6 {
		return nil, fmt.Errorf("mac-addr: invalid address %q", v)
	}
	return mac, nil
}

func parseIPv4(v string) (net.IP, error) {
	ip := net.ParseIP(v).To4()
	if ip == nil {
		return nil, fmt.Errorf("ip-addr: invalid IPv4 address %q", v)
	}
	return ip, nil
}
