package eeprom

import (
	"fmt"
	"sync"
)

// bankSize is the addressable size of one simulated EEPROM.
const bankSize = 256

// MemoryI2C is an in-memory I2C bus with one 256-byte EEPROM per address.
// Unwritten cells read as 0xff, like an erased part.
type MemoryI2C struct {
	mu    sync.Mutex
	banks map[uint8]*[bankSize]byte
}

// NewMemoryI2C creates an empty bus.
func NewMemoryI2C() *MemoryI2C {
	return &MemoryI2C{banks: make(map[uint8]*[bankSize]byte)}
}

func (m *MemoryI2C) bank(addr uint8) *[bankSize]byte {
	b, ok := m.banks[addr]
	if !ok {
		b = new([bankSize]byte)
		for i := range b {
			b[i] = 0xff
		}
		m.banks[addr] = b
	}
	return b
}

// ReadEEPROM implements I2C.
func (m *MemoryI2C) ReadEEPROM(addr, offset uint8, n int) ([]byte, error) {
	if n < 0 || int(offset)+n > bankSize {
		return nil, fmt.Errorf("read past end of eeprom: offset %d, %d bytes", offset, n)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, n)
	copy(out, m.bank(addr)[offset:])
	return out, nil
}

// WriteEEPROM implements I2C.
func (m *MemoryI2C) WriteEEPROM(addr, offset uint8, data []byte) error {
	if int(offset)+len(data) > bankSize {
		return fmt.Errorf("write past end of eeprom: offset %d, %d bytes", offset, len(data))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.bank(addr)[offset:], data)
	return nil
}

// Bytes returns a copy of the bank at addr.
func (m *MemoryI2C) Bytes(addr uint8) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.bank(addr)
	return append([]byte(nil), b[:]...)
}
