package eeprom

import (
	"fmt"
	"strconv"

	"github.com/radiotree/radiotree-go/pkg/property"
	"github.com/radiotree/radiotree-go/pkg/tree"
)

// Publish creates one string node per map key under view and subscribes a
// callback that commits every accepted write back to the part. A failed
// commit fails the write, so the tree never shows a value the EEPROM did
// not take. When a later step of the same write fails, the previous value
// is committed again as part of the rollback.
func Publish(view *tree.View, bus I2C, m Map, e EEPROM) error {
	keys := m.Keys()
	if len(keys) == 0 {
		return fmt.Errorf("%w: %d", ErrUnknownMap, m)
	}

	specs := make([]tree.NodeSpec, 0, len(keys))
	for _, k := range keys {
		specs = append(specs, tree.NodeSpec{
			Path:     k,
			Initial:  property.String(e[k]),
			Coercer:  coercerFor(m, k),
			Metadata: &property.Metadata{Description: fmt.Sprintf("%s eeprom field %s", m, k)},
		})
	}
	if err := view.CreateNodes(specs); err != nil {
		return err
	}

	for _, k := range keys {
		h, err := view.Resolve(k)
		if err != nil {
			return err
		}
		key := k
		if _, err := h.Subscribe(func(tx property.Tx, c property.Change) error {
			s, _ := c.Value.Str()
			if err := (EEPROM{key: s}).Commit(bus, m); err != nil {
				return err
			}
			prev, _ := c.Previous.Str()
			tx.OnRollback(func() error {
				return EEPROM{key: prev}.Commit(bus, m)
			})
			return nil
		}); err != nil {
			return err
		}
	}
	return nil
}

func coercerFor(m Map, key string) property.Coercer {
	switch key {
	case "mac-addr":
		return macCoercer
	case "ip-addr":
		return ipCoercer
	case "gpsdo":
		return property.OneOf(property.String("none"), property.String("internal"), property.String("onboard"))
	case "rev", "vendor", "device":
		return uintCoercer(16, false)
	case "product":
		return uintCoercer(16, true)
	case "revision", "content":
		return uintCoercer(8, false)
	case "mcr":
		return mcrCoercer
	case "serial":
		switch m {
		case MapB000:
			return textCoercer(b000SerialLen)
		case MapE100:
			return textCoercer(10)
		}
		return textCoercer(SerialLen)
	}
	for _, f := range e100Strings {
		if f.key == key {
			return textCoercer(f.size)
		}
	}
	return textCoercer(NameMaxLen)
}

func str(v property.Value) (string, error) {
	s, ok := v.Str()
	if !ok {
		return "", property.Invalid(v, "expected a string")
	}
	return s, nil
}

// textCoercer accepts printable ASCII that fits the field.
func textCoercer(size int) property.Coercer {
	return func(v property.Value) (property.Value, error) {
		s, err := str(v)
		if err != nil {
			return property.Value{}, err
		}
		if len(s) > size {
			return property.Value{}, property.Invalid(v, "longer than %d bytes", size)
		}
		for i := 0; i < len(s); i++ {
			if s[i] < 32 || s[i] > 127 {
				return property.Value{}, property.Invalid(v, "non-printable byte at %d", i)
			}
		}
		return v, nil
	}
}

func uintCoercer(bits int, allowEmpty bool) property.Coercer {
	return func(v property.Value) (property.Value, error) {
		s, err := str(v)
		if err != nil {
			return property.Value{}, err
		}
		if s == "" && allowEmpty {
			return v, nil
		}
		n, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return property.Value{}, property.Invalid(v, "expected a %d-bit unsigned integer", bits)
		}
		return property.String(strconv.FormatUint(n, 10)), nil
	}
}

func macCoercer(v property.Value) (property.Value, error) {
	s, err := str(v)
	if err != nil {
		return property.Value{}, err
	}
	mac, err := parseMAC(s)
	if err != nil {
		return property.Value{}, property.Invalid(v, "not a MAC address")
	}
	return property.String(mac.String()), nil
}

func ipCoercer(v property.Value) (property.Value, error) {
	s, err := str(v)
	if err != nil {
		return property.Value{}, err
	}
	ip, err := parseIPv4(s)
	if err != nil {
		return property.Value{}, property.Invalid(v, "not an IPv4 address")
	}
	return property.String(ip.String()), nil
}

func mcrCoercer(v property.Value) (property.Value, error) {
	s, err := str(v)
	if err != nil {
		return property.Value{}, err
	}
	if s == "" {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= mcrMin || f >= mcrMax {
		return property.Value{}, property.Invalid(v, "master clock rate must be in (%g, %g)", mcrMin, mcrMax)
	}
	return property.String(strconv.FormatUint(uint64(f), 10)), nil
}
