package inspect

import (
	"fmt"
	"strings"

	"github.com/radiotree/radiotree-go/pkg/property"
)

// accessNames maps user-facing access names to flags.
var accessNames = map[string]property.Access{
	"ro":         property.AccessReadOnly,
	"read":       property.AccessReadOnly,
	"read-only":  property.AccessReadOnly,
	"rw":         property.AccessReadWrite,
	"read-write": property.AccessReadWrite,
}

// ParseAccess resolves an access name (case-insensitive). Empty means
// read-write.
func ParseAccess(name string) (property.Access, error) {
	if name == "" {
		return property.AccessReadWrite, nil
	}
	if a, ok := accessNames[strings.ToLower(name)]; ok {
		return a, nil
	}
	return 0, fmt.Errorf("unknown access %q (want ro or rw)", name)
}

// FormatAccess formats access flags for display.
func FormatAccess(a property.Access) string {
	switch {
	case a.CanRead() && a.CanWrite():
		return "read-write"
	case a.CanRead():
		return "read-only"
	case a.CanWrite():
		return "write"
	default:
		return fmt.Sprintf("access(%d)", a)
	}
}

// ParseValue parses a command-line argument. With a known kind the text is
// parsed as that kind. Without one the kind is guessed: int, float, bool,
// then string.
func ParseValue(kind property.Kind, text string) (property.Value, error) {
	if kind != property.KindInvalid {
		return property.Parse(kind, text)
	}
	for _, k := range []property.Kind{property.KindInt, property.KindFloat, property.KindBool} {
		if v, err := property.Parse(k, text); err == nil {
			return v, nil
		}
	}
	return property.Parse(property.KindString, text)
}
