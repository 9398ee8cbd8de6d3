package inspect

import (
	"fmt"
	"math"
	"strings"

	"github.com/radiotree/radiotree-go/pkg/property"
)

// Formatter formats inspection output.
type Formatter struct {
	// ShowMetadata includes kind, access, and unit information
	ShowMetadata bool

	// ShowDesired includes the desired value when it differs from the
	// stored one.
	ShowDesired bool

	// IndentWidth is the number of spaces per indent level
	IndentWidth int
}

// NewFormatter creates a new Formatter with default settings.
func NewFormatter() *Formatter {
	return &Formatter{
		ShowMetadata: true,
		ShowDesired:  true,
		IndentWidth:  2,
	}
}

// Indent returns the content with indentation.
func (f *Formatter) Indent(depth int, content string) string {
	width := f.IndentWidth
	if width == 0 {
		width = 2
	}
	return strings.Repeat(" ", depth*width) + content
}

// FormatValue formats a value for display. Frequencies and rates get an
// SI-scaled reading alongside the raw number.
func (f *Formatter) FormatValue(v property.Value, unit string) string {
	if !v.IsValid() {
		return "<unset>"
	}
	base := v.String()
	if unit == "" {
		return base
	}
	base += " " + unit

	x, ok := v.Float()
	if !ok || v.Kind() == property.KindBool {
		return base
	}
	switch unit {
	case "Hz", "sps", "S/s":
		if math.Abs(x) >= 1e3 {
			return fmt.Sprintf("%s (%s)", base, FormatSI(x, unit))
		}
	}
	return base
}

// FormatSI scales x to k, M or G with one decimal.
func FormatSI(x float64, unit string) string {
	abs := math.Abs(x)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1f G%s", x/1e9, unit)
	case abs >= 1e6:
		return fmt.Sprintf("%.1f M%s", x/1e6, unit)
	case abs >= 1e3:
		return fmt.Sprintf("%.1f k%s", x/1e3, unit)
	default:
		return fmt.Sprintf("%g %s", x, unit)
	}
}

// FormatEntry formats one node as "name: value (kind, access)".
func (f *Formatter) FormatEntry(name string, e *Entry) string {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString(": ")
	sb.WriteString(f.FormatValue(e.Value, e.Unit))
	if f.ShowDesired && e.Desired.IsValid() && !e.Desired.Equal(e.Value) {
		sb.WriteString(" [desired ")
		sb.WriteString(f.FormatValue(e.Desired, e.Unit))
		sb.WriteString("]")
	}
	if f.ShowMetadata {
		fmt.Fprintf(&sb, " (%s, %s)", e.Kind, FormatAccess(e.Access))
	}
	return sb.String()
}

// FormatTable formats entries one per line with paths relative to root.
func (f *Formatter) FormatTable(root string, entries []Entry) string {
	if len(entries) == 0 {
		return "  (no nodes)"
	}
	var sb strings.Builder
	for i := range entries {
		name := Relative(root, entries[i].Path)
		if name == "" {
			name = entries[i].Path
		}
		sb.WriteString(f.Indent(1, f.FormatEntry(name, &entries[i])))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatTree renders a nested view. Interior segments print as "name/",
// nodes as entries.
func (f *Formatter) FormatTree(n *TreeNode) string {
	var sb strings.Builder
	f.formatTree(&sb, n, 0)
	return sb.String()
}

func (f *Formatter) formatTree(sb *strings.Builder, n *TreeNode, depth int) {
	if n.Entry != nil {
		sb.WriteString(f.Indent(depth, f.FormatEntry(n.Name, n.Entry)))
		sb.WriteString("\n")
	} else {
		sb.WriteString(f.Indent(depth, n.Name+"/"))
		sb.WriteString("\n")
	}
	for _, c := range n.Children {
		f.formatTree(sb, c, depth+1)
	}
}
