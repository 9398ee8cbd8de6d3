package property

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Kind is the declared type of a property value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindStruct
)

// String returns the kind name.
func (k Kind) String() string {
	names := []string{"invalid", "bool", "int", "float", "string", "struct"}
	if int(k) < len(names) {
		return names[k]
	}
	return "invalid"
}

// ParseKind parses a kind name as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "bool":
		return KindBool, nil
	case "int":
		return KindInt, nil
	case "float":
		return KindFloat, nil
	case "string":
		return KindString, nil
	case "struct":
		return KindStruct, nil
	}
	return KindInvalid, fmt.Errorf("unknown kind %q", s)
}

// Value is an immutable tagged variant holding one property value.
// The zero Value is invalid.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	m    map[string]Value
}

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Struct returns a structured value. The map is copied.
func Struct(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return Value{kind: KindStruct, m: m}
}

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Bool returns the boolean payload. ok is false for other kinds.
func (v Value) Bool() (b bool, ok bool) { return v.b, v.kind == KindBool }

// Int returns the integer payload. ok is false for other kinds.
func (v Value) Int() (i int64, ok bool) { return v.i, v.kind == KindInt }

// Float returns the numeric payload as float64. Int values convert.
func (v Value) Float() (f float64, ok bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// Str returns the string payload. ok is false for other kinds.
func (v Value) Str() (s string, ok bool) { return v.s, v.kind == KindString }

// Field returns a struct field.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindStruct {
		return Value{}, false
	}
	f, ok := v.m[name]
	return f, ok
}

// Fields returns a copy of the struct fields, or nil for other kinds.
func (v Value) Fields() map[string]Value {
	if v.kind != KindStruct {
		return nil
	}
	m := make(map[string]Value, len(v.m))
	for k, f := range v.m {
		m[k] = f
	}
	return m
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindString:
		return v.s == o.s
	case KindStruct:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, f := range v.m {
			g, ok := o.m[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return true
}

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindStruct:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "<invalid>"
}

// Any returns the payload as a plain Go value (bool, int64, float64,
// string or map[string]any).
func (v Value) Any() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindStruct:
		m := make(map[string]any, len(v.m))
		for k, f := range v.m {
			m[k] = f.Any()
		}
		return m
	}
	return nil
}

// FromAny converts a plain Go value, as produced by CBOR, YAML or JSON
// decoders, into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return fromUint(t)
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			f, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", k, err)
			}
			m[k] = f
		}
		return Value{kind: KindStruct, m: m}, nil
	case map[any]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			name, ok := k.(string)
			if !ok {
				return Value{}, fmt.Errorf("struct key %v is not a string", k)
			}
			f, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", name, err)
			}
			m[name] = f
		}
		return Value{kind: KindStruct, m: m}, nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, fmt.Errorf("integer %d overflows int64", u)
	}
	return Int(int64(u)), nil
}

// Convert converts x into a Value of the given kind. Numeric inputs convert
// between int and float when the conversion is exact, which matters for
// decoders that do not preserve the integer/float distinction.
func Convert(kind Kind, x any) (Value, error) {
	v, err := FromAny(x)
	if err != nil {
		return Value{}, err
	}
	if v.kind == kind {
		return v, nil
	}
	switch {
	case kind == KindFloat && v.kind == KindInt:
		return Float(float64(v.i)), nil
	case kind == KindInt && v.kind == KindFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<63 {
			return Int(int64(v.f)), nil
		}
	}
	return Value{}, fmt.Errorf("cannot use %s value as %s", v.kind, kind)
}

// Parse parses text into a value of the given kind, as typed on a command line.
func Parse(kind Kind, text string) (Value, error) {
	switch kind {
	case KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case KindInt:
		i, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case KindString:
		if s, err := strconv.Unquote(text); err == nil {
			return String(s), nil
		}
		return String(text), nil
	}
	return Value{}, fmt.Errorf("cannot parse %s values from text", kind)
}

// encMode is the CBOR encoder mode for values.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create value CBOR encoder mode: %v", err))
	}
}

// wireValue is the CBOR representation of a Value.
type wireValue struct {
	Kind    Kind            `cbor:"1,keyasint"`
	Payload cbor.RawMessage `cbor:"2,keyasint,omitempty"`
}

// MarshalCBOR encodes the value as {1: kind, 2: payload}.
func (v Value) MarshalCBOR() ([]byte, error) {
	var payload any
	switch v.kind {
	case KindBool:
		payload = v.b
	case KindInt:
		payload = v.i
	case KindFloat:
		payload = v.f
	case KindString:
		payload = v.s
	case KindStruct:
		payload = v.m
	case KindInvalid:
		return encMode.Marshal(wireValue{Kind: KindInvalid})
	}
	raw, err := encMode.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(wireValue{Kind: v.kind, Payload: raw})
}

// UnmarshalCBOR decodes the representation written by MarshalCBOR.
func (v *Value) UnmarshalCBOR(data []byte) error {
	var w wireValue
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	var err error
	switch w.Kind {
	case KindInvalid:
		*v = Value{}
	case KindBool:
		var b bool
		err = cbor.Unmarshal(w.Payload, &b)
		*v = Bool(b)
	case KindInt:
		var i int64
		err = cbor.Unmarshal(w.Payload, &i)
		*v = Int(i)
	case KindFloat:
		var f float64
		err = cbor.Unmarshal(w.Payload, &f)
		*v = Float(f)
	case KindString:
		var s string
		err = cbor.Unmarshal(w.Payload, &s)
		*v = String(s)
	case KindStruct:
		var m map[string]Value
		err = cbor.Unmarshal(w.Payload, &m)
		*v = Value{kind: KindStruct, m: m}
	default:
		return fmt.Errorf("unknown value kind %d", w.Kind)
	}
	return err
}
