package sketches

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

// ValueType says how distinct-counting sketches turn update values into the
// bytes they hash.
type ValueType uint8

const (
	// NoValueType is used by the families that never hash update values.
	NoValueType ValueType = iota
	StringValue
	IntValue
	LongValue
	FloatValue
	DoubleValue
)

var valueTypeNames = [...]string{
	NoValueType: "",
	StringValue: "string",
	IntValue:    "int",
	LongValue:   "long",
	FloatValue:  "float",
	DoubleValue: "double",
}

func (v ValueType) String() string {
	if int(v) >= len(valueTypeNames) {
		return "unknown"
	}
	return valueTypeNames[v]
}

// ParseValueType returns the value type with the given name, ignoring case.
func ParseValueType(s string) (ValueType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NoValueType, false
	}
	for i, name := range valueTypeNames {
		if name == s {
			return ValueType(i), true
		}
	}
	return NoValueType, false
}

// MarshalText implements encoding.TextMarshaler.
func (v ValueType) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *ValueType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*v = NoValueType
		return nil
	}
	t, ok := ParseValueType(string(text))
	if !ok {
		return sketcherr.Configf("unrecognized value type: %q", text)
	}
	*v = t
	return nil
}

func int64Key(n int64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, 8), uint64(n))
}

// float64Key canonicalizes negative zero and NaN so equal values hash equally.
func float64Key(f float64) []byte {
	switch {
	case f == 0:
		f = 0
	case math.IsNaN(f):
		f = math.NaN()
	}
	return binary.LittleEndian.AppendUint64(make([]byte, 0, 8), math.Float64bits(f))
}
