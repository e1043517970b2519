// Package sketches provides the sketch families held by the registry and the
// small capability contract the dispatcher and merge engine drive them through.
package sketches

import (
	"strings"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

// Family is the algorithmic kind of a sketch. The set is closed.
type Family uint8

const (
	// Theta counts distinct values with a theta (KMV) union.
	Theta Family = iota + 1
	// HLL counts distinct values with HyperLogLog.
	HLL
	// CPC counts distinct values with compressed probabilistic counting.
	CPC
	// KLL estimates quantiles of a numeric stream.
	KLL
	// Frequency finds frequent items of a weighted stream.
	Frequency
	// Reservoir keeps a uniform sample of a stream.
	Reservoir
	// VarOpt keeps a weighted sample of a weighted stream.
	VarOpt
)

type familyInfo struct {
	name       string
	id         byte // first byte of every serialized image
	minK, maxK int
}

var familyInfos = [...]familyInfo{
	Theta:     {name: "theta", id: 3, minK: 4, maxK: 26},
	HLL:       {name: "hll", id: 7, minK: 4, maxK: 18},
	CPC:       {name: "cpc", id: 16, minK: 4, maxK: 16},
	KLL:       {name: "kll", id: 15, minK: 8, maxK: 65535},
	Frequency: {name: "frequency", id: 10, minK: 2, maxK: 1 << 26},
	Reservoir: {name: "reservoir", id: 11, minK: 1, maxK: 1 << 24},
	VarOpt:    {name: "varopt", id: 13, minK: 1, maxK: 1 << 24},
}

// Families lists every family in declaration order.
var Families = []Family{Theta, HLL, CPC, KLL, Frequency, Reservoir, VarOpt}

// Valid reports whether f is one of the declared families.
func (f Family) Valid() bool {
	return f >= Theta && f <= VarOpt
}

func (f Family) String() string {
	if !f.Valid() {
		return "unknown"
	}
	return familyInfos[f].name
}

func (f Family) id() byte {
	return familyInfos[f].id
}

// ParseFamily returns the family with the given wire name, ignoring case.
func ParseFamily(s string) (Family, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, f := range Families {
		if familyInfos[f].name == s {
			return f, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, sketcherr.Validationf("invalid sketch family %d", uint8(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(text []byte) error {
	v, ok := ParseFamily(string(text))
	if !ok {
		return sketcherr.Validationf("unrecognized sketch family: %q", text)
	}
	*f = v
	return nil
}

// IsDistinctCounting reports whether the family estimates the number of
// unique values, and therefore needs a ValueType to hash updates.
func (f Family) IsDistinctCounting() bool {
	return f == Theta || f == HLL || f == CPC
}

// IsUnionCapable reports whether a merge may fold sources straight into an
// existing handle of this family. The remaining families merge into a
// transient accumulator that then replaces the destination's handle.
func (f Family) IsUnionCapable() bool {
	return f.IsDistinctCounting()
}

// KRange returns the inclusive range of sizing parameters the family accepts.
func (f Family) KRange() (lo, hi int) {
	info := familyInfos[f]
	return info.minK, info.maxK
}

// CheckK returns a config error if k is not a valid sizing parameter for f.
func (f Family) CheckK(k int) error {
	if !f.Valid() {
		return sketcherr.Configf("invalid sketch family %d", uint8(f))
	}
	lo, hi := f.KRange()
	if k < lo || k > hi {
		return sketcherr.Configf("k=%d out of range [%d, %d] for %s sketches", k, lo, hi, f)
	}
	return nil
}

// New constructs an empty sketch of family f sized by k.
func (f Family) New(k int) (Sketch, error) {
	if err := f.CheckK(k); err != nil {
		return nil, err
	}
	switch f {
	case Theta:
		return newTheta(k), nil
	case HLL:
		return newHLL(k)
	case CPC:
		return newCPC(k), nil
	case KLL:
		return newKLL(k), nil
	case Frequency:
		return newFrequent(k), nil
	case Reservoir:
		return newReservoir(k), nil
	default:
		return newVarOpt(k), nil
	}
}

// Decode reconstructs a sketch of family f from a serialized image. Images
// that are malformed or belong to another family produce a validation error.
func Decode(f Family, data []byte) (sk Sketch, err error) {
	if !f.Valid() {
		return nil, sketcherr.Validationf("invalid sketch family %d", uint8(f))
	}
	// Third-party decoders are not hardened against arbitrary input.
	defer func() {
		if r := recover(); r != nil {
			sk, err = nil, sketcherr.Validationf("corrupt %s image: %v", f, r)
		}
	}()
	switch f {
	case Theta:
		return decodeTheta(data)
	case HLL:
		return decodeHLL(data)
	case CPC:
		return decodeCPC(data)
	case KLL:
		return decodeKLL(data)
	case Frequency:
		return decodeFrequent(data)
	case Reservoir:
		return decodeReservoir(data)
	default:
		return decodeVarOpt(data)
	}
}

// Item is one normalized stream element. Which fields are meaningful depends
// on the family: Key for distinct counting, Value for quantiles, Label and
// Weight for frequent items and sampling.
type Item struct {
	Key    []byte
	Value  float64
	Label  string
	Weight float64
}

// Sketch is the capability contract every family implements. A Sketch is not
// safe for concurrent use.
type Sketch interface {
	Family() Family
	// Update folds a single item into the sketch.
	Update(Item) error
	// CanMerge reports whether Merge(other) would succeed, without changing
	// either sketch.
	CanMerge(other Sketch) error
	// Merge folds other into the receiver. The receiver is unchanged when an
	// error is returned; other is never modified.
	Merge(other Sketch) error
	// MarshalBinary returns the serialized image. Decode of the image
	// answers every query the way the receiver does.
	MarshalBinary() ([]byte, error)
	// Query projects the sketch state.
	Query(Query) (Result, error)
	// String returns a human readable summary.
	String() string
}

// Resetter is implemented by families that can clear their state in place.
type Resetter interface {
	Reset()
}

func mismatch(f Family, other Sketch) error {
	if other == nil {
		return sketcherr.Validationf("cannot merge nil into %s sketch", f)
	}
	return sketcherr.FamilyMismatchf("cannot merge %s sketch into %s sketch", other.Family(), f)
}
