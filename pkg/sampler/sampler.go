// Package sampler implements the stream samplers behind the reservoir and
// VarOpt sketch families. Samplers are deterministic for a given sequence of
// operations: their random source is seeded from k and travels with their
// serialized state.
package sampler

import (
	"math/rand/v2"

	"github.com/cockroachdb/errors"
)

const seed = 0x5eed_5a3b_1e5d_c0de

func newSource(k int) *rand.PCG {
	return rand.NewPCG(seed, uint64(k))
}

func marshalSource(src *rand.PCG) []byte {
	// PCG.MarshalBinary never fails.
	b, _ := src.MarshalBinary()
	return b
}

func restoreSource(b []byte) (*rand.PCG, error) {
	src := &rand.PCG{}
	if err := src.UnmarshalBinary(b); err != nil {
		return nil, errors.Wrap(err, "restore sampler random state")
	}
	return src, nil
}

// ErrInvalidState is returned when restoring a sampler from inconsistent
// state.
var ErrInvalidState = errors.New("invalid sampler state")

func invalid(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidState)
}
