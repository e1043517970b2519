package sketches

import (
	"fmt"
	"math/bits"

	"github.com/axiomhq/hyperloglog"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/estimator"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

// hllSketch wraps a sparse-capable HyperLogLog with 2^lgK registers. Merging
// with a coarser sketch downsamples the receiver to the coarser precision.
type hllSketch struct {
	lgK       int
	configLgK int
	hll       *hyperloglog.Sketch
}

func newHLL(lgK int) (*hllSketch, error) {
	hll, err := hyperloglog.NewSketch(uint8(lgK), true)
	if err != nil {
		return nil, sketcherr.AsValidation(errors.Wrapf(err, "hll lgK=%d", lgK))
	}
	return &hllSketch{lgK: lgK, configLgK: lgK, hll: hll}, nil
}

func (s *hllSketch) Family() Family { return HLL }

func (s *hllSketch) Update(it Item) error {
	s.hll.Insert(it.Key)
	return nil
}

func (s *hllSketch) CanMerge(other Sketch) error {
	if _, ok := other.(*hllSketch); !ok {
		return mismatch(HLL, other)
	}
	return nil
}

func (s *hllSketch) Merge(other Sketch) error {
	o, ok := other.(*hllSketch)
	if !ok {
		return mismatch(HLL, other)
	}
	lgK := min(s.lgK, o.lgK)
	src := o.hll
	if o.lgK > lgK {
		var err error
		if src, err = o.downsampled(lgK); err != nil {
			return err
		}
	}
	dst := s.hll
	if s.lgK > lgK {
		var err error
		if dst, err = s.downsampled(lgK); err != nil {
			return err
		}
	} else {
		dst = dst.Clone()
	}
	if err := dst.Merge(src); err != nil {
		return sketcherr.AsValidation(errors.Wrap(err, "hll merge"))
	}
	s.hll, s.lgK = dst, lgK
	return nil
}

// registers returns the dense register array, one rank per register.
func (s *hllSketch) registers() ([]uint8, error) {
	dense, err := hyperloglog.NewSketch(uint8(s.lgK), false)
	if err != nil {
		return nil, errors.Wrap(err, "hll registers")
	}
	if err := dense.Merge(s.hll); err != nil {
		return nil, sketcherr.AsValidation(errors.Wrap(err, "hll registers"))
	}
	data, err := dense.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "hll registers")
	}
	// version, precision, base, sparse flag, u32 count, then the registers
	if len(data) != hllDenseHeader+1<<uint(s.lgK) || data[3] != 0 {
		return nil, errors.Newf("hll registers: unexpected dense image of %d bytes", len(data))
	}
	return data[hllDenseHeader:], nil
}

const hllDenseHeader = 8

// downsampled rebuilds the sketch at 2^lgK registers. Register i of the finer
// sketch lands in register i>>d; its dropped low index bits lead the
// remaining hash, so the rank is exact.
func (s *hllSketch) downsampled(lgK int) (*hyperloglog.Sketch, error) {
	regs, err := s.registers()
	if err != nil {
		return nil, err
	}
	out, err := hyperloglog.NewSketch(uint8(lgK), false)
	if err != nil {
		return nil, sketcherr.AsValidation(errors.Wrapf(err, "hll lgK=%d", lgK))
	}
	d := uint(s.lgK - lgK)
	low := uint64(1)<<d - 1
	for i, r := range regs {
		if r == 0 {
			continue
		}
		rank := uint(r) + d
		if rest := uint64(i) & low; rest != 0 {
			rank = d - uint(bits.Len64(rest)) + 1
		}
		out.InsertHash(hashWithRank(uint64(i)>>d, rank, uint(lgK)))
	}
	return out, nil
}

// hashWithRank builds a hash that lands in register idx of a 2^lgK sketch
// with the given rank.
func hashWithRank(idx uint64, rank, lgK uint) uint64 {
	h := idx << (64 - lgK)
	if rank <= 64-lgK {
		h |= 1 << (64 - lgK - rank)
	}
	return h
}

// sparse reports whether the sketch still holds its hashes in the sparse
// representation.
func (s *hllSketch) sparse() bool {
	inner, err := s.hll.MarshalBinary()
	return err == nil && len(inner) > 3 && inner[3] == 1
}

func (s *hllSketch) Reset() {
	// NewSketch only fails for a precision outside [4, 18], which CheckK rules out.
	hll, err := hyperloglog.NewSketch(uint8(s.configLgK), true)
	if err != nil {
		panic(err)
	}
	s.hll, s.lgK = hll, s.configLgK
}

func (s *hllSketch) Query(q Query) (Result, error) {
	if err := q.onlyBasic(HLL); err != nil {
		return nil, err
	}
	est := float64(s.hll.Estimate())
	estimating := !s.sparse()
	b := estimator.Exact(est)
	if estimating {
		b = estimator.RelativeBounds(est, estimator.HLLRelativeError(s.lgK), 0)
	}
	r := distinctResult(HLL, b, estimating)
	if q.Summary {
		r.Summary = s.String()
	}
	return r, nil
}

func (s *hllSketch) MarshalBinary() ([]byte, error) {
	inner, err := s.hll.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "hll marshal")
	}
	e := newEncoder(HLL, 6+len(inner))
	e.u8(uint8(s.lgK))
	e.u8(uint8(s.configLgK))
	e.blob(inner)
	return e.bytes(), nil
}

func decodeHLL(data []byte) (Sketch, error) {
	d, err := newDecoder(HLL, data)
	if err != nil {
		return nil, err
	}
	lgK, configLgK := int(d.u8()), int(d.u8())
	inner := d.blob()
	if err := d.done(); err != nil {
		return nil, err
	}
	if HLL.CheckK(lgK) != nil || HLL.CheckK(configLgK) != nil || lgK > configLgK {
		return nil, sketcherr.Validationf("corrupt hll image: lgK %d, configured %d", lgK, configLgK)
	}
	// the payload's own precision byte must agree with the image's
	if len(inner) < 2 || int(inner[1]) != lgK {
		return nil, sketcherr.Validationf("corrupt hll image: payload precision does not match lgK %d", lgK)
	}
	hll := &hyperloglog.Sketch{}
	if err := hll.UnmarshalBinary(inner); err != nil {
		return nil, sketcherr.Validationf("corrupt hll image: %v", err)
	}
	return &hllSketch{lgK: lgK, configLgK: configLgK, hll: hll}, nil
}

func (s *hllSketch) String() string {
	return fmt.Sprintf("### hll sketch\n   lgK: %d\n   registers: %s\n   estimate: %s\n",
		s.lgK, humanize.Comma(int64(1)<<uint(s.lgK)), humanize.Comma(int64(s.hll.Estimate())))
}
