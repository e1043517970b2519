package sketches

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/estimator"
)

// pcsaPhi is the Flajolet-Martin bias correction constant.
const pcsaPhi = 0.77351

// cpcSketch is a probabilistic counting sketch with stochastic averaging
// over 2^lgK bitmaps. Merging with a coarser sketch folds the receiver down
// to the coarser resolution, which is exact for bitmaps.
type cpcSketch struct {
	lgK       int
	configLgK int
	bitmaps   []uint64
}

func newCPC(lgK int) *cpcSketch {
	return &cpcSketch{lgK: lgK, configLgK: lgK, bitmaps: make([]uint64, 1<<uint(lgK))}
}

func (s *cpcSketch) Family() Family { return CPC }

func (s *cpcSketch) Update(it Item) error {
	s.add(xxhash.Sum64(it.Key))
	return nil
}

func (s *cpcSketch) add(h uint64) {
	row := h & uint64(len(s.bitmaps)-1)
	col := bits.TrailingZeros64(h >> uint(s.lgK))
	if col > 63 {
		col = 63
	}
	s.bitmaps[row] |= 1 << uint(col)
}

// folded returns the bitmaps downsampled to 2^lgK rows. Row r of the finer
// sketch lands in row r mod 2^lgK; the dropped row bits become the lowest
// bits of the remaining hash.
func (s *cpcSketch) folded(lgK int) []uint64 {
	if lgK == s.lgK {
		return s.bitmaps
	}
	d := uint(s.lgK - lgK)
	out := make([]uint64, 1<<uint(lgK))
	mask := uint64(len(out) - 1)
	for r, b := range s.bitmaps {
		if b == 0 {
			continue
		}
		hi := uint64(r) >> uint(lgK)
		if hi != 0 {
			out[uint64(r)&mask] |= 1 << uint(bits.TrailingZeros64(hi))
			continue
		}
		shifted := b << d
		if b>>(64-d) != 0 {
			shifted |= 1 << 63
		}
		out[uint64(r)&mask] |= shifted
	}
	return out
}

func (s *cpcSketch) CanMerge(other Sketch) error {
	if _, ok := other.(*cpcSketch); !ok {
		return mismatch(CPC, other)
	}
	return nil
}

func (s *cpcSketch) Merge(other Sketch) error {
	o, ok := other.(*cpcSketch)
	if !ok {
		return mismatch(CPC, other)
	}
	lgK := min(s.lgK, o.lgK)
	if lgK < s.lgK {
		s.bitmaps = s.folded(lgK)
		s.lgK = lgK
	}
	for i, b := range o.folded(lgK) {
		s.bitmaps[i] |= b
	}
	return nil
}

func (s *cpcSketch) Reset() {
	s.lgK = s.configLgK
	s.bitmaps = make([]uint64, 1<<uint(s.lgK))
}

func (s *cpcSketch) bitsSet() int {
	n := 0
	for _, b := range s.bitmaps {
		n += bits.OnesCount64(b)
	}
	return n
}

func (s *cpcSketch) estimate() float64 {
	m := float64(len(s.bitmaps))
	empty, ones := 0, 0
	for _, b := range s.bitmaps {
		if b == 0 {
			empty++
		}
		ones += bits.TrailingZeros64(^b)
	}
	if empty == len(s.bitmaps) {
		return 0
	}
	if empty > 0 {
		return m * math.Log(m/float64(empty))
	}
	a := float64(ones) / m
	return m / pcsaPhi * (math.Pow(2, a) - math.Pow(2, -1.75*a))
}

func (s *cpcSketch) Query(q Query) (Result, error) {
	if err := q.onlyBasic(CPC); err != nil {
		return nil, err
	}
	est := s.estimate()
	floor := float64(s.bitsSet())
	if est < floor {
		est = floor
	}
	b := estimator.RelativeBounds(est, estimator.PCSARelativeError(s.lgK), floor)
	r := distinctResult(CPC, b, true)
	if q.Summary {
		r.Summary = s.String()
	}
	return r, nil
}

func (s *cpcSketch) MarshalBinary() ([]byte, error) {
	nonEmpty := 0
	for _, b := range s.bitmaps {
		if b != 0 {
			nonEmpty++
		}
	}
	e := newEncoder(CPC, 6+12*nonEmpty)
	e.u8(uint8(s.lgK))
	e.u8(uint8(s.configLgK))
	e.u32(uint32(nonEmpty))
	for r, b := range s.bitmaps {
		if b != 0 {
			e.u32(uint32(r))
			e.u64(b)
		}
	}
	return e.bytes(), nil
}

func decodeCPC(data []byte) (Sketch, error) {
	d, err := newDecoder(CPC, data)
	if err != nil {
		return nil, err
	}
	lgK, configLgK := int(d.u8()), int(d.u8())
	n := d.count(12)
	if d.err == nil && (CPC.CheckK(lgK) != nil || CPC.CheckK(configLgK) != nil || lgK > configLgK) {
		d.fail("lgK %d, configured %d", lgK, configLgK)
	}
	if d.err != nil {
		return nil, d.err
	}
	s := &cpcSketch{lgK: lgK, configLgK: configLgK, bitmaps: make([]uint64, 1<<uint(lgK))}
	prev := -1
	for i := 0; i < n && d.err == nil; i++ {
		r, b := int(d.u32()), d.u64()
		if d.err == nil && (r <= prev || r >= len(s.bitmaps) || b == 0) {
			d.fail("row %d", r)
			break
		}
		s.bitmaps[r] = b
		prev = r
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *cpcSketch) String() string {
	return fmt.Sprintf("### cpc sketch\n   lgK: %d\n   bitmaps: %s\n   bits set: %s\n   estimate: %.2f\n",
		s.lgK, humanize.Comma(int64(len(s.bitmaps))), humanize.Comma(int64(s.bitsSet())), s.estimate())
}
