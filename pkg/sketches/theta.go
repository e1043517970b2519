package sketches

import (
	"fmt"
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/estimator"
)

const maxTheta = math.MaxUint64

// thetaSketch is a k-minimum-values distinct counter that doubles as its own
// union: merging keeps the smaller theta and the hashes below it.
type thetaSketch struct {
	lgK    int
	theta  uint64
	hashes map[uint64]struct{}
}

func newTheta(lgK int) *thetaSketch {
	return &thetaSketch{lgK: lgK, theta: maxTheta, hashes: make(map[uint64]struct{})}
}

func (s *thetaSketch) nominal() int { return 1 << uint(s.lgK) }

func (s *thetaSketch) Family() Family { return Theta }

func (s *thetaSketch) Update(it Item) error {
	s.insert(xxhash.Sum64(it.Key))
	return nil
}

func (s *thetaSketch) insert(h uint64) {
	if h == 0 || h >= s.theta {
		return
	}
	s.hashes[h] = struct{}{}
	if len(s.hashes) > 2*s.nominal() {
		s.rebuild()
	}
}

// rebuild trims the hash set to the nominal size and lowers theta to the
// smallest discarded hash.
func (s *thetaSketch) rebuild() {
	kept := s.compact()
	if len(kept) < len(s.hashes) {
		s.theta = s.kthSmallest()
	}
	s.hashes = make(map[uint64]struct{}, len(kept))
	for _, h := range kept {
		s.hashes[h] = struct{}{}
	}
}

func (s *thetaSketch) kthSmallest() uint64 {
	all := s.sorted()
	if len(all) <= s.nominal() {
		return s.theta
	}
	return all[s.nominal()]
}

func (s *thetaSketch) sorted() []uint64 {
	out := make([]uint64, 0, len(s.hashes))
	for h := range s.hashes {
		if h < s.theta {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

// compact returns the retained hashes of the finalized result, at most the
// nominal number of them, in ascending order.
func (s *thetaSketch) compact() []uint64 {
	all := s.sorted()
	if len(all) > s.nominal() {
		all = all[:s.nominal()]
	}
	return all
}

// effectiveTheta is the theta of the finalized result.
func (s *thetaSketch) effectiveTheta() uint64 {
	if len(s.hashes) > s.nominal() {
		return s.kthSmallest()
	}
	return s.theta
}

func (s *thetaSketch) CanMerge(other Sketch) error {
	if _, ok := other.(*thetaSketch); !ok {
		return mismatch(Theta, other)
	}
	return nil
}

func (s *thetaSketch) Merge(other Sketch) error {
	o, ok := other.(*thetaSketch)
	if !ok {
		return mismatch(Theta, other)
	}
	hashes, theta := o.compact(), o.effectiveTheta()
	if theta < s.theta {
		s.theta = theta
		for h := range s.hashes {
			if h >= theta {
				delete(s.hashes, h)
			}
		}
	}
	for _, h := range hashes {
		s.insert(h)
	}
	return nil
}

func (s *thetaSketch) Reset() {
	s.theta = maxTheta
	s.hashes = make(map[uint64]struct{})
}

func (s *thetaSketch) estimate() (float64, int, bool) {
	hashes := s.compact()
	theta := s.effectiveTheta()
	if theta == maxTheta {
		return float64(len(hashes)), len(hashes), false
	}
	p := float64(theta) / float64(maxTheta)
	return float64(len(hashes)) / p, len(hashes), true
}

func (s *thetaSketch) Query(q Query) (Result, error) {
	if err := q.onlyBasic(Theta); err != nil {
		return nil, err
	}
	est, retained, estimating := s.estimate()
	b := estimator.Exact(est)
	if estimating {
		b = estimator.RelativeBounds(est, estimator.KMVRelativeError(retained), float64(retained))
	}
	r := distinctResult(Theta, b, estimating)
	if q.Summary {
		r.Summary = s.String()
	}
	return r, nil
}

func (s *thetaSketch) MarshalBinary() ([]byte, error) {
	hashes := s.compact()
	e := newEncoder(Theta, 13+8*len(hashes))
	e.u8(uint8(s.lgK))
	e.u64(s.effectiveTheta())
	e.u32(uint32(len(hashes)))
	for _, h := range hashes {
		e.u64(h)
	}
	return e.bytes(), nil
}

func decodeTheta(data []byte) (Sketch, error) {
	d, err := newDecoder(Theta, data)
	if err != nil {
		return nil, err
	}
	lgK := int(d.u8())
	theta := d.u64()
	n := d.count(8)
	if d.err == nil && Theta.CheckK(lgK) != nil {
		d.fail("lgK %d", lgK)
	}
	s := &thetaSketch{lgK: lgK, theta: theta, hashes: make(map[uint64]struct{}, n)}
	for i := 0; i < n && d.err == nil; i++ {
		h := d.u64()
		if h == 0 || h >= theta {
			d.fail("hash %d not below theta", h)
		}
		s.hashes[h] = struct{}{}
	}
	if d.err == nil && len(s.hashes) > s.nominal() {
		d.fail("%d hashes exceed nominal %d", len(s.hashes), s.nominal())
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *thetaSketch) String() string {
	est, retained, estimating := s.estimate()
	return fmt.Sprintf("### theta sketch\n   nominal entries: %s\n   retained entries: %s\n   theta: %.6f\n   estimation mode: %t\n   estimate: %.2f\n",
		humanize.Comma(int64(s.nominal())), humanize.Comma(int64(retained)),
		float64(s.effectiveTheta())/float64(maxTheta), estimating, est)
}

func distinctResult(f Family, b estimator.Bounds, estimating bool) *DistinctResult {
	return &DistinctResult{
		family:         f,
		Estimate:       b.Estimate,
		EstimationMode: estimating,
		UpperBound1:    b.Upper[0],
		UpperBound2:    b.Upper[1],
		UpperBound3:    b.Upper[2],
		LowerBound1:    b.Lower[0],
		LowerBound2:    b.Lower[1],
		LowerBound3:    b.Lower[2],
	}
}
