package sketches

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

const (
	kllMinCapacity = 8
	kllMaxLevels   = 61
	kllCoinSeed    = 0x9e3779b97f4a7c15
)

// kllSketch is a KLL quantiles sketch over float64 values. An item at level h
// stands for 2^h stream items. It has no in-place reset; callers replace it
// with a fresh sketch instead.
type kllSketch struct {
	k        int
	n        uint64
	min, max float64
	levels   [][]float64
	coin     uint64
}

func newKLL(k int) *kllSketch {
	return &kllSketch{k: k, min: math.NaN(), max: math.NaN(), levels: [][]float64{nil}, coin: kllCoinSeed}
}

func (s *kllSketch) Family() Family { return KLL }

func (s *kllSketch) Update(it Item) error {
	v := it.Value
	if math.IsNaN(v) {
		return nil
	}
	s.observe(v, v)
	s.levels[0] = append(s.levels[0], v)
	s.n++
	s.compress()
	return nil
}

func (s *kllSketch) observe(lo, hi float64) {
	if math.IsNaN(s.min) || lo < s.min {
		s.min = lo
	}
	if math.IsNaN(s.max) || hi > s.max {
		s.max = hi
	}
}

func (s *kllSketch) capacity(h int) int {
	depth := len(s.levels) - 1 - h
	c := int(math.Ceil(float64(s.k) * math.Pow(2.0/3.0, float64(depth))))
	return max(c, kllMinCapacity)
}

func (s *kllSketch) compress() {
	for h := 0; h < len(s.levels); h++ {
		if len(s.levels[h]) > s.capacity(h) && h+1 < kllMaxLevels {
			s.compactLevel(h)
			h = -1
		}
	}
}

// compactLevel sorts level h and promotes every other item to level h+1,
// starting at a pseudo-random offset. An odd item out stays behind.
func (s *kllSketch) compactLevel(h int) {
	if h+1 == len(s.levels) {
		s.levels = append(s.levels, nil)
	}
	items := s.levels[h]
	slices.Sort(items)
	var keep []float64
	if len(items)%2 == 1 {
		keep = []float64{items[0]}
		items = items[1:]
	}
	offset := int(s.flip())
	for i := offset; i < len(items); i += 2 {
		s.levels[h+1] = append(s.levels[h+1], items[i])
	}
	s.levels[h] = keep
}

func (s *kllSketch) flip() uint64 {
	x := s.coin
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	s.coin = x
	return x & 1
}

func (s *kllSketch) CanMerge(other Sketch) error {
	if _, ok := other.(*kllSketch); !ok {
		return mismatch(KLL, other)
	}
	return nil
}

func (s *kllSketch) Merge(other Sketch) error {
	o, ok := other.(*kllSketch)
	if !ok {
		return mismatch(KLL, other)
	}
	if o.n == 0 {
		return nil
	}
	for len(s.levels) < len(o.levels) {
		s.levels = append(s.levels, nil)
	}
	for h, items := range o.levels {
		s.levels[h] = append(s.levels[h], items...)
	}
	s.n += o.n
	s.observe(o.min, o.max)
	s.compress()
	return nil
}

type weighted struct {
	value  float64
	weight uint64
}

func (s *kllSketch) sortedView() []weighted {
	var out []weighted
	for h, items := range s.levels {
		for _, v := range items {
			out = append(out, weighted{v, uint64(1) << uint(h)})
		}
	}
	slices.SortStableFunc(out, func(a, b weighted) int { return cmp.Compare(a.value, b.value) })
	return out
}

// rank returns the fraction of the stream strictly below x.
func rank(view []weighted, n uint64, x float64) float64 {
	var below uint64
	for _, w := range view {
		if w.value >= x {
			break
		}
		below += w.weight
	}
	return float64(below) / float64(n)
}

func (s *kllSketch) quantile(view []weighted, f float64) float64 {
	switch {
	case s.n == 0:
		return math.NaN()
	case f == 0:
		return s.min
	case f == 1:
		return s.max
	}
	target := f * float64(s.n)
	var cum uint64
	for _, w := range view {
		cum += w.weight
		if float64(cum) > target {
			return w.value
		}
	}
	return s.max
}

func checkSplitPoints(points []float64) error {
	for i, p := range points {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return sketcherr.Validationf("split point %d is not finite", i)
		}
		if i > 0 && p <= points[i-1] {
			return sketcherr.Validationf("split points must be unique and increasing")
		}
	}
	return nil
}

func (s *kllSketch) Query(q Query) (Result, error) {
	if q.ErrorType != NoErrorType {
		return nil, sketcherr.Unsupportedf("kll sketches do not answer frequent items queries")
	}
	if err := checkSplitPoints(q.SplitPoints); err != nil {
		return nil, err
	}
	for _, f := range q.Fractions {
		if !(f >= 0 && f <= 1) {
			return nil, sketcherr.Validationf("fraction %v outside [0, 1]", f)
		}
	}
	r := &QuantilesResult{
		StreamLength:   s.n,
		EstimationMode: len(s.levels) > 1,
		MinValue:       Float(s.min),
		MaxValue:       Float(s.max),
	}
	view := s.sortedView()
	if q.SplitPoints != nil && s.n > 0 {
		cdf := make([]RankPoint, 0, len(q.SplitPoints)+1)
		for _, p := range q.SplitPoints {
			cdf = append(cdf, RankPoint{Value: Float(p), Rank: rank(view, s.n, p)})
		}
		cdf = append(cdf, RankPoint{Value: Float(s.max), Rank: 1})
		if q.ResultType == PMF {
			prev := 0.0
			for _, c := range cdf {
				r.PMF = append(r.PMF, MassPoint{Value: c.Value, Mass: c.Rank - prev})
				prev = c.Rank
			}
		} else {
			r.CDF = cdf
		}
	}
	for _, f := range q.Fractions {
		r.Quantiles = append(r.Quantiles, QuantilePoint{Rank: f, Quantile: Float(s.quantile(view, f))})
	}
	if q.Summary {
		r.Summary = s.String()
	}
	return r, nil
}

func (s *kllSketch) retained() int {
	n := 0
	for _, items := range s.levels {
		n += len(items)
	}
	return n
}

func (s *kllSketch) MarshalBinary() ([]byte, error) {
	e := newEncoder(KLL, 40+4*len(s.levels)+8*s.retained())
	e.u32(uint32(s.k))
	e.u64(s.n)
	e.f64(s.min)
	e.f64(s.max)
	e.u64(s.coin)
	e.u32(uint32(len(s.levels)))
	for _, items := range s.levels {
		e.u32(uint32(len(items)))
		for _, v := range items {
			e.f64(v)
		}
	}
	return e.bytes(), nil
}

func decodeKLL(data []byte) (Sketch, error) {
	d, err := newDecoder(KLL, data)
	if err != nil {
		return nil, err
	}
	s := &kllSketch{k: int(d.u32()), n: d.u64(), min: d.f64(), max: d.f64(), coin: d.u64()}
	numLevels := d.count(4)
	if d.err == nil && (KLL.CheckK(s.k) != nil || numLevels < 1 || numLevels > kllMaxLevels) {
		d.fail("k %d with %d levels", s.k, numLevels)
	}
	var total uint64
	for h := 0; h < numLevels && d.err == nil; h++ {
		n := d.count(8)
		items := make([]float64, 0, n)
		for i := 0; i < n && d.err == nil; i++ {
			v := d.f64()
			if math.IsNaN(v) || v < s.min || v > s.max {
				d.fail("item %v outside [%v, %v]", v, s.min, s.max)
			}
			items = append(items, v)
		}
		s.levels = append(s.levels, items)
		total += uint64(n) << uint(h)
	}
	if d.err == nil && total != s.n {
		d.fail("levels hold weight %d, stream length %d", total, s.n)
	}
	if d.err == nil && s.coin == 0 {
		d.fail("zero coin state")
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *kllSketch) String() string {
	return fmt.Sprintf("### kll sketch\n   k: %d\n   stream length: %s\n   retained items: %s\n   levels: %d\n   min: %v\n   max: %v\n",
		s.k, humanize.Comma(int64(s.n)), humanize.Comma(int64(s.retained())), len(s.levels), s.min, s.max)
}
