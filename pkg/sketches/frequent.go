package sketches

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

// frequentSketch finds heavy hitters of a weighted stream with the
// Misra-Gries algorithm. Each tracked item's true weight lies in
// [count, count+offset].
type frequentSketch struct {
	maxMapSize   int
	counts       map[string]int64
	offset       int64
	streamWeight int64
}

func newFrequent(maxMapSize int) *frequentSketch {
	return &frequentSketch{maxMapSize: maxMapSize, counts: make(map[string]int64)}
}

func (s *frequentSketch) Family() Family { return Frequency }

func (s *frequentSketch) Update(it Item) error {
	w := int64(it.Weight)
	if w < 0 {
		return sketcherr.Validationf("frequency weight must be non-negative, got %d", w)
	}
	s.add(it.Label, w)
	s.streamWeight += w
	return nil
}

func (s *frequentSketch) add(item string, w int64) {
	if w == 0 {
		return
	}
	s.counts[item] += w
	if len(s.counts) > s.maxMapSize {
		s.purge()
	}
}

// purge subtracts the median count from every counter and drops those that
// reach zero. The subtracted amount is added to the offset.
func (s *frequentSketch) purge() {
	vals := make([]int64, 0, len(s.counts))
	for _, c := range s.counts {
		vals = append(vals, c)
	}
	slices.Sort(vals)
	median := vals[len(vals)/2]
	for item, c := range s.counts {
		if c <= median {
			delete(s.counts, item)
		} else {
			s.counts[item] = c - median
		}
	}
	s.offset += median
}

func (s *frequentSketch) CanMerge(other Sketch) error {
	if _, ok := other.(*frequentSketch); !ok {
		return mismatch(Frequency, other)
	}
	return nil
}

func (s *frequentSketch) Merge(other Sketch) error {
	o, ok := other.(*frequentSketch)
	if !ok {
		return mismatch(Frequency, other)
	}
	for _, item := range o.sortedItems() {
		s.add(item, o.counts[item])
	}
	s.offset += o.offset
	s.streamWeight += o.streamWeight
	return nil
}

func (s *frequentSketch) Reset() {
	s.counts = make(map[string]int64)
	s.offset = 0
	s.streamWeight = 0
}

func (s *frequentSketch) sortedItems() []string {
	items := make([]string, 0, len(s.counts))
	for item := range s.counts {
		items = append(items, item)
	}
	slices.Sort(items)
	return items
}

// rows returns the tracked items whose bound exceeds the offset, largest
// estimate first.
func (s *frequentSketch) rows(et ErrorType) []FrequentRow {
	rows := make([]FrequentRow, 0)
	for item, c := range s.counts {
		lb, ub := c, c+s.offset
		bound := lb
		if et == NoFalseNegatives {
			bound = ub
		}
		if bound > s.offset {
			rows = append(rows, FrequentRow{Item: item, Estimate: ub, UpperBound: ub, LowerBound: lb})
		}
	}
	slices.SortFunc(rows, func(a, b FrequentRow) int {
		if c := cmp.Compare(b.Estimate, a.Estimate); c != 0 {
			return c
		}
		return cmp.Compare(a.Item, b.Item)
	})
	return rows
}

func (s *frequentSketch) Query(q Query) (Result, error) {
	if q.wantsQuantiles() {
		return nil, sketcherr.Unsupportedf("frequency sketches do not answer rank or quantile queries")
	}
	if q.ErrorType == NoErrorType {
		return nil, sketcherr.Validationf("frequency queries require an errorType of noFalsePositives or noFalseNegatives")
	}
	r := &FrequencyResult{Items: s.rows(q.ErrorType)}
	if q.Summary {
		r.Summary = s.String()
	}
	return r, nil
}

func (s *frequentSketch) MarshalBinary() ([]byte, error) {
	items := s.sortedItems()
	e := newEncoder(Frequency, 24+16*len(items))
	e.u32(uint32(s.maxMapSize))
	e.i64(s.offset)
	e.i64(s.streamWeight)
	e.u32(uint32(len(items)))
	for _, item := range items {
		e.str(item)
		e.i64(s.counts[item])
	}
	return e.bytes(), nil
}

func decodeFrequent(data []byte) (Sketch, error) {
	d, err := newDecoder(Frequency, data)
	if err != nil {
		return nil, err
	}
	maxMapSize := int(d.u32())
	offset, streamWeight := d.i64(), d.i64()
	n := d.count(12)
	if d.err == nil && (Frequency.CheckK(maxMapSize) != nil || n > maxMapSize || offset < 0 || streamWeight < 0) {
		d.fail("maxMapSize %d with %d items", maxMapSize, n)
	}
	s := &frequentSketch{maxMapSize: maxMapSize, counts: make(map[string]int64, n), offset: offset, streamWeight: streamWeight}
	for i := 0; i < n && d.err == nil; i++ {
		item, c := d.str(), d.i64()
		if d.err == nil && c <= 0 {
			d.fail("count %d for %q", c, item)
		}
		s.counts[item] = c
	}
	if d.err == nil && len(s.counts) != n {
		d.fail("duplicate items")
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *frequentSketch) String() string {
	return fmt.Sprintf("### frequent items sketch\n   max map size: %s\n   active items: %s\n   stream weight: %s\n   maximum error: %s\n",
		humanize.Comma(int64(s.maxMapSize)), humanize.Comma(int64(len(s.counts))),
		humanize.Comma(s.streamWeight), humanize.Comma(s.offset))
}
