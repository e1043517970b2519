package sampler

import (
	"math/rand/v2"
	"slices"
)

// Reservoir keeps a uniform random sample of at most K items from a stream
// (Algorithm R).
type Reservoir struct {
	k     int
	n     uint64
	items []string
	src   *rand.PCG
	rng   *rand.Rand
}

// NewReservoir returns an empty reservoir holding at most k items.
func NewReservoir(k int) *Reservoir {
	src := newSource(k)
	return &Reservoir{k: k, items: make([]string, 0, min(k, 1024)), src: src, rng: rand.New(src)}
}

// K returns the maximum sample size.
func (r *Reservoir) K() int { return r.k }

// N returns the number of items offered so far.
func (r *Reservoir) N() uint64 { return r.n }

// Items returns a copy of the current sample.
func (r *Reservoir) Items() []string { return slices.Clone(r.items) }

// Exact reports whether the sample still holds the whole stream.
func (r *Reservoir) Exact() bool { return r.n == uint64(len(r.items)) }

// Add offers one item to the reservoir.
func (r *Reservoir) Add(item string) {
	r.n++
	if len(r.items) < r.k {
		r.items = append(r.items, item)
		return
	}
	if j := r.rng.Uint64N(r.n); j < uint64(r.k) {
		r.items[j] = item
	}
}

// Merge folds another reservoir's sample into r. When both sides are already
// sampling, items are drawn from each side in proportion to the stream weight
// each remaining sample item stands for.
func (r *Reservoir) Merge(o *Reservoir) {
	switch {
	case o.n == 0:
	case o.Exact():
		for _, item := range o.items {
			r.Add(item)
		}
	case r.Exact():
		mine := r.items
		r.items = r.draw(o.items, nil, 1, 0)
		r.n = o.n
		for _, item := range mine {
			r.Add(item)
		}
	default:
		wr := float64(r.n) / float64(len(r.items))
		wo := float64(o.n) / float64(len(o.items))
		r.items = r.draw(r.items, o.items, wr, wo)
		r.n += o.n
	}
}

// draw picks up to k items without replacement from a and b, where each item
// of a weighs wa and each item of b weighs wb.
func (r *Reservoir) draw(a, b []string, wa, wb float64) []string {
	a, b = r.shuffled(a), r.shuffled(b)
	out := make([]string, 0, min(r.k, len(a)+len(b)))
	for len(out) < r.k && len(a)+len(b) > 0 {
		pa, pb := wa*float64(len(a)), wb*float64(len(b))
		if len(b) == 0 || (len(a) > 0 && r.rng.Float64()*(pa+pb) < pa) {
			out, a = append(out, a[0]), a[1:]
		} else {
			out, b = append(out, b[0]), b[1:]
		}
	}
	return out
}

func (r *Reservoir) shuffled(items []string) []string {
	out := slices.Clone(items)
	r.rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Reset empties the reservoir and reseeds its random source.
func (r *Reservoir) Reset() {
	*r = *NewReservoir(r.k)
}

// ReservoirState is the serializable form of a Reservoir.
type ReservoirState struct {
	K      int
	N      uint64
	Items  []string
	Random []byte
}

// State captures the reservoir, including its random source.
func (r *Reservoir) State() ReservoirState {
	return ReservoirState{K: r.k, N: r.n, Items: slices.Clone(r.items), Random: marshalSource(r.src)}
}

// RestoreReservoir rebuilds a reservoir from captured state.
func RestoreReservoir(st ReservoirState) (*Reservoir, error) {
	if st.K < 1 || len(st.Items) > st.K || uint64(len(st.Items)) > st.N {
		return nil, invalid("reservoir k=%d holds %d items of a %d item stream", st.K, len(st.Items), st.N)
	}
	if len(st.Items) < st.K && uint64(len(st.Items)) != st.N {
		return nil, invalid("partial reservoir of %d items for a %d item stream", len(st.Items), st.N)
	}
	src, err := restoreSource(st.Random)
	if err != nil {
		return nil, err
	}
	return &Reservoir{k: st.K, n: st.N, items: slices.Clone(st.Items), src: src, rng: rand.New(src)}, nil
}
