package sampler

import (
	"cmp"
	"container/heap"
	"math"
	"math/rand/v2"
	"slices"
)

// Sample is one retained VarOpt item.
type Sample struct {
	Item     string
	Weight   float64
	Priority float64
}

type sampleHeap []Sample

func (h sampleHeap) Len() int           { return len(h) }
func (h sampleHeap) Less(i, j int) bool { return h[i].Priority < h[j].Priority }
func (h sampleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *sampleHeap) Push(x any)        { *h = append(*h, x.(Sample)) }
func (h *sampleHeap) Pop() any {
	old := *h
	s := old[len(old)-1]
	*h = old[:len(old)-1]
	return s
}

// VarOpt keeps a weighted sample of at most K items using priority sampling:
// each item gets priority weight/u for uniform u, the K highest priorities are
// kept, and tau is the largest priority discarded so far. An item's estimated
// weight is max(weight, tau), which makes subset sums unbiased.
type VarOpt struct {
	k       int
	n       uint64
	tau     float64
	samples sampleHeap
	src     *rand.PCG
	rng     *rand.Rand
}

// NewVarOpt returns an empty sampler holding at most k items.
func NewVarOpt(k int) *VarOpt {
	src := newSource(k)
	return &VarOpt{k: k, src: src, rng: rand.New(src)}
}

// K returns the maximum sample size.
func (v *VarOpt) K() int { return v.k }

// N returns the number of items offered so far.
func (v *VarOpt) N() uint64 { return v.n }

// Tau returns the current priority threshold; zero while the sample is exact.
func (v *VarOpt) Tau() float64 { return v.tau }

// Add offers one item with a positive weight.
func (v *VarOpt) Add(item string, weight float64) {
	v.n++
	u := 1 - v.rng.Float64()
	v.push(Sample{Item: item, Weight: weight, Priority: weight / u})
}

func (v *VarOpt) push(s Sample) {
	if v.tau > 0 && s.Priority <= v.tau {
		return
	}
	heap.Push(&v.samples, s)
	for len(v.samples) > v.k {
		dropped := heap.Pop(&v.samples).(Sample)
		v.tau = math.Max(v.tau, dropped.Priority)
	}
}

// Merge folds another sampler's sample into v. Both samples are filtered by
// the larger threshold, so the result is a priority sample of the combined
// stream.
func (v *VarOpt) Merge(o *VarOpt) {
	if o.tau > v.tau {
		v.tau = o.tau
		for len(v.samples) > 0 && v.samples[0].Priority <= v.tau {
			heap.Pop(&v.samples)
		}
	}
	for _, s := range o.samples {
		v.push(s)
	}
	v.n += o.n
}

// EstimatedWeight returns the unbiased weight estimate for a retained sample.
func (v *VarOpt) EstimatedWeight(s Sample) float64 {
	return math.Max(s.Weight, v.tau)
}

// Samples returns the retained samples, highest priority first.
func (v *VarOpt) Samples() []Sample {
	out := slices.Clone([]Sample(v.samples))
	slices.SortFunc(out, func(a, b Sample) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.Item, b.Item)
	})
	return out
}

// TotalWeight estimates the total input weight. It is exact while no item
// has been discarded.
func (v *VarOpt) TotalWeight() float64 {
	var total float64
	for _, s := range v.samples {
		total += v.EstimatedWeight(s)
	}
	return total
}

// Reset empties the sampler and reseeds its random source.
func (v *VarOpt) Reset() {
	*v = *NewVarOpt(v.k)
}

// VarOptState is the serializable form of a VarOpt sampler.
type VarOptState struct {
	K       int
	N       uint64
	Tau     float64
	Samples []Sample
	Random  []byte
}

// State captures the sampler with samples in a canonical order.
func (v *VarOpt) State() VarOptState {
	return VarOptState{K: v.k, N: v.n, Tau: v.tau, Samples: v.Samples(), Random: marshalSource(v.src)}
}

// RestoreVarOpt rebuilds a sampler from captured state.
func RestoreVarOpt(st VarOptState) (*VarOpt, error) {
	if st.K < 1 || len(st.Samples) > st.K || uint64(len(st.Samples)) > st.N {
		return nil, invalid("varopt k=%d holds %d samples of a %d item stream", st.K, len(st.Samples), st.N)
	}
	if math.IsNaN(st.Tau) || math.IsInf(st.Tau, 0) || st.Tau < 0 {
		return nil, invalid("varopt tau %v", st.Tau)
	}
	for _, s := range st.Samples {
		if !(s.Weight > 0) || math.IsInf(s.Weight, 0) || !(s.Priority >= s.Weight) || s.Priority <= st.Tau {
			return nil, invalid("varopt sample %q weight %v priority %v", s.Item, s.Weight, s.Priority)
		}
	}
	src, err := restoreSource(st.Random)
	if err != nil {
		return nil, err
	}
	v := &VarOpt{k: st.K, n: st.N, tau: st.Tau, samples: slices.Clone(sampleHeap(st.Samples)), src: src, rng: rand.New(src)}
	heap.Init(&v.samples)
	return v, nil
}
