package sketches

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sampler"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

type reservoirSketch struct {
	r *sampler.Reservoir
}

func newReservoir(k int) *reservoirSketch {
	return &reservoirSketch{r: sampler.NewReservoir(k)}
}

func (s *reservoirSketch) Family() Family { return Reservoir }

func (s *reservoirSketch) Update(it Item) error {
	s.r.Add(it.Label)
	return nil
}

func (s *reservoirSketch) CanMerge(other Sketch) error {
	if _, ok := other.(*reservoirSketch); !ok {
		return mismatch(Reservoir, other)
	}
	return nil
}

func (s *reservoirSketch) Merge(other Sketch) error {
	o, ok := other.(*reservoirSketch)
	if !ok {
		return mismatch(Reservoir, other)
	}
	s.r.Merge(o.r)
	return nil
}

func (s *reservoirSketch) Reset() { s.r.Reset() }

func (s *reservoirSketch) Query(q Query) (Result, error) {
	if err := q.onlyBasic(Reservoir); err != nil {
		return nil, err
	}
	res := &ReservoirResult{K: s.r.K(), StreamLength: s.r.N(), Items: s.r.Items()}
	if q.Summary {
		res.Summary = s.String()
	}
	return res, nil
}

func (s *reservoirSketch) MarshalBinary() ([]byte, error) {
	st := s.r.State()
	e := newEncoder(Reservoir, 64+16*len(st.Items))
	e.u32(uint32(st.K))
	e.u64(st.N)
	e.blob(st.Random)
	e.u32(uint32(len(st.Items)))
	for _, item := range st.Items {
		e.str(item)
	}
	return e.bytes(), nil
}

func decodeReservoir(data []byte) (Sketch, error) {
	d, err := newDecoder(Reservoir, data)
	if err != nil {
		return nil, err
	}
	st := sampler.ReservoirState{K: int(d.u32()), N: d.u64(), Random: d.blob()}
	n := d.count(4)
	for i := 0; i < n && d.err == nil; i++ {
		st.Items = append(st.Items, d.str())
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	if err := Reservoir.CheckK(st.K); err != nil {
		return nil, sketcherr.Validationf("corrupt reservoir image: k %d", st.K)
	}
	r, err := sampler.RestoreReservoir(st)
	if err != nil {
		return nil, sketcherr.AsValidation(err)
	}
	return &reservoirSketch{r: r}, nil
}

func (s *reservoirSketch) String() string {
	return fmt.Sprintf("### reservoir sketch\n   k: %s\n   stream length: %s\n   samples: %s\n",
		humanize.Comma(int64(s.r.K())), humanize.Comma(int64(s.r.N())), humanize.Comma(int64(len(s.r.Items()))))
}

type varOptSketch struct {
	v *sampler.VarOpt
}

func newVarOpt(k int) *varOptSketch {
	return &varOptSketch{v: sampler.NewVarOpt(k)}
}

func (s *varOptSketch) Family() Family { return VarOpt }

func (s *varOptSketch) Update(it Item) error {
	if !(it.Weight > 0) {
		return sketcherr.Validationf("varopt weight must be positive, got %v", it.Weight)
	}
	s.v.Add(it.Label, it.Weight)
	return nil
}

func (s *varOptSketch) CanMerge(other Sketch) error {
	if _, ok := other.(*varOptSketch); !ok {
		return mismatch(VarOpt, other)
	}
	return nil
}

func (s *varOptSketch) Merge(other Sketch) error {
	o, ok := other.(*varOptSketch)
	if !ok {
		return mismatch(VarOpt, other)
	}
	s.v.Merge(o.v)
	return nil
}

func (s *varOptSketch) Reset() { s.v.Reset() }

func (s *varOptSketch) Query(q Query) (Result, error) {
	if err := q.onlyBasic(VarOpt); err != nil {
		return nil, err
	}
	samples := s.v.Samples()
	res := &VarOptResult{K: s.v.K(), StreamLength: s.v.N(), Items: make([]WeightedSample, 0, len(samples))}
	for _, smp := range samples {
		w := s.v.EstimatedWeight(smp)
		res.Items = append(res.Items, WeightedSample{Item: smp.Item, Weight: w})
		res.TotalWeight += w
	}
	if q.Summary {
		res.Summary = s.String()
	}
	return res, nil
}

func (s *varOptSketch) MarshalBinary() ([]byte, error) {
	st := s.v.State()
	e := newEncoder(VarOpt, 64+32*len(st.Samples))
	e.u32(uint32(st.K))
	e.u64(st.N)
	e.f64(st.Tau)
	e.blob(st.Random)
	e.u32(uint32(len(st.Samples)))
	for _, smp := range st.Samples {
		e.str(smp.Item)
		e.f64(smp.Weight)
		e.f64(smp.Priority)
	}
	return e.bytes(), nil
}

func decodeVarOpt(data []byte) (Sketch, error) {
	d, err := newDecoder(VarOpt, data)
	if err != nil {
		return nil, err
	}
	st := sampler.VarOptState{K: int(d.u32()), N: d.u64(), Tau: d.f64(), Random: d.blob()}
	n := d.count(20)
	for i := 0; i < n && d.err == nil; i++ {
		st.Samples = append(st.Samples, sampler.Sample{Item: d.str(), Weight: d.f64(), Priority: d.f64()})
	}
	if err := d.done(); err != nil {
		return nil, err
	}
	if err := VarOpt.CheckK(st.K); err != nil {
		return nil, sketcherr.Validationf("corrupt varopt image: k %d", st.K)
	}
	v, err := sampler.RestoreVarOpt(st)
	if err != nil {
		return nil, sketcherr.AsValidation(err)
	}
	return &varOptSketch{v: v}, nil
}

func (s *varOptSketch) String() string {
	return fmt.Sprintf("### varopt sketch\n   k: %s\n   stream length: %s\n   samples: %d\n   tau: %g\n   estimated total weight: %g\n",
		humanize.Comma(int64(s.v.K())), humanize.Comma(int64(s.v.N())), len(s.v.Samples()), s.v.Tau(), s.v.TotalWeight())
}
