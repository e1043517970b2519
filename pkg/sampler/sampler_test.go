package sampler

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestReservoirKeepsWholeShortStream(t *testing.T) {
	r := NewReservoir(4)
	r.Add("a")
	r.Add("b")
	require.True(t, r.Exact())
	require.Equal(t, []string{"a", "b"}, r.Items())
}

func TestReservoirIsDeterministic(t *testing.T) {
	a, b := NewReservoir(10), NewReservoir(10)
	for i := 0; i < 1000; i++ {
		a.Add(fmt.Sprint(i))
		b.Add(fmt.Sprint(i))
	}
	require.Equal(t, a.Items(), b.Items())
	require.Equal(t, uint64(1000), a.N())
	require.False(t, a.Exact())
}

func TestReservoirMerge(t *testing.T) {
	exact := NewReservoir(10)
	exact.Add("x")
	exact.Add("y")

	big := NewReservoir(10)
	for i := 0; i < 100; i++ {
		big.Add(fmt.Sprint(i))
	}

	// exact into sampling
	m := NewReservoir(10)
	m.Merge(big)
	m.Merge(exact)
	require.Equal(t, uint64(102), m.N())
	require.Len(t, m.Items(), 10)

	// sampling into exact
	e := NewReservoir(10)
	e.Add("x")
	e.Merge(big)
	require.Equal(t, uint64(101), e.N())
	require.Len(t, e.Items(), 10)

	// both sampling
	other := NewReservoir(5)
	for i := 0; i < 50; i++ {
		other.Add(fmt.Sprint("o", i))
	}
	big.Merge(other)
	require.Equal(t, uint64(150), big.N())
	require.Len(t, big.Items(), 10)
}

func TestReservoirStateRoundTrip(t *testing.T) {
	r := NewReservoir(3)
	for i := 0; i < 20; i++ {
		r.Add(fmt.Sprint(i))
	}
	restored, err := RestoreReservoir(r.State())
	require.NoError(t, err)
	r.Add("next")
	restored.Add("next")
	require.Equal(t, r.State(), restored.State())

	_, err = RestoreReservoir(ReservoirState{K: 2, N: 1, Items: []string{"a", "b"}})
	require.True(t, errors.Is(err, ErrInvalidState))
	_, err = RestoreReservoir(ReservoirState{K: 5, N: 10, Items: []string{"a"}})
	require.True(t, errors.Is(err, ErrInvalidState))
}

func TestVarOptExactUntilFull(t *testing.T) {
	v := NewVarOpt(3)
	v.Add("a", 1)
	v.Add("b", 2)
	v.Add("c", 3)
	require.Zero(t, v.Tau())
	require.Equal(t, 6.0, v.TotalWeight())
	require.Len(t, v.Samples(), 3)

	v.Add("d", 4)
	require.Greater(t, v.Tau(), 0.0)
	require.Len(t, v.Samples(), 3)
	for _, s := range v.Samples() {
		require.Greater(t, s.Priority, v.Tau())
		require.GreaterOrEqual(t, v.EstimatedWeight(s), s.Weight)
	}
}

func TestVarOptMerge(t *testing.T) {
	a, b := NewVarOpt(5), NewVarOpt(5)
	a.Add("a1", 1)
	b.Add("b1", 2)
	a.Merge(b)
	require.Equal(t, uint64(2), a.N())
	require.Equal(t, 3.0, a.TotalWeight())

	for i := 0; i < 100; i++ {
		b.Add(fmt.Sprint(i), 1)
	}
	a.Merge(b)
	require.Len(t, a.Samples(), 5)
	require.GreaterOrEqual(t, a.Tau(), b.Tau())
	for _, s := range a.Samples() {
		require.Greater(t, s.Priority, a.Tau())
	}
}

func TestVarOptStateRoundTrip(t *testing.T) {
	v := NewVarOpt(4)
	for i := 0; i < 30; i++ {
		v.Add(fmt.Sprint(i), float64(1+i%4))
	}
	restored, err := RestoreVarOpt(v.State())
	require.NoError(t, err)
	require.Equal(t, v.State(), restored.State())

	_, err = RestoreVarOpt(VarOptState{K: 1, N: 1, Samples: []Sample{{Item: "a", Weight: 2, Priority: 1}}})
	require.True(t, errors.Is(err, ErrInvalidState))
}
