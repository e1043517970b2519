package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/metrics"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/registry"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

var ctx = context.Background()

func newEngine(t *testing.T, specs ...registry.Spec) *Engine {
	t.Helper()
	reg, err := registry.New(specs)
	require.NoError(t, err)
	return New(reg, WithMetrics(metrics.New(prometheus.NewRegistry())))
}

func spec(name string, f sketches.Family, vt sketches.ValueType, k int) registry.Spec {
	return registry.Spec{Name: name, Family: f, ValueType: vt, K: k}
}

func values(vs ...interface{}) []interface{} { return vs }

func pair(item string, w float64) map[string]interface{} {
	return map[string]interface{}{"item": item, "weight": w}
}

func query(t *testing.T, e *Engine, name string, q sketches.Query) sketches.Result {
	t.Helper()
	r, err := e.Query(ctx, name, q)
	require.NoError(t, err)
	return r
}

func estimate(t *testing.T, e *Engine, name string) float64 {
	t.Helper()
	return query(t, e, name, sketches.Query{}).(*sketches.DistinctResult).Estimate
}

var nfp = sketches.Query{ErrorType: sketches.NoFalsePositives}

func freqRows(t *testing.T, e *Engine, name string) []sketches.FrequentRow {
	t.Helper()
	return query(t, e, name, nfp).(*sketches.FrequencyResult).Items
}

func TestUpdateMatchesStandaloneSketch(t *testing.T) {
	e := newEngine(t,
		spec("h", sketches.HLL, sketches.StringValue, 10),
		spec("q", sketches.KLL, sketches.NoValueType, 50),
	)
	var hv, qv []interface{}
	for i := 0; i < 1000; i++ {
		hv = append(hv, fmt.Sprint("user-", i%300))
		qv = append(qv, json.Number(fmt.Sprint(i)))
	}
	require.NoError(t, e.Update(ctx, "h", hv))
	require.NoError(t, e.Update(ctx, "q", qv))

	for name, f := range map[string]sketches.Family{"h": sketches.HLL, "q": sketches.KLL} {
		ent, _ := e.Registry().Lookup(name)
		direct, err := f.New(ent.ConfigK())
		require.NoError(t, err)
		in := hv
		if f == sketches.KLL {
			in = qv
		}
		for _, v := range in {
			it, keep, err := sketches.DecodeItem(f, ent.ValueType(), v)
			require.NoError(t, err)
			if keep {
				require.NoError(t, direct.Update(it))
			}
		}
		q := sketches.Query{}
		if f == sketches.KLL {
			q.Fractions = []float64{0.1, 0.5, 0.9}
		}
		want, err := direct.Query(q)
		require.NoError(t, err)
		require.Equal(t, want, query(t, e, name, q))
	}
}

func TestUpdateBatchIsNotTransactional(t *testing.T) {
	e := newEngine(t, spec("f", sketches.Frequency, sketches.NoValueType, 8))
	err := e.Update(ctx, "f", values("a", pair("b", 2), map[string]interface{}{"item": "c"}, "d"))
	require.True(t, errors.Is(err, sketcherr.ErrValidation))
	require.Equal(t, []sketches.FrequentRow{
		{Item: "b", Estimate: 2, UpperBound: 2, LowerBound: 2},
		{Item: "a", Estimate: 1, UpperBound: 1, LowerBound: 1},
	}, freqRows(t, e, "f"))

	require.True(t, errors.Is(e.Update(ctx, "missing", "x"), sketcherr.ErrNotFound))
}

func TestUpdateMany(t *testing.T) {
	e := newEngine(t,
		spec("a", sketches.Theta, sketches.LongValue, 8),
		spec("b", sketches.Reservoir, sketches.NoValueType, 4),
	)
	err := e.UpdateMany(ctx, map[string]interface{}{
		"a":       values(1.0, 2.0, 2.0, 3.0),
		"b":       "only",
		"missing": "x",
	})
	require.True(t, errors.Is(err, sketcherr.ErrNotFound))
	require.Equal(t, 3.0, estimate(t, e, "a"))
	require.Equal(t, []string{"only"}, query(t, e, "b", sketches.Query{}).(*sketches.ReservoirResult).Items)
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	e := newEngine(t, spec("f", sketches.Frequency, sketches.NoValueType, 16))
	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.Update(ctx, "f", "hit"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(n), freqRows(t, e, "f")[0].Estimate)
}

func TestQueryErrors(t *testing.T) {
	e := newEngine(t, spec("r", sketches.Reservoir, sketches.NoValueType, 4))
	_, err := e.Query(ctx, "r", sketches.Query{Fractions: []float64{0.5}})
	require.True(t, errors.Is(err, sketcherr.ErrUnsupported))
	_, err = e.Query(ctx, "nope", sketches.Query{})
	require.True(t, errors.Is(err, sketcherr.ErrNotFound))
}

func TestReset(t *testing.T) {
	e := newEngine(t,
		spec("k", sketches.KLL, sketches.NoValueType, 16),
		spec("c", sketches.CPC, sketches.DoubleValue, 8),
	)
	ent, _ := e.Registry().Lookup("k")
	var before sketches.Sketch
	require.NoError(t, ent.Do(func(h *registry.Handle) error { before = h.Sketch(); return nil }))

	require.NoError(t, e.Update(ctx, "k", values(1.0, 2.0, 3.0)))
	require.NoError(t, e.Update(ctx, "c", values(1.5, -0.0, 0.0)))
	require.NoError(t, e.Reset(ctx, "k"))
	require.NoError(t, e.Reset(ctx, "c"))

	require.Zero(t, query(t, e, "k", sketches.Query{}).(*sketches.QuantilesResult).StreamLength)
	require.Zero(t, estimate(t, e, "c"))
	require.NoError(t, ent.Do(func(h *registry.Handle) error {
		require.NotSame(t, before, h.Sketch())
		return nil
	}))
	require.Equal(t, 16, ent.ConfigK())
}

func TestSerialize(t *testing.T) {
	e := newEngine(t, spec("t", sketches.Theta, sketches.StringValue, 8))
	require.NoError(t, e.Update(ctx, "t", values("a", "b", "")))

	first, err := e.Serialize(ctx, "t")
	require.NoError(t, err)
	second, err := e.Serialize(ctx, "t")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, sketches.Theta, first.Family)
	require.Equal(t, sketches.StringValue, first.ValueType)

	decoded, err := sketches.Decode(first.Family, first.Data)
	require.NoError(t, err)
	res, err := decoded.Query(sketches.Query{})
	require.NoError(t, err)
	require.Equal(t, 2.0, res.(*sketches.DistinctResult).Estimate)

	require.NoError(t, e.Update(ctx, "t", "c"))
	third, err := e.Serialize(ctx, "t")
	require.NoError(t, err)
	require.NotEqual(t, first.Data, third.Data)

	_, err = e.Serialize(ctx, "nope")
	require.True(t, errors.Is(err, sketcherr.ErrNotFound))
}
