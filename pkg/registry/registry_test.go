package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketches"
)

func testSpecs() []Spec {
	return []Spec{
		{Name: "users", Family: sketches.HLL, ValueType: sketches.StringValue, K: 12},
		{Name: "latency", Family: sketches.KLL, K: 200},
		{Name: "ids", Family: sketches.Theta, ValueType: sketches.LongValue, K: 10},
	}
}

func TestNew(t *testing.T) {
	r, err := New(testSpecs())
	require.NoError(t, err)
	require.Equal(t, 3, r.Len())
	require.True(t, r.Contains("latency"))
	require.False(t, r.Contains("missing"))

	list := r.List()
	require.Equal(t, []Info{
		{Name: "ids", Family: sketches.Theta, ValueType: sketches.LongValue, K: 10},
		{Name: "latency", Family: sketches.KLL, K: 200},
		{Name: "users", Family: sketches.HLL, ValueType: sketches.StringValue, K: 12},
	}, list)

	e, err := r.Lookup("users")
	require.NoError(t, err)
	require.Equal(t, sketches.HLL, e.Family())
	require.Equal(t, 12, e.ConfigK())

	_, err = r.Lookup("nope")
	require.True(t, errors.Is(err, sketcherr.ErrNotFound))
}

func TestNewRejectsBadSpecs(t *testing.T) {
	cases := map[string][]Spec{
		"duplicate":      {{Name: "a", Family: sketches.KLL, K: 8}, {Name: "a", Family: sketches.KLL, K: 8}},
		"empty name":     {{Name: " ", Family: sketches.KLL, K: 8}},
		"no family":      {{Name: "a", K: 8}},
		"missing type":   {{Name: "a", Family: sketches.CPC, K: 8}},
		"spurious type":  {{Name: "a", Family: sketches.Frequency, ValueType: sketches.StringValue, K: 8}},
		"k out of range": {{Name: "a", Family: sketches.HLL, ValueType: sketches.IntValue, K: 30}},
		"missing k":      {{Name: "a", Family: sketches.Reservoir}},
	}
	for name, specs := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := New(specs)
			require.Nil(t, r)
			require.True(t, errors.Is(err, sketcherr.ErrConfig), "%v", err)
		})
	}
}

func TestHandleLifecycle(t *testing.T) {
	r, err := New(testSpecs())
	require.NoError(t, err)
	e, err := r.Lookup("latency")
	require.NoError(t, err)

	var leaked *Handle
	require.NoError(t, e.Do(func(h *Handle) error {
		leaked = h
		require.Equal(t, uint64(0), h.Version())
		h.MarkMutated()
		fresh, err := sketches.KLL.New(200)
		require.NoError(t, err)
		require.NoError(t, h.Replace(fresh))
		require.Equal(t, uint64(2), h.Version())

		other, err := sketches.Frequency.New(8)
		require.NoError(t, err)
		require.True(t, errors.Is(h.Replace(other), sketcherr.ErrFamilyMismatch))
		return nil
	}))
	require.Panics(t, func() { leaked.Sketch() })

	boom := errors.New("boom")
	require.ErrorIs(t, e.Do(func(*Handle) error { return boom }), boom)
}

func TestLockIsPerEntry(t *testing.T) {
	r, err := New(testSpecs())
	require.NoError(t, err)
	a, _ := r.Lookup("users")
	b, _ := r.Lookup("ids")

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = a.Do(func(*Handle) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held
	// b is usable while a is held
	require.NoError(t, b.Do(func(h *Handle) error { return nil }))

	acquired := make(chan struct{})
	go func() {
		_ = a.Do(func(*Handle) error { close(acquired); return nil })
	}()
	select {
	case <-acquired:
		t.Fatal("second caller entered a held entry")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-acquired
}

func TestNoLostUpdates(t *testing.T) {
	var waits atomic.Int64
	r, err := New([]Spec{{Name: "f", Family: sketches.Frequency, K: 64}}, WithLockWait(func(sketches.Family, time.Duration) {
		waits.Add(1)
	}))
	require.NoError(t, err)
	e, _ := r.Lookup("f")

	const workers, perWorker = 16, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = e.Do(func(h *Handle) error {
					h.MarkMutated()
					return h.Sketch().Update(sketches.Item{Label: fmt.Sprint("w", w%4), Weight: 1})
				})
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, e.Do(func(h *Handle) error {
		require.Equal(t, uint64(workers*perWorker), h.Version())
		res, err := h.Sketch().Query(sketches.Query{ErrorType: sketches.NoFalsePositives})
		require.NoError(t, err)
		var total int64
		for _, row := range res.(*sketches.FrequencyResult).Items {
			total += row.LowerBound
		}
		require.Equal(t, int64(workers*perWorker), total)
		return nil
	}))
	require.Equal(t, int64(workers*perWorker+1), waits.Load())
}
