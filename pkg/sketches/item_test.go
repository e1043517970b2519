package sketches

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

func TestParseValueType(t *testing.T) {
	vt, ok := ParseValueType("Double")
	require.True(t, ok)
	require.Equal(t, DoubleValue, vt)
	_, ok = ParseValueType("")
	require.False(t, ok)
	_, ok = ParseValueType("decimal")
	require.False(t, ok)

	var parsed ValueType
	require.True(t, errors.Is(parsed.UnmarshalText([]byte("blob")), sketcherr.ErrConfig))
}

func TestDistinctItemsHashByValueType(t *testing.T) {
	long, ok, err := DecodeItem(Theta, LongValue, json.Number("42"))
	require.NoError(t, err)
	require.True(t, ok)
	fromFloat, _, err := DecodeItem(Theta, LongValue, 42.0)
	require.NoError(t, err)
	require.Equal(t, long.Key, fromFloat.Key)
	require.Len(t, long.Key, 8)

	_, _, err = DecodeItem(Theta, LongValue, 4.5)
	require.True(t, errors.Is(err, sketcherr.ErrValidation))
	_, _, err = DecodeItem(CPC, IntValue, float64(math.MaxInt32+1))
	require.True(t, errors.Is(err, sketcherr.ErrValidation))

	negZero, _, err := DecodeItem(HLL, DoubleValue, math.Copysign(0, -1))
	require.NoError(t, err)
	zero, _, err := DecodeItem(HLL, DoubleValue, 0.0)
	require.NoError(t, err)
	require.Equal(t, zero.Key, negZero.Key)

	_, ok, err = DecodeItem(Theta, StringValue, "")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = DecodeItem(Theta, StringValue, map[string]interface{}{"item": "a", "weight": 2.0})
	require.True(t, errors.Is(err, sketcherr.ErrValidation))
}

func TestWeightedItems(t *testing.T) {
	it, ok, err := DecodeItem(Frequency, NoValueType, "apple")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Item{Label: "apple", Weight: 1}, it)

	it, ok, err = DecodeItem(VarOpt, NoValueType, map[string]interface{}{"item": 7.0, "weight": 2.5})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Item{Label: "7", Weight: 2.5}, it)

	_, ok, err = DecodeItem(Frequency, NoValueType, Pair{Item: "a", Weight: 0.0})
	require.NoError(t, err)
	require.False(t, ok)

	for _, bad := range []interface{}{
		map[string]interface{}{"item": "a"},
		map[string]interface{}{"weight": 1.0},
		Pair{Item: "a", Weight: -1.0},
		Pair{Item: "a", Weight: 1.5},
	} {
		_, _, err := DecodeItem(Frequency, NoValueType, bad)
		require.True(t, errors.Is(err, sketcherr.ErrValidation), "%v", bad)
	}
	_, _, err = DecodeItem(VarOpt, NoValueType, Pair{Item: "a", Weight: 0.0})
	require.True(t, errors.Is(err, sketcherr.ErrValidation))
	_, _, err = DecodeItem(Reservoir, NoValueType, Pair{Item: "a", Weight: 1.0})
	require.True(t, errors.Is(err, sketcherr.ErrValidation))
}

func TestKLLItems(t *testing.T) {
	it, ok, err := DecodeItem(KLL, NoValueType, "2.5")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2.5, it.Value)

	_, _, err = DecodeItem(KLL, NoValueType, "abc")
	require.True(t, errors.Is(err, sketcherr.ErrValidation))
	_, _, err = DecodeItem(KLL, NoValueType, []interface{}{1.0})
	require.True(t, errors.Is(err, sketcherr.ErrValidation))
}
