package sketches

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

// Pair is a weighted update for the frequency and VarOpt families.
type Pair struct {
	Item   interface{}
	Weight interface{}
}

// DecodeItem normalizes one decoded update value for a sketch of family f.
// raw is what encoding/json produces (string, float64, json.Number, bool,
// map[string]interface{}) or a Pair. The boolean result is false when the
// value is valid but contributes nothing, such as an empty string or a zero
// frequency weight.
func DecodeItem(f Family, vt ValueType, raw interface{}) (Item, bool, error) {
	if m, ok := raw.(map[string]interface{}); ok {
		p, err := pairFromMap(m)
		if err != nil {
			return Item{}, false, err
		}
		raw = p
	}
	switch f {
	case Theta, HLL, CPC:
		if _, ok := raw.(Pair); ok {
			return Item{}, false, sketcherr.Validationf("%s sketches do not accept weighted items", f)
		}
		return distinctItem(vt, raw)
	case KLL:
		if _, ok := raw.(Pair); ok {
			return Item{}, false, sketcherr.Validationf("kll sketches do not accept weighted items")
		}
		v, err := toFloat(raw)
		if err != nil {
			return Item{}, false, err
		}
		if math.IsNaN(v) {
			return Item{}, false, nil
		}
		return Item{Value: v}, true, nil
	case Reservoir:
		if _, ok := raw.(Pair); ok {
			return Item{}, false, sketcherr.Validationf("reservoir sketches do not accept weighted items")
		}
		label, err := toLabel(raw)
		if err != nil {
			return Item{}, false, err
		}
		return Item{Label: label, Weight: 1}, true, nil
	case Frequency, VarOpt:
		p, ok := raw.(Pair)
		if !ok {
			p = Pair{Item: raw, Weight: 1.0}
		}
		label, err := toLabel(p.Item)
		if err != nil {
			return Item{}, false, err
		}
		w, err := toFloat(p.Weight)
		if err != nil {
			return Item{}, false, errors.Wrapf(err, "weight of %q", label)
		}
		if f == Frequency {
			if w < 0 || w != math.Trunc(w) || math.IsInf(w, 0) || w > math.MaxInt64/2 {
				return Item{}, false, sketcherr.Validationf("frequency weight must be a non-negative integer, got %v", w)
			}
			if w == 0 {
				return Item{}, false, nil
			}
		} else if !(w > 0) || math.IsInf(w, 0) {
			return Item{}, false, sketcherr.Validationf("varopt weight must be positive and finite, got %v", w)
		}
		return Item{Label: label, Weight: w}, true, nil
	}
	return Item{}, false, sketcherr.Validationf("invalid sketch family %d", uint8(f))
}

func pairFromMap(m map[string]interface{}) (Pair, error) {
	item, ok := m["item"]
	if !ok || item == nil {
		return Pair{}, sketcherr.Validationf("weighted update is missing \"item\"")
	}
	weight, ok := m["weight"]
	if !ok || weight == nil {
		return Pair{}, sketcherr.Validationf("weighted update is missing \"weight\"")
	}
	return Pair{Item: item, Weight: weight}, nil
}

func distinctItem(vt ValueType, raw interface{}) (Item, bool, error) {
	switch vt {
	case StringValue:
		s, err := toLabel(raw)
		if err != nil {
			return Item{}, false, err
		}
		if s == "" {
			return Item{}, false, nil
		}
		return Item{Key: []byte(s)}, true, nil
	case IntValue, LongValue:
		n, err := toInt(raw)
		if err != nil {
			return Item{}, false, err
		}
		if vt == IntValue && (n < math.MinInt32 || n > math.MaxInt32) {
			return Item{}, false, sketcherr.Validationf("value %d overflows int", n)
		}
		return Item{Key: int64Key(n)}, true, nil
	case FloatValue, DoubleValue:
		v, err := toFloat(raw)
		if err != nil {
			return Item{}, false, err
		}
		if vt == FloatValue {
			v = float64(float32(v))
		}
		return Item{Key: float64Key(v)}, true, nil
	}
	return Item{}, false, sketcherr.Configf("distinct counting sketch has no value type")
}

func toLabel(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", sketcherr.Validationf("unsupported update value %v (%T)", raw, raw)
}

func toFloat(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return parseFloat(v.String())
	case string:
		return parseFloat(v)
	}
	return 0, sketcherr.Validationf("expected a number, got %v (%T)", raw, raw)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, sketcherr.Validationf("expected a number, got %q", s)
	}
	return v, nil
}

func toInt(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return parseInt(v.String())
	case string:
		return parseInt(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, sketcherr.Validationf("expected an integer, got %v", v)
		}
		return int64(v), nil
	}
	return 0, sketcherr.Validationf("expected an integer, got %v (%T)", raw, raw)
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, sketcherr.Validationf("expected an integer, got %q", s)
	}
	return n, nil
}
