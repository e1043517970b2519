package sketches

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/sahithikokkula/Hackathon-E6Data/sketchd/pkg/sketcherr"
)

// ErrorType selects how frequent items are reported.
type ErrorType uint8

const (
	// NoErrorType means no frequent-items mode was requested.
	NoErrorType ErrorType = iota
	// NoFalsePositives reports only items that are certainly frequent.
	NoFalsePositives
	// NoFalseNegatives reports every item that could be frequent.
	NoFalseNegatives
)

// ParseErrorType parses the wire name of a frequent-items mode.
func ParseErrorType(s string) (ErrorType, error) {
	switch s {
	case "noFalsePositives":
		return NoFalsePositives, nil
	case "noFalseNegatives":
		return NoFalseNegatives, nil
	}
	return NoErrorType, sketcherr.Validationf("unknown frequent items errorType: %q", s)
}

func (e ErrorType) String() string {
	switch e {
	case NoFalsePositives:
		return "noFalsePositives"
	case NoFalseNegatives:
		return "noFalseNegatives"
	}
	return ""
}

// ResultType selects whether split points produce ranks or masses.
type ResultType uint8

const (
	// CDF reports the normalized rank at each split point.
	CDF ResultType = iota
	// PMF reports the mass between consecutive split points.
	PMF
)

// ParseResultType parses a result type name. Anything other than "pmf"
// selects the CDF.
func ParseResultType(s string) ResultType {
	if strings.EqualFold(s, "pmf") {
		return PMF
	}
	return CDF
}

// Query holds the optional parameters of a query. The zero value asks for
// the family's basic projection.
type Query struct {
	// ErrorType is required by, and only accepted by, frequency sketches.
	ErrorType ErrorType
	// SplitPoints requests a CDF or PMF from a KLL sketch when non-nil.
	SplitPoints []float64
	ResultType  ResultType
	// Fractions requests quantiles from a KLL sketch when non-nil.
	Fractions []float64
	// Summary adds a human readable summary to the result.
	Summary bool
}

func (q Query) wantsQuantiles() bool {
	return q.SplitPoints != nil || q.Fractions != nil
}

// onlyBasic rejects the parameters that only quantile and frequency sketches
// understand.
func (q Query) onlyBasic(f Family) error {
	if q.wantsQuantiles() {
		return sketcherr.Unsupportedf("%s sketches do not answer rank or quantile queries", f)
	}
	if q.ErrorType != NoErrorType {
		return sketcherr.Unsupportedf("%s sketches do not answer frequent items queries", f)
	}
	return nil
}

// Result is the projection returned by Query. The concrete type depends on
// the family.
type Result interface {
	Family() Family
}

// Float is a float64 that encodes NaN and infinities as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// DistinctResult is returned by the distinct-counting families.
type DistinctResult struct {
	family Family

	Estimate       float64 `json:"estimate"`
	EstimationMode bool    `json:"estimationMode"`
	UpperBound1    float64 `json:"plus1StdDev"`
	UpperBound2    float64 `json:"plus2StdDev"`
	UpperBound3    float64 `json:"plus3StdDev"`
	LowerBound1    float64 `json:"minus1StdDev"`
	LowerBound2    float64 `json:"minus2StdDev"`
	LowerBound3    float64 `json:"minus3StdDev"`
	Summary        string  `json:"summary,omitempty"`
}

// Family implements Result.
func (r *DistinctResult) Family() Family { return r.family }

// RankPoint is one CDF entry.
type RankPoint struct {
	Value Float   `json:"value"`
	Rank  float64 `json:"rank"`
}

// MassPoint is one PMF entry.
type MassPoint struct {
	Value Float   `json:"value"`
	Mass  float64 `json:"mass"`
}

// QuantilePoint pairs a requested fraction with its quantile.
type QuantilePoint struct {
	Rank     float64 `json:"rank"`
	Quantile Float   `json:"quantile"`
}

// QuantilesResult is returned by KLL sketches.
type QuantilesResult struct {
	StreamLength   uint64          `json:"streamLength"`
	EstimationMode bool            `json:"estimationMode"`
	MinValue       Float           `json:"minValue"`
	MaxValue       Float           `json:"maxValue"`
	CDF            []RankPoint     `json:"estimatedCDF,omitempty"`
	PMF            []MassPoint     `json:"estimatedPMF,omitempty"`
	Quantiles      []QuantilePoint `json:"estimatedQuantiles,omitempty"`
	Summary        string          `json:"summary,omitempty"`
}

// Family implements Result.
func (r *QuantilesResult) Family() Family { return KLL }

// FrequentRow is one reported frequent item.
type FrequentRow struct {
	Item       string `json:"item"`
	Estimate   int64  `json:"estimate"`
	UpperBound int64  `json:"upperBound"`
	LowerBound int64  `json:"lowerBound"`
}

// FrequencyResult is returned by frequency sketches.
type FrequencyResult struct {
	Items   []FrequentRow `json:"items"`
	Summary string        `json:"summary,omitempty"`
}

// Family implements Result.
func (r *FrequencyResult) Family() Family { return Frequency }

// ReservoirResult is returned by reservoir sketches.
type ReservoirResult struct {
	K            int      `json:"sketchK"`
	StreamLength uint64   `json:"streamLength"`
	Items        []string `json:"items"`
	Summary      string   `json:"summary,omitempty"`
}

// Family implements Result.
func (r *ReservoirResult) Family() Family { return Reservoir }

// WeightedSample is one VarOpt sample with its estimated weight.
type WeightedSample struct {
	Item   string  `json:"item"`
	Weight float64 `json:"weight"`
}

// VarOptResult is returned by VarOpt sketches.
type VarOptResult struct {
	K            int              `json:"sketchK"`
	StreamLength uint64           `json:"streamLength"`
	Items        []WeightedSample `json:"items"`
	TotalWeight  float64          `json:"totalWeight"`
	Summary      string           `json:"summary,omitempty"`
}

// Family implements Result.
func (r *VarOptResult) Family() Family { return VarOpt }
