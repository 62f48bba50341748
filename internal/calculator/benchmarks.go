package calculator

import (
	"math"
	"strings"

	"bluecarbon-backend/internal/pkg/apperrors"
)

// Benchmark is the reference carbon-percent distribution for a habitat.
type Benchmark struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// Validation classifies a measured carbon percentage against its habitat
// benchmark.
type Validation struct {
	Habitat       string    `json:"habitat"`
	CarbonPercent float64   `json:"carbon_percent"`
	Percentile    float64   `json:"percentile"`
	Rating        string    `json:"rating"`
	Benchmark     Benchmark `json:"benchmark"`
}

// habitatBenchmarks: soil organic carbon percent distributions per habitat,
// from published coastal sediment surveys.
var habitatBenchmarks = map[string]Benchmark{
	HabitatMangrove:  {Min: 1.5, Max: 25.0, Mean: 9.0, StdDev: 4.5},
	HabitatSeagrass:  {Min: 0.5, Max: 12.0, Mean: 4.0, StdDev: 2.2},
	HabitatSaltMarsh: {Min: 1.0, Max: 18.0, Mean: 6.5, StdDev: 3.2},
}

// ClassifyCarbon places carbonPercent on the habitat's benchmark distribution.
// The percentile is derived from the z-score via the normal CDF and clamped to
// [5, 95]; ratings: excellent >= 75th percentile, good >= 40th, fair below.
func ClassifyCarbon(habitat string, carbonPercent float64) (*Validation, error) {
	bm, ok := habitatBenchmarks[strings.ToLower(strings.TrimSpace(habitat))]
	if !ok {
		return nil, apperrors.Ef(apperrors.KindInvalidArgument, "Unknown habitat: %s", habitat)
	}

	z := (carbonPercent - bm.Mean) / bm.StdDev
	percentile := 100 * 0.5 * (1 + math.Erf(z/math.Sqrt2))
	if percentile < 5 {
		percentile = 5
	}
	if percentile > 95 {
		percentile = 95
	}

	rating := "fair"
	switch {
	case percentile >= 75:
		rating = "excellent"
	case percentile >= 40:
		rating = "good"
	}

	return &Validation{
		Habitat:       strings.ToLower(strings.TrimSpace(habitat)),
		CarbonPercent: round2(carbonPercent),
		Percentile:    round2(percentile),
		Rating:        rating,
		Benchmark:     bm,
	}, nil
}
