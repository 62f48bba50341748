// Package calculator computes soil carbon stocks for blue-carbon habitats.
// Everything in this package is pure: same inputs always produce the same
// outputs, with no I/O and no hidden state.
package calculator

import (
	"math"

	"bluecarbon-backend/internal/pkg/apperrors"
)

// carbonToCO2e converts tonnes of carbon to tonnes of CO2 equivalent
// (molecular weight ratio 44/12).
const carbonToCO2e = 3.67

// Stratum is one depth band of a soil profile. Bands are ordered, ascending
// and non-overlapping.
type Stratum struct {
	DepthMinCm     float64 `json:"depth_min_cm"`
	DepthMaxCm     float64 `json:"depth_max_cm"`
	CarbonFraction float64 `json:"carbon_fraction"` // 0..1
	BulkDensity    float64 `json:"bulk_density"`    // g/cm3
}

// LayerStock is the computed stock for one (possibly clipped) stratum.
type LayerStock struct {
	DepthMinCm    float64 `json:"depth_min_cm"`
	DepthMaxCm    float64 `json:"depth_max_cm"`
	CarbonPercent float64 `json:"carbon_percent"`
	BulkDensity   float64 `json:"bulk_density"`
	StockTCO2e    float64 `json:"stock_tco2e"`
}

// Estimate is the result of a stratified carbon stock calculation.
type Estimate struct {
	TotalCarbonCredits   float64      `json:"totalCarbonCredits"`
	Layers               []LayerStock `json:"layers"`
	AverageCarbonPercent float64      `json:"averageCarbonPercent"`
	EstimatedNDVI        float64      `json:"estimatedNDVI"`
}

// CalculateCarbonCredits accumulates per-stratum carbon stock over a profile.
// maxDepthCm clips the profile; pass 0 for no cutoff. Each stratum contributes
//
//	(depth m) x (area m2) x bulk density x carbon fraction x 3.67 / 1000
//
// tonnes CO2e; the total is rounded to the nearest whole tonne.
func CalculateCarbonCredits(areaHa float64, profile []Stratum, maxDepthCm float64) (*Estimate, error) {
	if areaHa <= 0 {
		return nil, apperrors.InvalidArgument("Area must be a positive number of hectares")
	}
	if len(profile) == 0 {
		return nil, apperrors.InvalidArgument("Soil profile has no strata")
	}

	areaM2 := areaHa * 10000
	var total float64
	var layers []LayerStock
	var percentSum float64

	for _, s := range profile {
		if maxDepthCm > 0 && s.DepthMinCm >= maxDepthCm {
			continue
		}
		clippedMax := s.DepthMaxCm
		if maxDepthCm > 0 && clippedMax > maxDepthCm {
			clippedMax = maxDepthCm
		}
		depthM := (clippedMax - s.DepthMinCm) / 100
		stock := depthM * areaM2 * s.BulkDensity * s.CarbonFraction * carbonToCO2e / 1000

		layers = append(layers, LayerStock{
			DepthMinCm:    s.DepthMinCm,
			DepthMaxCm:    clippedMax,
			CarbonPercent: round2(s.CarbonFraction * 100),
			BulkDensity:   s.BulkDensity,
			StockTCO2e:    round2(stock),
		})
		total += stock
		percentSum += s.CarbonFraction * 100
	}

	if len(layers) == 0 {
		return nil, apperrors.InvalidArgument("Depth cutoff excludes the entire soil profile")
	}

	// Unweighted mean across strata: a documented simplification kept for
	// compatibility with historical credit totals.
	avgPercent := percentSum / float64(len(layers))

	return &Estimate{
		TotalCarbonCredits:   math.Round(total),
		Layers:               layers,
		AverageCarbonPercent: round2(avgPercent),
		EstimatedNDVI:        round2(EstimateNDVI(avgPercent)),
	}, nil
}

// EstimateNDVI maps a soil carbon percentage onto a plausible canopy NDVI via
// a clamped linear interpolation.
func EstimateNDVI(carbonPercent float64) float64 {
	f := carbonPercent / 40
	if f > 1 {
		f = 1
	}
	if f < 0 {
		f = 0
	}
	return 0.3 + f*0.55
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
