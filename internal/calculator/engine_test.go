package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bluecarbon-backend/internal/pkg/apperrors"
)

func TestCalculateCarbonCredits_MediumProfile(t *testing.T) {
	profile, err := ProfileFor("medium_carbon")
	require.NoError(t, err)

	est, err := CalculateCarbonCredits(10, profile, 200)
	require.NoError(t, err)

	// 0-30cm: 0.3 * 100000 * 1.2 * 0.15 * 3.67 / 1000 = 19.818
	// 30-100cm: 0.7 * 100000 * 1.3 * 0.10 * 3.67 / 1000 = 33.397
	// 100-200cm: 1.0 * 100000 * 1.4 * 0.06 * 3.67 / 1000 = 30.828
	require.Len(t, est.Layers, 3)
	assert.InDelta(t, 19.82, est.Layers[0].StockTCO2e, 0.001)
	assert.InDelta(t, 33.40, est.Layers[1].StockTCO2e, 0.001)
	assert.InDelta(t, 30.83, est.Layers[2].StockTCO2e, 0.001)
	assert.Equal(t, float64(84), est.TotalCarbonCredits)
	assert.InDelta(t, 10.33, est.AverageCarbonPercent, 0.001)
	assert.InDelta(t, 0.44, est.EstimatedNDVI, 0.001)
}

func TestCalculateCarbonCredits_DepthCutoffClipsStratum(t *testing.T) {
	profile, err := ProfileFor("medium_carbon")
	require.NoError(t, err)

	est, err := CalculateCarbonCredits(10, profile, 50)
	require.NoError(t, err)

	require.Len(t, est.Layers, 2)
	assert.Equal(t, float64(50), est.Layers[1].DepthMaxCm)
	// Second stratum clipped to 30-50cm: 0.2 * 100000 * 1.3 * 0.10 * 3.67 / 1000
	assert.InDelta(t, 9.54, est.Layers[1].StockTCO2e, 0.001)
	assert.Equal(t, float64(29), est.TotalCarbonCredits)
	// Average carbon ignores strata below the cutoff.
	assert.InDelta(t, 12.5, est.AverageCarbonPercent, 0.001)
}

func TestCalculateCarbonCredits_ZeroCutoffMeansFullProfile(t *testing.T) {
	profile, err := ProfileFor("high_carbon")
	require.NoError(t, err)

	full, err := CalculateCarbonCredits(5, profile, 0)
	require.NoError(t, err)
	explicit, err := CalculateCarbonCredits(5, profile, 200)
	require.NoError(t, err)

	assert.Equal(t, explicit.TotalCarbonCredits, full.TotalCarbonCredits)
	assert.Len(t, full.Layers, 3)
}

func TestCalculateCarbonCredits_InvalidInputs(t *testing.T) {
	profile, err := ProfileFor("low_carbon")
	require.NoError(t, err)

	_, err = CalculateCarbonCredits(0, profile, 100)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	_, err = CalculateCarbonCredits(-3, profile, 100)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	_, err = CalculateCarbonCredits(10, nil, 100)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))

	deep := []Stratum{{DepthMinCm: 100, DepthMaxCm: 200, CarbonFraction: 0.1, BulkDensity: 1.3}}
	_, err = CalculateCarbonCredits(10, deep, 50)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
}

func TestProfileFor_UnknownProfile(t *testing.T) {
	_, err := ProfileFor("peat_bog")
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
}

func TestEstimateNDVI_Clamps(t *testing.T) {
	assert.InDelta(t, 0.3, EstimateNDVI(0), 1e-9)
	assert.InDelta(t, 0.575, EstimateNDVI(20), 1e-9)
	assert.InDelta(t, 0.85, EstimateNDVI(40), 1e-9)
	assert.InDelta(t, 0.85, EstimateNDVI(120), 1e-9)
}

func TestClassifyCarbon_Ratings(t *testing.T) {
	// At the mean the percentile is exactly 50: good.
	v, err := ClassifyCarbon("mangrove", 9.0)
	require.NoError(t, err)
	assert.InDelta(t, 50, v.Percentile, 0.01)
	assert.Equal(t, "good", v.Rating)

	// Far above the mean clamps to the 95th percentile: excellent.
	v, err = ClassifyCarbon("mangrove", 25.0)
	require.NoError(t, err)
	assert.Equal(t, float64(95), v.Percentile)
	assert.Equal(t, "excellent", v.Rating)

	// Far below clamps to the 5th percentile: fair.
	v, err = ClassifyCarbon("seagrass", 0.1)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v.Percentile)
	assert.Equal(t, "fair", v.Rating)
}

func TestClassifyCarbon_UnknownHabitat(t *testing.T) {
	_, err := ClassifyCarbon("kelp_forest", 5)
	assert.Equal(t, apperrors.KindInvalidArgument, apperrors.KindOf(err))
}

func TestDefaultsForSpecies(t *testing.T) {
	habitat, soil := DefaultsForSpecies("Rhizophora Mucronata")
	assert.Equal(t, HabitatMangrove, habitat)
	assert.Equal(t, "high_carbon", soil)

	habitat, soil = DefaultsForSpecies("unknown shrub")
	assert.Equal(t, HabitatMangrove, habitat)
	assert.Equal(t, "medium_carbon", soil)
}
