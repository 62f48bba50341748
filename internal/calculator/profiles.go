package calculator

import (
	"strings"

	"bluecarbon-backend/internal/pkg/apperrors"
)

// Habitats with benchmark distributions.
const (
	HabitatMangrove  = "mangrove"
	HabitatSeagrass  = "seagrass"
	HabitatSaltMarsh = "salt_marsh"
)

// soilProfiles are the named depth-stratified reference profiles. Fractions
// and bulk densities are representative of Indian coastal sediments.
var soilProfiles = map[string][]Stratum{
	"low_carbon": {
		{DepthMinCm: 0, DepthMaxCm: 30, CarbonFraction: 0.08, BulkDensity: 1.30},
		{DepthMinCm: 30, DepthMaxCm: 100, CarbonFraction: 0.05, BulkDensity: 1.40},
		{DepthMinCm: 100, DepthMaxCm: 200, CarbonFraction: 0.03, BulkDensity: 1.50},
	},
	"medium_carbon": {
		{DepthMinCm: 0, DepthMaxCm: 30, CarbonFraction: 0.15, BulkDensity: 1.20},
		{DepthMinCm: 30, DepthMaxCm: 100, CarbonFraction: 0.10, BulkDensity: 1.30},
		{DepthMinCm: 100, DepthMaxCm: 200, CarbonFraction: 0.06, BulkDensity: 1.40},
	},
	"high_carbon": {
		{DepthMinCm: 0, DepthMaxCm: 30, CarbonFraction: 0.25, BulkDensity: 1.05},
		{DepthMinCm: 30, DepthMaxCm: 100, CarbonFraction: 0.18, BulkDensity: 1.15},
		{DepthMinCm: 100, DepthMaxCm: 200, CarbonFraction: 0.12, BulkDensity: 1.25},
	},
}

// speciesDefaults maps a planted species to its habitat and default profile.
type speciesDefault struct {
	Habitat  string
	SoilType string
}

var speciesDefaults = map[string]speciesDefault{
	"rhizophora mucronata":  {Habitat: HabitatMangrove, SoilType: "high_carbon"},
	"avicennia marina":      {Habitat: HabitatMangrove, SoilType: "medium_carbon"},
	"sonneratia alba":       {Habitat: HabitatMangrove, SoilType: "medium_carbon"},
	"zostera marina":        {Habitat: HabitatSeagrass, SoilType: "low_carbon"},
	"halophila ovalis":      {Habitat: HabitatSeagrass, SoilType: "low_carbon"},
	"salicornia brachiata":  {Habitat: HabitatSaltMarsh, SoilType: "medium_carbon"},
	"suaeda maritima":       {Habitat: HabitatSaltMarsh, SoilType: "low_carbon"},
}

// ProfileFor returns the named soil profile.
func ProfileFor(soilType string) ([]Stratum, error) {
	profile, ok := soilProfiles[strings.ToLower(strings.TrimSpace(soilType))]
	if !ok {
		return nil, apperrors.Ef(apperrors.KindInvalidArgument, "Unknown soil profile: %s", soilType)
	}
	return profile, nil
}

// DefaultsForSpecies resolves a species name to its habitat and profile key.
// Unknown species fall back to the mangrove medium profile rather than
// failing: species is an optional hint, not an input contract.
func DefaultsForSpecies(species string) (habitat, soilType string) {
	if d, ok := speciesDefaults[strings.ToLower(strings.TrimSpace(species))]; ok {
		return d.Habitat, d.SoilType
	}
	return HabitatMangrove, "medium_carbon"
}
