package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is returned when a weight set cannot be used for scoring.
var ErrInvalidWeights = errors.New("invalid scoring weights")

// WeightTolerance is how far a weight set may drift from 1.0.
const WeightTolerance = 0.001

// WeightSet defines the relative importance of each scoring dimension.
// All weights must sum to 1.0 (±0.001 tolerance).
type WeightSet struct {
	Capability  float64 `json:"capability"`
	Geographic  float64 `json:"geographic"`
	Performance float64 `json:"performance"`
}

// DefaultWeights returns the production weight distribution.
func DefaultWeights() WeightSet {
	return WeightSet{
		Capability:  0.80,
		Geographic:  0.15,
		Performance: 0.05,
	}
}

// NewWeightSet builds a validated weight set.
func NewWeightSet(capability, geographic, performance float64) (WeightSet, error) {
	w := WeightSet{Capability: capability, Geographic: geographic, Performance: performance}
	if err := w.Validate(); err != nil {
		return WeightSet{}, err
	}
	return w, nil
}

// Sum returns the total of all weights.
func (w WeightSet) Sum() float64 {
	return w.Capability + w.Geographic + w.Performance
}

// Validate checks that weights sum to 1.0 and none are negative.
func (w WeightSet) Validate() error {
	for _, v := range w.asList() {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%w: negative or undefined weight %f", ErrInvalidWeights, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > WeightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, must sum to 1.0", ErrInvalidWeights, w.Sum())
	}
	return nil
}

func (w WeightSet) asList() []float64 {
	return []float64{w.Capability, w.Geographic, w.Performance}
}

// CapabilityWeights splits the capability score across its sub-components.
// Only components with data on both sides contribute, so these need not sum to 1.
type CapabilityWeights struct {
	Process       float64 `json:"process" yaml:"process"`
	Material      float64 `json:"material" yaml:"material"`
	Industry      float64 `json:"industry" yaml:"industry"`
	Certification float64 `json:"certification" yaml:"certification"`
	Special       float64 `json:"special" yaml:"special"`
}

// DefaultCapabilityWeights returns the 30/25/20/15/10 process, material,
// industry, certification and special split.
func DefaultCapabilityWeights() CapabilityWeights {
	return CapabilityWeights{
		Process:       0.30,
		Material:      0.25,
		Industry:      0.20,
		Certification: 0.15,
		Special:       0.10,
	}
}

// DistanceBand grants Credit to any distance up to MaxKm.
type DistanceBand struct {
	MaxKm  float64 `json:"max_km" yaml:"max_km"`
	Credit float64 `json:"credit" yaml:"credit"`
}

const regionalRadiusKm = 200

// DefaultDistanceBands returns local/regional/national/extended bands, with
// the local radius supplied by configuration. The local radius is capped at
// the regional edge so the bands stay ordered.
func DefaultDistanceBands(localRadiusKm float64) []DistanceBand {
	if localRadiusKm <= 0 {
		localRadiusKm = 50
	}
	if localRadiusKm > regionalRadiusKm {
		localRadiusKm = regionalRadiusKm
	}
	return []DistanceBand{
		{MaxKm: localRadiusKm, Credit: 1.0},
		{MaxKm: regionalRadiusKm, Credit: 0.8},
		{MaxKm: 500, Credit: 0.6},
		{MaxKm: 1000, Credit: 0.4},
	}
}
