// Income geography: smooth spatial fields that scale initial owner incomes.
package world

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// GradientFactor rises linearly from the origin corner: (x + y + 50) / 50.
func GradientFactor(p Pos) float64 {
	return float64(p.X+p.Y+50) / 50
}

// IncomeField is a seeded simplex-noise field producing rich and poor
// neighbourhoods. Values lie in [0.5, 1.5].
type IncomeField struct {
	noise     opensimplex.Noise
	frequency float64
}

// NewIncomeField creates a field; the same seed always yields the same map.
func NewIncomeField(seed int64) *IncomeField {
	return &IncomeField{
		noise:     opensimplex.NewNormalized(seed),
		frequency: 0.08,
	}
}

// At returns the income multiplier at p.
func (f *IncomeField) At(p Pos) float64 {
	return 0.5 + octaveNoise(f.noise, float64(p.X), float64(p.Y), 3, f.frequency, 0.5)
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
