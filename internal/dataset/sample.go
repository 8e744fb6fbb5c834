package dataset

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// SampleSeed fixes the generator so the fallback table is reproducible.
	SampleSeed = 7
	// SampleRows is the row count of the fallback table.
	SampleRows = 400
	// SampleName is the dataset name reported for the fallback table.
	SampleName = "sample"
)

var (
	sampleCategories = []string{"A", "B", "C", "D", "E"}
	sampleCities     = []string{"North", "South", "East", "West"}
)

// Sample generates the demo table used when no file is supplied: two
// categorical columns (category, city) and two numeric measures, value drawn
// from Normal(100, 25) and cost from Gamma(shape 3, scale 50), both rounded
// to one decimal.
func Sample() *Table {
	rng := rand.New(rand.NewPCG(SampleSeed, SampleSeed))
	category := make([]string, SampleRows)
	for i := range category {
		category[i] = sampleCategories[rng.IntN(len(sampleCategories))]
	}
	city := make([]string, SampleRows)
	for i := range city {
		city[i] = sampleCities[rng.IntN(len(sampleCities))]
	}
	value := distuv.Normal{Mu: 100, Sigma: 25, Src: rng}
	cost := distuv.Gamma{Alpha: 3, Beta: 1.0 / 50, Src: rng}
	values := make([]float64, SampleRows)
	for i := range values {
		values[i] = round1(value.Rand())
	}
	costs := make([]float64, SampleRows)
	for i := range costs {
		costs[i] = round1(cost.Rand())
	}
	return MustTable(SampleName,
		NewTextColumn("category", category),
		NewTextColumn("city", city),
		NewFloatColumn("value", values),
		NewFloatColumn("cost", costs),
	)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
