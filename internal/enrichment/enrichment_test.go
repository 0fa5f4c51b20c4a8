package enrichment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/llm/llmtest"
	"github.com/dyike/audney/internal/models"
)

type fakeCensus struct {
	mu     sync.Mutex
	tables map[string][][]string
	errs   map[string]error
	calls  []dataflows.CensusQuery
}

func censusKey(geo, firstVar string) string { return geo + "|" + firstVar }

func (f *fakeCensus) Table(_ context.Context, q dataflows.CensusQuery) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	key := censusKey(q.For, q.Variables[0])
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	rows, ok := f.tables[key]
	if !ok {
		return nil, &dataflows.Error{Provider: "census", Op: "table", Kind: dataflows.KindNoData}
	}
	return rows, nil
}

func sanJoseCensus() *fakeCensus {
	return &fakeCensus{
		tables: map[string][][]string{
			censusKey(dataflows.GeoMetroArea, varMedianIncome): {
				{"NAME", varMedianIncome, "metropolitan statistical area/micropolitan statistical area"},
				{"Austin-Round Rock, TX Metro Area", "80954", "12420"},
				{"San Jose-Sunnyvale-Santa Clara, CA Metro Area", "130865", "41940"},
			},
			censusKey(dataflows.GeoPlace, varPopulation): {
				{"NAME", varPopulation, varMedianAge, "state", "place"},
				{"San Jose city, California", "1021795", "37.1", "06", "68000"},
			},
			censusKey(dataflows.GeoPlace, varLaborForce): {
				{"NAME", varLaborForce, varUnemployed, "state", "place"},
				{"East San Jose CDP, California", "100", "50", "06", "11111"},
				{"San Jose city, California", "540000", "27000", "06", "68000"},
			},
			censusKey(dataflows.GeoPlace, varMedianHomeValue): {
				{"NAME", varMedianHomeValue, varMedianGrossRent, "state", "place"},
				{"San Jose city, California", "917400", "2107", "06", "68000"},
			},
		},
	}
}

func TestEnrichAllSections(t *testing.T) {
	census := sanJoseCensus()
	e := NewEnricher(census, zerolog.Nop())

	res := e.Enrich(context.Background(), Location{City: "San Jose", State: "CA"})

	require.NotNil(t, res.MedianIncome)
	assert.Equal(t, 130865, *res.MedianIncome)
	require.NotNil(t, res.Demographic)
	assert.Equal(t, Demographic{Population: 1021795, MedianAge: 37.1}, *res.Demographic)
	require.NotNil(t, res.Employment)
	assert.Equal(t, 540000, res.Employment.LaborForce)
	assert.InDelta(t, 5.0, res.Employment.Rate(), 0.001)
	require.NotNil(t, res.Housing)
	assert.Equal(t, Housing{MedianHomeValue: 917400, MedianGrossRent: 2107}, *res.Housing)

	for _, q := range census.calls {
		if q.For == dataflows.GeoPlace {
			assert.Equal(t, "state:06", q.In)
		}
	}
}

func TestEnrichIncomeFallsBackToPlace(t *testing.T) {
	census := sanJoseCensus()
	census.errs = map[string]error{
		censusKey(dataflows.GeoMetroArea, varMedianIncome): &dataflows.Error{Provider: "census", Op: "table", Kind: dataflows.KindUnavailable},
	}
	census.tables[censusKey(dataflows.GeoPlace, varMedianIncome)] = [][]string{
		{"NAME", varMedianIncome, "state", "place"},
		{"San Jose city, California", "125075", "06", "68000"},
	}

	res := NewEnricher(census, zerolog.Nop()).Enrich(context.Background(), Location{City: "San Jose", State: "California"})
	require.NotNil(t, res.MedianIncome)
	assert.Equal(t, 125075, *res.MedianIncome)
}

func TestEnrichIncomeMetroMustBeInState(t *testing.T) {
	census := &fakeCensus{
		tables: map[string][][]string{
			censusKey(dataflows.GeoMetroArea, varMedianIncome): {
				{"NAME", varMedianIncome, "metropolitan statistical area/micropolitan statistical area"},
				{"Portland-South Portland, ME Metro Area", "69000", "38860"},
				{"Portland-Vancouver-Hillsboro, OR-WA Metro Area", "86000", "38900"},
			},
		},
	}
	e := NewEnricher(census, zerolog.Nop())

	res := e.Enrich(context.Background(), Location{City: "Portland", State: "OR"})
	require.NotNil(t, res.MedianIncome)
	assert.Equal(t, 86000, *res.MedianIncome)

	res = e.Enrich(context.Background(), Location{City: "Portland", State: "Maine"})
	require.NotNil(t, res.MedianIncome)
	assert.Equal(t, 69000, *res.MedianIncome)

	census.tables[censusKey(dataflows.GeoMetroArea, varMedianIncome)] = [][]string{
		{"NAME", varMedianIncome},
		{"Portland-South Portland, ME Metro Area", "69000"},
	}
	census.tables[censusKey(dataflows.GeoPlace, varMedianIncome)] = [][]string{
		{"NAME", varMedianIncome, "state", "place"},
		{"Portland city, Oregon", "78476", "41", "59000"},
	}
	res = e.Enrich(context.Background(), Location{City: "Portland", State: "OR"})
	require.NotNil(t, res.MedianIncome)
	assert.Equal(t, 78476, *res.MedianIncome)
}

func TestEnrichMalformedValuesAreAbsent(t *testing.T) {
	census := sanJoseCensus()
	census.tables[censusKey(dataflows.GeoPlace, varMedianHomeValue)] = [][]string{
		{"NAME", varMedianHomeValue, varMedianGrossRent},
		{"San Jose city, California", "-666666666", "2107"},
	}
	census.tables[censusKey(dataflows.GeoMetroArea, varMedianIncome)] = [][]string{
		{"NAME", varMedianIncome},
		{"San Jose-Sunnyvale-Santa Clara, CA Metro Area", "n/a"},
	}
	delete(census.tables, censusKey(dataflows.GeoPlace, varPopulation))

	res := NewEnricher(census, zerolog.Nop()).Enrich(context.Background(), Location{City: "San Jose", State: "CA"})
	assert.Nil(t, res.MedianIncome)
	assert.Nil(t, res.Housing)
	assert.Nil(t, res.Demographic)
	assert.NotNil(t, res.Employment)
}

func TestEnrichEmploymentRequiresExactPlace(t *testing.T) {
	census := sanJoseCensus()
	census.tables[censusKey(dataflows.GeoPlace, varLaborForce)] = [][]string{
		{"NAME", varLaborForce, varUnemployed},
		{"East San Jose CDP, California", "100", "50"},
	}
	res := NewEnricher(census, zerolog.Nop()).Enrich(context.Background(), Location{City: "San Jose", State: "CA"})
	assert.Nil(t, res.Employment)
}

func TestEnrichUnknownState(t *testing.T) {
	census := sanJoseCensus()
	res := NewEnricher(census, zerolog.Nop()).Enrich(context.Background(), Location{City: "Springfield", State: "Atlantis"})
	assert.True(t, res.Empty())
	assert.Empty(t, census.calls)
}

func TestSamePlace(t *testing.T) {
	assert.True(t, samePlace("oakland city, california", "oakland"))
	assert.True(t, samePlace("bel air cdp, maryland", "bel air"))
	assert.False(t, samePlace("west oakland city, california", "oakland"))
}

func TestEstimateExpenses(t *testing.T) {
	allocs := EstimateExpenses(55555)
	require.Len(t, allocs, 6)

	want := []struct {
		category string
		amount   string
	}{
		{"housing", "16666.50"},
		{"groceries", "5555.50"},
		{"transportation", "5555.50"},
		{"utilities", "3888.85"},
		{"clothing", "2777.75"},
		{"debt_repayment", "5555.50"},
	}
	sum := decimal.Zero
	for i, w := range want {
		assert.Equal(t, w.category, allocs[i].Category)
		assert.Equal(t, w.amount, allocs[i].Amount.StringFixed(2))
		sum = sum.Add(allocs[i].Amount)
	}
	assert.True(t, sum.LessThanOrEqual(decimal.NewFromInt(55555)))

	assert.Nil(t, EstimateExpenses(0))
}

func TestNarrative(t *testing.T) {
	assert.Equal(t, "Income and expense data not available.", Narrative(Result{}))

	income := 100000
	text := Narrative(Result{
		Location:     Location{City: "Austin", State: "TX"},
		MedianIncome: &income,
		Employment:   &Employment{LaborForce: 1000, Unemployed: 40},
		Housing:      &Housing{MedianHomeValue: 300000, MedianGrossRent: 1400},
	})
	assert.Contains(t, text, "The median household income in Austin, TX is $100000.")
	assert.Contains(t, text, "housing: $30000.00")
	assert.Contains(t, text, "unemployment rate is 4.0%")
	assert.Less(t, strings.Index(text, "income"), strings.Index(text, "unemployment"))
	assert.Less(t, strings.Index(text, "unemployment"), strings.Index(text, "home value"))
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want Location
		ok   bool
	}{
		{"Austin, Texas", Location{City: "Austin", State: "TX"}, true},
		{"\"San Jose, CA\"", Location{City: "San Jose", State: "CA"}, true},
		{"none", Location{}, false},
		{"None, None", Location{}, false},
		{"Paris, France", Location{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseLocation(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestLocationExtractor(t *testing.T) {
	ctx := context.Background()

	x := NewLocationExtractor(llmtest.Fixed("Austin, Texas"), zerolog.Nop())
	loc, ok := x.Extract(ctx, "Is Austin affordable?")
	require.True(t, ok)
	assert.Equal(t, Location{City: "Austin", State: "TX"}, loc)

	x = NewLocationExtractor(llmtest.Fixed("none"), zerolog.Nop())
	loc, ok = x.Extract(ctx, "I live in San Jose, CA and want to buy a house")
	require.True(t, ok)
	assert.Equal(t, Location{City: "San Jose", State: "CA"}, loc)

	x = NewLocationExtractor(llmtest.Failing(errors.New("down")), zerolog.Nop())
	profile := &models.UserProfile{City: "Portland", State: "Oregon"}
	assert.Equal(t, Location{City: "Portland", State: "OR"}, x.Resolve(ctx, "should I save more?", profile))
	assert.False(t, x.Resolve(ctx, "should I save more?", nil).Valid())
}
