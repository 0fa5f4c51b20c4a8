package enrichment

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dyike/audney/internal/dataflows"
)

// ACS 5-year variables.
const (
	varMedianIncome    = "B19013_001E"
	varPopulation      = "B01003_001E"
	varMedianAge       = "B01002_001E"
	varLaborForce      = "B23025_003E"
	varUnemployed      = "B23025_005E"
	varMedianHomeValue = "B25077_001E"
	varMedianGrossRent = "B25064_001E"
)

var placeSuffixes = []string{" city", " town", " village", " cdp"}

type Demographic struct {
	Population int
	MedianAge  float64
}

type Employment struct {
	LaborForce int
	Unemployed int
}

// Rate is the unemployment rate in percent.
func (e Employment) Rate() float64 {
	if e.LaborForce <= 0 {
		return 0
	}
	return float64(e.Unemployed) / float64(e.LaborForce) * 100
}

type Housing struct {
	MedianHomeValue int
	MedianGrossRent int
}

// Result holds whichever statistics could be fetched. Absent values are nil.
type Result struct {
	Location     Location
	MedianIncome *int
	Demographic  *Demographic
	Employment   *Employment
	Housing      *Housing
}

func (r Result) Empty() bool {
	return r.MedianIncome == nil && r.Demographic == nil && r.Employment == nil && r.Housing == nil
}

// Enricher gathers census statistics for a location.
type Enricher struct {
	census dataflows.CensusSource
	logger zerolog.Logger
}

func NewEnricher(census dataflows.CensusSource, logger zerolog.Logger) *Enricher {
	return &Enricher{
		census: census,
		logger: logger.With().Str("component", "enrichment").Logger(),
	}
}

// Enrich runs the four lookups concurrently. Every lookup that fails or
// finds nothing leaves its field nil.
func (e *Enricher) Enrich(ctx context.Context, loc Location) Result {
	res := Result{Location: loc}
	if !loc.Valid() {
		return res
	}
	fips, ok := dataflows.StateFIPS(loc.State)
	if !ok {
		e.logger.Warn().Str("state", loc.State).Msg("state not recognized")
		return res
	}
	inState := "state:" + fips

	var g errgroup.Group
	g.Go(func() error {
		res.MedianIncome = e.medianIncome(ctx, loc, inState)
		return nil
	})
	g.Go(func() error {
		row := e.placeRow(ctx, "demographic", loc, inState, []string{varPopulation, varMedianAge}, containsCity)
		if row == nil {
			return nil
		}
		pop, okPop := parseCount(row[1])
		age, okAge := parseFloat(row[2])
		if okPop && okAge {
			res.Demographic = &Demographic{Population: pop, MedianAge: age}
		}
		return nil
	})
	g.Go(func() error {
		row := e.placeRow(ctx, "employment", loc, inState, []string{varLaborForce, varUnemployed}, samePlace)
		if row == nil {
			return nil
		}
		labor, okLabor := parseCount(row[1])
		unemployed, okUnemp := parseCount(row[2])
		if okLabor && okUnemp && labor > 0 {
			res.Employment = &Employment{LaborForce: labor, Unemployed: unemployed}
		}
		return nil
	})
	g.Go(func() error {
		row := e.placeRow(ctx, "housing", loc, inState, []string{varMedianHomeValue, varMedianGrossRent}, containsCity)
		if row == nil {
			return nil
		}
		value, okValue := parseCount(row[1])
		rent, okRent := parseCount(row[2])
		if okValue && okRent {
			res.Housing = &Housing{MedianHomeValue: value, MedianGrossRent: rent}
		}
		return nil
	})
	_ = g.Wait()

	return res
}

// medianIncome prefers the metropolitan area row and falls back to the place.
func (e *Enricher) medianIncome(ctx context.Context, loc Location, inState string) *int {
	rows, err := e.census.Table(ctx, dataflows.CensusQuery{Variables: []string{varMedianIncome}, For: dataflows.GeoMetroArea})
	if err != nil {
		e.logFailure(err, "income_metro", loc)
	} else if row := findRow(rows, loc.City, metroInState(loc.State)); row != nil {
		if v, ok := parseCount(row[1]); ok {
			return &v
		}
		return nil
	}

	row := e.placeRow(ctx, "income_place", loc, inState, []string{varMedianIncome}, containsCity)
	if row == nil {
		return nil
	}
	if v, ok := parseCount(row[1]); ok {
		return &v
	}
	return nil
}

func (e *Enricher) placeRow(ctx context.Context, op string, loc Location, inState string, vars []string, match func(name, city string) bool) []string {
	rows, err := e.census.Table(ctx, dataflows.CensusQuery{Variables: vars, For: dataflows.GeoPlace, In: inState})
	if err != nil {
		e.logFailure(err, op, loc)
		return nil
	}
	row := findRow(rows, loc.City, match)
	if row == nil || len(row) < len(vars)+1 {
		e.logger.Debug().Str("op", op).Str("location", loc.String()).Msg("no census row for location")
		return nil
	}
	return row
}

func (e *Enricher) logFailure(err error, op string, loc Location) {
	e.logger.Warn().Err(err).
		Str("op", op).
		Str("kind", string(dataflows.KindOf(err))).
		Str("location", loc.String()).
		Msg("census lookup failed")
}

func findRow(rows [][]string, city string, match func(name, city string) bool) []string {
	city = strings.ToLower(strings.TrimSpace(city))
	if len(rows) < 2 || city == "" {
		return nil
	}
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		if match(strings.ToLower(row[0]), city) {
			return row
		}
	}
	return nil
}

func containsCity(name, city string) bool {
	return strings.Contains(name, city)
}

// metroInState matches "Portland-Vancouver-Hillsboro, OR-WA Metro Area" by
// city and by the state list after the last comma.
func metroInState(state string) func(name, city string) bool {
	abbr, ok := dataflows.StateAbbr(state)
	abbr = strings.ToLower(abbr)
	return func(name, city string) bool {
		if !containsCity(name, city) {
			return false
		}
		if !ok {
			return true
		}
		i := strings.LastIndex(name, ",")
		if i < 0 {
			return false
		}
		states := strings.Fields(name[i+1:])
		if len(states) == 0 {
			return false
		}
		for _, s := range strings.Split(states[0], "-") {
			if s == abbr {
				return true
			}
		}
		return false
	}
}

// samePlace compares the place part of "Oakland city, California" after
// dropping the census place-type suffix.
func samePlace(name, city string) bool {
	place := name
	if i := strings.Index(place, ","); i >= 0 {
		place = place[:i]
	}
	place = strings.TrimSpace(place)
	for _, suffix := range placeSuffixes {
		if strings.HasSuffix(place, suffix) {
			place = strings.TrimSuffix(place, suffix)
			break
		}
	}
	return place == city
}

// Census publishes large negative sentinels for suppressed cells.
func parseCount(raw string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

func parseFloat(raw string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
