package enrichment

import (
	"context"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/dyike/audney/internal/dataflows"
	"github.com/dyike/audney/internal/llm"
	"github.com/dyike/audney/internal/models"
)

// Location is a city with its postal state abbreviation.
type Location struct {
	City  string
	State string
}

func (l Location) Valid() bool {
	return l.City != "" && l.State != ""
}

func (l Location) String() string {
	return l.City + ", " + l.State
}

var cityStatePattern = regexp.MustCompile(`([A-Za-z][A-Za-z .'-]*),\s?(AL|AK|AZ|AR|CA|CO|CT|DC|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY)\b`)

// LocationExtractor finds the place a question is about.
type LocationExtractor struct {
	model  model.BaseChatModel
	system string
	logger zerolog.Logger
}

func NewLocationExtractor(cm model.BaseChatModel, logger zerolog.Logger) *LocationExtractor {
	return &LocationExtractor{
		model:  cm,
		system: llm.MustLoadPrompt(llm.PromptExtractLocation),
		logger: logger.With().Str("component", "location").Logger(),
	}
}

// Resolve returns the location named in text, falling back to the profile's
// city and state when the text names none.
func (e *LocationExtractor) Resolve(ctx context.Context, text string, profile *models.UserProfile) Location {
	if loc, ok := e.Extract(ctx, text); ok {
		return loc
	}
	if profile == nil {
		return Location{}
	}
	loc := Location{City: strings.TrimSpace(profile.City), State: strings.TrimSpace(profile.State)}
	if abbr, ok := dataflows.StateAbbr(loc.State); ok {
		loc.State = abbr
	}
	return loc
}

// Extract asks the model for "City, State" and, when the answer is unusable,
// scans the text for a "City, ST" pair.
func (e *LocationExtractor) Extract(ctx context.Context, text string) (Location, bool) {
	if strings.TrimSpace(text) == "" {
		return Location{}, false
	}
	raw, err := llm.Complete(ctx, e.model, e.system, text)
	if err != nil {
		e.logger.Debug().Err(err).Msg("location extraction failed")
	} else if loc, ok := ParseLocation(raw); ok {
		return loc, true
	}

	if m := cityStatePattern.FindStringSubmatch(text); m != nil {
		return Location{City: lastWords(m[1]), State: m[2]}, true
	}
	return Location{}, false
}

// ParseLocation accepts "City, State" with a state name or abbreviation.
func ParseLocation(raw string) (Location, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"'.`)
	i := strings.LastIndex(raw, ",")
	if i <= 0 {
		return Location{}, false
	}
	city := strings.TrimSpace(raw[:i])
	abbr, ok := dataflows.StateAbbr(raw[i+1:])
	if !ok || city == "" || strings.EqualFold(city, "none") {
		return Location{}, false
	}
	return Location{City: city, State: abbr}, true
}

// lastWords keeps the trailing capitalized words of a regex capture so that
// "I live in San Jose" yields "San Jose".
func lastWords(s string) string {
	words := strings.Fields(s)
	start := len(words)
	for start > 0 {
		w := words[start-1]
		if w == "" || w[0] < 'A' || w[0] > 'Z' {
			break
		}
		start--
	}
	if start == len(words) {
		return strings.TrimSpace(s)
	}
	return strings.Join(words[start:], " ")
}
