package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const censusBaseURL = "https://api.census.gov/data/2019/acs/acs5"

// Geography selectors used against the ACS 5-year tables.
const (
	GeoMetroArea = "metropolitan statistical area/micropolitan statistical area:*"
	GeoPlace     = "place:*"
)

// CensusQuery selects variables for every area of one geography level.
type CensusQuery struct {
	Variables []string `json:"variables"`
	For       string   `json:"for"`
	In        string   `json:"in,omitempty"`
}

// CensusClient reads the ACS 5-year API. Responses are cached for the cache
// manager's TTL.
type CensusClient struct {
	client *resty.Client
	cache  *CacheManager
	retry  *RetryConfig
	apiKey string
}

func NewCensusClient(apiKey string, opts ...ClientOption) *CensusClient {
	o := buildOptions(censusBaseURL, opts)
	return &CensusClient{
		client: newRestyClient(o),
		cache:  o.cache,
		retry:  o.retry,
		apiKey: apiKey,
	}
}

// Table returns the raw rows of the response. The first row is the header;
// NAME is always the first column followed by the requested variables.
func (cc *CensusClient) Table(ctx context.Context, q CensusQuery) ([][]string, error) {
	if len(q.Variables) == 0 || q.For == "" {
		return nil, fmt.Errorf("census query needs variables and a geography")
	}

	var rows [][]string
	if cc.cache.Get("census", "table", q, &rows) {
		return rows, nil
	}

	params := map[string]string{
		"get": "NAME," + strings.Join(q.Variables, ","),
		"for": q.For,
	}
	if q.In != "" {
		params["in"] = q.In
	}
	if cc.apiKey != "" {
		params["key"] = cc.apiKey
	}

	err := WithRetry(ctx, cc.retry, func() error {
		resp, err := cc.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get("")
		if err != nil {
			return unavailable("census", "table", err)
		}
		if resp.StatusCode() == 204 {
			return noData("census", "table", "no rows for %s", q.For)
		}
		if resp.StatusCode() != 200 {
			return statusError("census", "table", resp.StatusCode())
		}
		if err := json.Unmarshal(resp.Body(), &rows); err != nil {
			return malformed("census", "table", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, noData("census", "table", "no rows for %s", q.For)
	}

	_ = cc.cache.Set("census", "table", q, rows)
	return rows, nil
}
