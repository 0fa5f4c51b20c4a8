package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCensusTable(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query()
		assert.Equal(t, "NAME,B19013_001E", q.Get("get"))
		assert.Equal(t, GeoPlace, q.Get("for"))
		assert.Equal(t, "state:06", q.Get("in"))
		assert.Equal(t, "k", q.Get("key"))
		_, _ = w.Write([]byte(`[["NAME","B19013_001E","state","place"],["Oakland city, California","73692","06","53000"]]`))
	}))
	t.Cleanup(srv.Close)

	cc := NewCensusClient("k", WithBaseURL(srv.URL), WithCache(NewCacheManager(t.TempDir(), time.Hour, true)))
	q := CensusQuery{Variables: []string{"B19013_001E"}, For: GeoPlace, In: "state:06"}

	rows, err := cc.Table(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Oakland city, California", rows[1][0])

	_, err = cc.Table(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCensusTableFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("for") == GeoPlace {
			_, _ = w.Write([]byte(`error: unknown variable`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	cc := NewCensusClient("", WithBaseURL(srv.URL))
	_, err := cc.Table(context.Background(), CensusQuery{Variables: []string{"X"}, For: GeoPlace})
	assert.Equal(t, KindMalformed, KindOf(err))

	_, err = cc.Table(context.Background(), CensusQuery{Variables: []string{"X"}, For: GeoMetroArea})
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestStateLookups(t *testing.T) {
	code, ok := StateFIPS("california")
	assert.True(t, ok)
	assert.Equal(t, "06", code)

	code, ok = StateFIPS(" TX ")
	assert.True(t, ok)
	assert.Equal(t, "48", code)

	abbr, ok := StateAbbr("New York")
	assert.True(t, ok)
	assert.Equal(t, "NY", abbr)

	_, ok = StateFIPS("Atlantis")
	assert.False(t, ok)
}
