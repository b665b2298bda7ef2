package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(zerolog.Nop())
	c.baseURL = srv.URL
	return c
}

func TestClient_GetDailyCloses_PrefersAdjustedClose(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/AAPL", r.URL.Path)
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		assert.NotEmpty(t, r.URL.Query().Get("period1"))
		assert.NotEmpty(t, r.URL.Query().Get("period2"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1672617600,1672704000],
			"indicators":{
				"quote":[{"close":[130.0,0]}],
				"adjclose":[{"adjclose":[129.5,125.0]}]
			}
		}],"error":null}}`))
	})

	points, err := c.GetDailyCloses(context.Background(), "AAPL",
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// The zero close is dropped, the non-zero one uses the adjusted value.
	require.Len(t, points, 1)
	assert.Equal(t, 129.5, points[0].Close)
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), points[0].Date)
}

func TestClient_GetDailyCloses_NoAdjustedClose(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1672617600],
			"indicators":{"quote":[{"close":[130.0]}]}
		}],"error":null}}`))
	})

	points, err := c.GetDailyCloses(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 130.0, points[0].Close)
}

func TestClient_GetDailyCloses_APIError(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":{"code":"Not Found","description":"No data found"}}}`))
	})

	_, err := c.GetDailyCloses(context.Background(), "NOPE", time.Now().AddDate(0, 0, -7), time.Now())
	assert.Error(t, err)
}

func TestClient_GetDailyCloses_HTTPError(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.GetDailyCloses(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_GetDailyCloses_EmptyResult(t *testing.T) {
	c := newStubClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
	})

	points, err := c.GetDailyCloses(context.Background(), "AAPL", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.Empty(t, points)
}
