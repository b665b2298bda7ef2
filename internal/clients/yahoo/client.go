package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/optifolio/internal/modules/market"
)

// Client is a Yahoo Finance API client
type Client struct {
	client  *http.Client
	baseURL string
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: "https://query1.finance.yahoo.com",
		log:     log.With().Str("client", "yahoo").Logger(),
	}
}

// chartResponse is the shape of the v8 chart API payload
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

// GetDailyCloses fetches daily adjusted closes for a symbol between start
// and end. It satisfies the scheduler's price source contract.
func (c *Client) GetDailyCloses(ctx context.Context, symbol string, start, end time.Time) ([]market.PricePoint, error) {
	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol)

	params := url.Values{}
	params.Add("interval", "1d")
	params.Add("period1", strconv.FormatInt(start.Unix(), 10))
	params.Add("period2", strconv.FormatInt(end.Unix(), 10))
	params.Add("events", "div,splits")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Yahoo Finance API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Chart.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Chart.Error)
	}
	if len(result.Chart.Result) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No chart data returned")
		return nil, nil
	}

	chart := result.Chart.Result[0]
	if len(chart.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in response")
		return nil, nil
	}

	closes := chart.Indicators.Quote[0].Close
	var adjCloses []float64
	if len(chart.Indicators.AdjClose) > 0 {
		adjCloses = chart.Indicators.AdjClose[0].AdjClose
	}

	points := make([]market.PricePoint, 0, len(chart.Timestamp))
	for i, ts := range chart.Timestamp {
		if i >= len(closes) || closes[i] == 0 {
			// Yahoo sometimes returns null values
			continue
		}
		close := closes[i]
		if i < len(adjCloses) && adjCloses[i] != 0 {
			close = adjCloses[i]
		}
		points = append(points, market.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: close,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("count", len(points)).
		Msg("Fetched daily closes")

	return points, nil
}
