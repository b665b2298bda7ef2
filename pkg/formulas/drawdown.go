package formulas

// DrawdownMetrics represents drawdown analysis results
type DrawdownMetrics struct {
	MaxDrawdown     float64 `json:"max_drawdown"`     // Maximum drawdown (as positive percentage, e.g., 0.25 = 25% drawdown)
	CurrentDrawdown float64 `json:"current_drawdown"` // Current drawdown from peak
	DaysInDrawdown  int     `json:"days_in_drawdown"` // Days since peak
	PeakValue       float64 `json:"peak_value"`       // Value at peak
	CurrentValue    float64 `json:"current_value"`    // Current value
}

// CalculateDrawdownMetrics calculates drawdown metrics from a price series
//
// Drawdown Formula:
//
//	Drawdown = (Peak Value - Current Value) / Peak Value
//	Max Drawdown = Maximum of all drawdowns
//
// Drawdowns are positive percentages (0.25 = 25% loss from peak).
// Returns nil if there is not enough data
func CalculateDrawdownMetrics(prices []float64) *DrawdownMetrics {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]
	peakIndex := 0
	currentValue := prices[len(prices)-1]

	for i, price := range prices {
		if price > peak {
			peak = price
			peakIndex = i
		}
		if peak > 0 {
			drawdown := (peak - price) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	currentDrawdown := 0.0
	if peak > 0 {
		currentDrawdown = (peak - currentValue) / peak
	}

	return &DrawdownMetrics{
		MaxDrawdown:     maxDrawdown,
		CurrentDrawdown: currentDrawdown,
		DaysInDrawdown:  len(prices) - 1 - peakIndex,
		PeakValue:       peak,
		CurrentValue:    currentValue,
	}
}

// Calculate52WeekHigh finds the 52-week high price
func Calculate52WeekHigh(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}

	// Take last 252 trading days (approximately 52 weeks)
	startIdx := 0
	if len(prices) > 252 {
		startIdx = len(prices) - 252
	}

	relevant := prices[startIdx:]
	high := relevant[0]
	for _, price := range relevant {
		if price > high {
			high = price
		}
	}

	return &high
}

// CalculateDistanceFrom52WeekHigh calculates how far below the 52-week high the current price is
// Returns positive percentage if below high (e.g., 0.20 = 20% below high)
func CalculateDistanceFrom52WeekHigh(prices []float64) *float64 {
	if len(prices) == 0 {
		return nil
	}

	high := Calculate52WeekHigh(prices)
	if high == nil || *high == 0 {
		return nil
	}

	currentPrice := prices[len(prices)-1]
	distance := (*high - currentPrice) / *high

	return &distance
}

// CalculateMomentum calculates price momentum over a period
// Returns percentage change over the period
func CalculateMomentum(prices []float64, days int) *float64 {
	if len(prices) < days+1 {
		return nil
	}

	startPrice := prices[len(prices)-days-1]
	endPrice := prices[len(prices)-1]
	if startPrice == 0 {
		return nil
	}

	momentum := (endPrice - startPrice) / startPrice
	return &momentum
}
