package market

import "math"

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// CloseVolatility returns the volatility of a close-price series as a
// percentage: stddev(closes) / mean(closes) * 100. Returns 0 when the series
// is too short or the mean is zero.
func CloseVolatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	mean := Mean(closes)
	if mean == 0 {
		return 0
	}
	return StdDev(closes) / mean * 100
}

// ReturnVolatility returns the standard deviation of simple returns of a
// close-price series, as a percentage.
func ReturnVolatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	return StdDev(returns) * 100
}

// SMA returns the simple moving average of the last n values.
// Returns 0 when fewer than n values are available.
func SMA(values []float64, n int) float64 {
	if n <= 0 || len(values) < n {
		return 0
	}
	return Mean(values[len(values)-n:])
}
