package trader

import "github.com/shopspring/decimal"

// SnapToStep floors qty to the nearest multiple of step. Done in decimal:
// float64 modulo misbehaves exactly at step boundaries, which is where
// exchange filters reject orders.
func SnapToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	q := decimal.NewFromFloat(qty)
	s := decimal.NewFromFloat(step)
	snapped := q.Div(s).Floor().Mul(s)
	f, _ := snapped.Float64()
	return f
}

// RoundToTick rounds price to the given number of decimal places.
func RoundToTick(price float64, precision int32) float64 {
	f, _ := decimal.NewFromFloat(price).Round(precision).Float64()
	return f
}

// FormatQty renders a quantity with exactly the precision implied by the
// step size, as exchanges require in order payloads.
func FormatQty(qty, step float64) string {
	prec := stepPrecision(step)
	return decimal.NewFromFloat(qty).Truncate(prec).StringFixed(prec)
}

// FormatPrice renders a price at the given precision.
func FormatPrice(price float64, precision int32) string {
	return decimal.NewFromFloat(price).Round(precision).StringFixed(precision)
}

// stepPrecision derives the decimal places of a step size, e.g. 0.001 -> 3.
func stepPrecision(step float64) int32 {
	if step <= 0 {
		return 8
	}
	d := decimal.NewFromFloat(step)
	return -d.Exponent()
}
