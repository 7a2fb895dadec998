package shared

import "github.com/shopspring/decimal"

// RoundCents rounds half-up to two decimal places. Every monetary rounding in
// the revenue engine goes through this helper so allocation and scheduling
// cannot diverge.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// SplitEven divides total into n cent-exact parts. Each part except the last
// is total/n rounded to the cent; the last part absorbs the remainder so the
// parts always sum back to total.
func SplitEven(total decimal.Decimal, n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	parts := make([]decimal.Decimal, n)
	share := RoundCents(total.Div(decimal.NewFromInt(int64(n))))
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = share
		allocated = allocated.Add(share)
	}
	parts[n-1] = total.Sub(allocated)
	return parts
}

// SplitProportional distributes total across weights by relative share. Each
// part except the last is round(total * w / sum(w)); the last absorbs the
// rounding remainder. A zero weight sum falls back to an even split.
func SplitProportional(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	n := len(weights)
	if n == 0 {
		return nil
	}
	weightSum := decimal.Zero
	for _, w := range weights {
		weightSum = weightSum.Add(w)
	}
	if weightSum.IsZero() {
		return SplitEven(total, n)
	}
	parts := make([]decimal.Decimal, n)
	allocated := decimal.Zero
	for i := 0; i < n-1; i++ {
		parts[i] = RoundCents(total.Mul(weights[i]).Div(weightSum))
		allocated = allocated.Add(parts[i])
	}
	parts[n-1] = total.Sub(allocated)
	return parts
}
