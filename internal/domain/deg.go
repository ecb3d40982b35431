package domain

import "github.com/shopspring/decimal"

// Deg is a degree (or degrees-per-day) value that serializes rounded to
// two decimal places. Internal computation always runs on the full
// float64 precision; rounding happens only here, at the JSON boundary,
// so dependent formulas never compound rounding error.
type Deg float64

// MarshalJSON renders the value with exactly the rounding the engine
// promises: half-away-from-zero to two decimals, no exponent notation.
func (d Deg) MarshalJSON() ([]byte, error) {
	return []byte(decimal.NewFromFloat(float64(d)).Round(2).String()), nil
}

// UnmarshalJSON accepts any numeric literal.
func (d *Deg) UnmarshalJSON(data []byte) error {
	dec, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	f, _ := dec.Float64()
	*d = Deg(f)
	return nil
}

// Round2 returns the value after the serialization rounding policy,
// for callers that compare numbers instead of bytes.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
