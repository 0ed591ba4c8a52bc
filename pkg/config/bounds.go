package config

import "math"

// MaxTokensLimit is the upper bound for max_tokens and the approximate
// context budget used when trimming a transcript.
const MaxTokensLimit = 4096

// UnitInterval is a float64 confined to [0, 1]. The zero value is 0.
type UnitInterval struct{ v float64 }

// NewUnitInterval clamps f into [0, 1]. NaN becomes 0.
func NewUnitInterval(f float64) UnitInterval {
	return UnitInterval{v: clampFloat(f, 0, 1)}
}

// Float64 returns the stored value.
func (u UnitInterval) Float64() float64 { return u.v }

// Penalty is a float64 confined to [-2, 2]. The zero value is 0.
type Penalty struct{ v float64 }

// NewPenalty clamps f into [-2, 2]. NaN becomes -2.
func NewPenalty(f float64) Penalty {
	return Penalty{v: clampFloat(f, -2, 2)}
}

// Float64 returns the stored value.
func (p Penalty) Float64() float64 { return p.v }

// TokenCap is an int confined to [0, MaxTokensLimit]. The zero value is 0.
type TokenCap struct{ v int }

// NewTokenCap clamps n into [0, MaxTokensLimit].
func NewTokenCap(n int) TokenCap {
	return TokenCap{v: min(max(n, 0), MaxTokensLimit)}
}

// Int returns the stored value.
func (t TokenCap) Int() int { return t.v }

func clampFloat(f, lo, hi float64) float64 {
	if math.IsNaN(f) {
		return lo
	}
	return math.Max(lo, math.Min(f, hi))
}
