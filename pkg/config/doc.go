// Package config holds the request parameters a pollen session sends with
// every completion.
//
// It contains:
//   - [Config]: the mutable parameter set with one validating setter per field
//   - [UnitInterval], [Penalty] and [TokenCap]: bounded numeric types that clamp on construction
//   - [ValidationError]: returned when a value is rejected
//   - [File] and [LoadFile]: YAML configuration with ${VAR} expansion
//
// Clamped fields and the temperature field deliberately differ: out-of-range
// top_p, penalties and max_tokens are pulled to the nearest bound, while an
// out-of-range temperature is rejected and the previous value kept.
package config
