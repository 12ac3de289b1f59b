package config

import "github.com/shopspring/decimal"

// Cost and average-price divisions carry 28 significant digits. The library
// default is 16, which truncates repeating fractions too early for nested
// recipe costing.
func init() {
	decimal.DivisionPrecision = 28
}
