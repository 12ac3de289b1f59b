package config

import (
	"os"
	"strings"
)

// StrictUnitConversions makes a missing unit-conversion factor an error
// instead of silently falling back to factor 1 during recipe costing.
//
// Set via env:
// - STRICT_UNIT_CONVERSIONS=true
func StrictUnitConversions() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_UNIT_CONVERSIONS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// DisableRecipeCycleCheck skips the write-time sub-recipe cycle rejection.
// Only meant for data-repair sessions where an operator needs to re-point
// edges in several steps.
//
// Set via env:
// - DISABLE_RECIPE_CYCLE_CHECK=true
func DisableRecipeCycleCheck() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DISABLE_RECIPE_CYCLE_CHECK")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
