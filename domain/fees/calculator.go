// Package fees computes placement fees owed for a circumvented introduction.
package fees

import (
	"fmt"
	"math"

	"talentbridge/internal/errors"
)

// DefaultPercentage is the platform's standard placement fee.
const DefaultPercentage = 18.0

// Recalculate converts an estimated annual salary and a fee percentage into
// the fee amount owed, rounded to the nearest whole currency unit. It is pure
// and side-effect free; callers persist the result themselves.
func Recalculate(estimatedSalary float64, feePercentage float64) (float64, error) {
	if estimatedSalary <= 0 {
		return 0, errors.ValidationError(fmt.Sprintf("estimated salary must be positive, got %.2f", estimatedSalary))
	}
	if feePercentage <= 0 || feePercentage > 100 {
		return 0, errors.ValidationError(fmt.Sprintf("fee percentage must be in (0, 100], got %.2f", feePercentage))
	}
	return math.Round(estimatedSalary * feePercentage / 100), nil
}
