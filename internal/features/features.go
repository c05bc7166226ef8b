// Package features defines the applicant attributes the models are trained on
// and the conversions between request payloads and ordered feature vectors.
package features

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
)

const (
	MonthlyIncome      = "monthlyIncome"
	MonthlyDebtPayment = "monthlyDebtPayment"
	CreditUtilization  = "creditUtilization"
	SavingsBalance     = "savingsBalance"
	EmploymentYears    = "employmentYears"
	ExistingLoans      = "existingLoans"
	CreditHistoryYears = "creditHistoryYears"
	DesiredLoanAmount  = "desiredLoanAmount"
)

// Names is the canonical training order. Model coefficients are indexed
// positionally against it.
var Names = []string{
	MonthlyIncome,
	MonthlyDebtPayment,
	CreditUtilization,
	SavingsBalance,
	EmploymentYears,
	ExistingLoans,
	CreditHistoryYears,
	DesiredLoanAmount,
}

var labels = map[string]string{
	MonthlyIncome:      "Monthly income",
	MonthlyDebtPayment: "Monthly debt payment",
	CreditUtilization:  "Credit utilization",
	SavingsBalance:     "Savings buffer",
	EmploymentYears:    "Employment stability",
	ExistingLoans:      "Number of existing loans",
	CreditHistoryYears: "Credit history length",
	DesiredLoanAmount:  "Desired loan amount",
}

// Label returns the display label for a feature, falling back to the raw
// identifier.
func Label(name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}

// IsKnown reports whether name is one of the canonical features.
func IsKnown(name string) bool {
	_, ok := labels[name]
	return ok
}

// Profile is a sparse mapping from feature name to value (or delta).
type Profile map[string]float64

// Get returns the value for name, 0 when absent.
func (p Profile) Get(name string) float64 {
	return p[name]
}

// Apply returns a copy of p with every adjustment added to the matching entry.
// Entries absent from p start at 0; p itself is not modified.
func (p Profile) Apply(adjustments Profile) Profile {
	out := make(Profile, len(p)+len(adjustments))
	for k, v := range p {
		out[k] = v
	}
	for k, d := range adjustments {
		out[k] = out[k] + d
	}
	return out
}

// CheckFinite rejects a profile holding an infinite or NaN value, which a
// sum of two large finite values can produce.
func (p Profile) CheckFinite() error {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if v := p[k]; math.IsNaN(v) || math.IsInf(v, 0) {
			return apperr.Validation(k, "adjusted value overflows")
		}
	}
	return nil
}

// CheckComplete requires every canonical feature, as a saved profile must
// carry all of them.
func (p Profile) CheckComplete() error {
	for _, name := range Names {
		if _, ok := p[name]; !ok {
			return apperr.Validation(name, "is required")
		}
	}
	return nil
}

// ParseProfile coerces a decoded JSON object into a Profile.
//
// Numbers, numeric strings and booleans are accepted; null counts as absent.
// A canonical feature carrying anything else is a validation error. Other keys
// that cannot be coerced are dropped, since callers routinely send whole
// stored documents (ids, timestamps) alongside the attributes.
func ParseProfile(raw map[string]any) (Profile, error) {
	out := make(Profile, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			if IsKnown(k) {
				return nil, apperr.Validation(k, "expected a number, got %s", describe(v))
			}
			continue
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, apperr.Validation(k, "must be a finite number")
		}
		out[k] = f
	}
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "a non-numeric string"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	default:
		return "an unsupported value"
	}
}
