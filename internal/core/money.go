// Package core holds the client-side domain model: trips, expenses,
// dates, and money amounts in integer minor units.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a non-negative amount in cents. The remote API accepts
// decimal currency units on write and returns integer cents on read;
// all client-side arithmetic stays in cents.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "cost", Reason: "cost must be a positive amount"}
	}
	return nil
}

// MarshalJSON emits the raw cent count, matching the API's costCents field.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var cents int64
	if err := json.Unmarshal(b, &cents); err != nil {
		return fmt.Errorf("cost cents: %w", err)
	}
	m.Cents = cents
	return nil
}

// Decimal returns the amount in decimal currency units for request
// bodies (the API converts to cents server-side).
func (m Money) Decimal() float64 {
	return float64(m.Cents) / 100.0
}

// Dollars formats the amount for display, e.g. "$12.50".
func (m Money) Dollars() string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both "12.50" and "12,50" are
// accepted; negative and zero amounts are rejected.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Field: "cost", Reason: "cost is required"}
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, &ValidationError{Field: "cost", Reason: "cost must be a positive amount"}
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, &ValidationError{Field: "cost", Reason: "not a valid amount"}
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, &ValidationError{Field: "cost", Reason: "not a valid amount"}
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "cost", Reason: "not a valid amount"}
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, &ValidationError{Field: "cost", Reason: "amount too large"}
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	cents := iv*100 + fracCents
	if cents <= 0 {
		return 0, &ValidationError{Field: "cost", Reason: "cost must be a positive amount"}
	}
	return cents, nil
}
