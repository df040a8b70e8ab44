package core

import (
	"strings"
	"time"
)

type (
	// Trip is a named grouping of expenses. The remote service owns the
	// record and assigns the ID; the client holds a cached copy.
	Trip struct {
		ID        string    `json:"tripId"`
		Name      string    `json:"name"`
		CreatedAt time.Time `json:"createdAt,omitempty"`
	}

	// Expense is a single monetary entry scoped to exactly one trip.
	// Expenses are created by this client but never edited or deleted.
	Expense struct {
		ID          string `json:"expenseId"`
		TripID      string `json:"tripId"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		WhoPaid     string `json:"whoPaid"`
		Category    string `json:"category"`
		Amount      Money  `json:"costCents"`
	}

	Date struct {
		time.Time
	}
)

// Categories offered by the expense form. The server treats the
// category as an open set; this list only seeds the UI.
var Categories = []string{
	"Lodging",
	"Gas",
	"Food",
	"Coffee",
	"Groceries",
	"Activities",
	"Park Fees",
	"Transit / Parking",
	"Shopping",
	"Flights",
	"Rental Car",
	"Misc",
}

// ValidationError reports a client-side rejection of user input,
// raised before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return Date{Time: t}, nil
}

// MarshalJSON encodes the date as a plain YYYY-MM-DD string, which is
// the wire form the remote API uses.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return &ValidationError{Field: "date", Reason: "date is required"}
	}
	return nil
}

// ValidateTripName rejects blank trip names before they reach the API.
func ValidateTripName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Reason: "trip name cannot be blank"}
	}
	if len(name) > 100 {
		return &ValidationError{Field: "name", Reason: "trip name too long (max 100 characters)"}
	}
	return nil
}

// ExpenseInput is the user-entered form of an expense, prior to server
// assignment of an ID. The cost travels as decimal currency units; the
// server stores and returns integer cents.
type ExpenseInput struct {
	Date        Date
	Description string
	WhoPaid     string
	Category    string
	Amount      Money
}

func (in ExpenseInput) Validate() error {
	if err := in.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Description) == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if len(in.Description) > 200 {
		return &ValidationError{Field: "description", Reason: "description too long (max 200 characters)"}
	}
	if strings.TrimSpace(in.WhoPaid) == "" {
		return &ValidationError{Field: "whoPaid", Reason: "who paid is required"}
	}
	if strings.TrimSpace(in.Category) == "" {
		return &ValidationError{Field: "category", Reason: "category is required"}
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	return nil
}
