package http

import (
	"net"
	"net/http"
	"strings"

	"tripexpense/internal/core"
)

// clientIP resolves the originating address, trusting proxy headers
// before falling back to the socket peer.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseExpenseForm maps the submitted expense form onto an
// ExpenseInput. Field-level validation is left to the input itself;
// only shape errors (bad date, unparsable cost) surface here.
func parseExpenseForm(r *http.Request) (core.ExpenseInput, error) {
	date, err := core.ParseDate(r.Form.Get("date"))
	if err != nil {
		return core.ExpenseInput{}, err
	}
	cents, err := core.ParseDecimalToCents(r.Form.Get("cost"))
	if err != nil {
		return core.ExpenseInput{}, err
	}
	in := core.ExpenseInput{
		Date:        date,
		Description: strings.TrimSpace(r.Form.Get("description")),
		WhoPaid:     strings.TrimSpace(r.Form.Get("whoPaid")),
		Category:    r.Form.Get("category"),
		Amount:      core.Money{Cents: cents},
	}
	if err := in.Validate(); err != nil {
		return core.ExpenseInput{}, err
	}
	return in, nil
}
