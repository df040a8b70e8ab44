package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tripexpense/internal/auth"
	"tripexpense/internal/core"
)

type staticSessions struct {
	token string
}

func (s staticSessions) Session(context.Context) (auth.Session, error) {
	return auth.Session{Token: s.token}, nil
}

func newTestClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 5*time.Second, staticSessions{token: token}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestListTrips(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trips" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header: %q", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Errorf("missing request id header")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"trips": []map[string]string{
				{"tripId": "t1", "name": "Hawaii"},
				{"tripId": "t2", "name": "Alps"},
			},
		})
	}), "tok")

	trips, err := c.ListTrips(context.Background())
	if err != nil {
		t.Fatalf("list trips: %v", err)
	}
	if len(trips) != 2 || trips[0].ID != "t1" || trips[1].Name != "Alps" {
		t.Fatalf("unexpected trips: %+v", trips)
	}
}

func TestCreateTrip(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["name"] != "Hawaii" {
			t.Errorf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"trip": map[string]string{"tripId": "t9", "name": "Hawaii"},
		})
	}), "tok")

	trip, err := c.CreateTrip(context.Background(), " Hawaii ")
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}
	if trip.ID != "t9" || trip.Name != "Hawaii" {
		t.Fatalf("unexpected trip: %+v", trip)
	}
}

func TestCreateTripBlankNameNoNetworkCall(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}), "tok")

	var ve *core.ValidationError
	if _, err := c.CreateTrip(context.Background(), "   "); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected zero network calls, got %d", calls)
	}
}

func TestWriteWithoutTokenFailsBeforeNetwork(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}), "")

	var authErr *AuthError
	if _, err := c.CreateTrip(context.Background(), "Hawaii"); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected zero network calls, got %d", calls)
	}
}

func TestReadWithoutTokenStillGoesOut(t *testing.T) {
	calls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no auth header")
		}
		_, _ = w.Write([]byte(`{"trips":[]}`))
	}), "")

	if _, err := c.ListTrips(context.Background()); err != nil {
		t.Fatalf("list trips: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the read to reach the server")
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"json message", 400, `{"message":"name taken"}`, "name taken"},
		{"json error", 403, `{"error":"forbidden"}`, "forbidden"},
		{"raw text", 500, "boom", "boom"},
		{"empty body", 502, "", "request failed (502)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}), "tok")

			_, err := c.ListTrips(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != tc.status || apiErr.Message != tc.want {
				t.Fatalf("unexpected error: %+v", apiErr)
			}
		})
	}
}

func TestDeleteTrip(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/trips/t1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "deleted", "deletedExpenses": 4})
	}), "tok")

	n, err := c.DeleteTrip(context.Background(), "t1")
	if err != nil {
		t.Fatalf("delete trip: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 deleted expenses, got %d", n)
	}
}

func TestDeleteTripNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
		_, _ = w.Write([]byte(`{"message":"trip not found"}`))
	}), "tok")

	_, err := c.DeleteTrip(context.Background(), "gone")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found APIError, got %v", err)
	}
}

func TestCreateExpenseCostUnits(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["cost"] != 12.5 {
			t.Errorf("expected decimal cost 12.5, got %v", body["cost"])
		}
		if body["tripId"] != "t1" || body["date"] != "2026-08-01" {
			t.Errorf("unexpected body: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": "created",
			"expense": map[string]any{
				"expenseId":   "e1",
				"tripId":      "t1",
				"date":        "2026-08-01",
				"description": "Lunch",
				"whoPaid":     "Sam",
				"category":    "Food",
				"costCents":   1250,
			},
		})
	}), "tok")

	exp, err := c.CreateExpense(context.Background(), "t1", core.ExpenseInput{
		Date:        core.NewDate(2026, 8, 1),
		Description: "Lunch",
		WhoPaid:     "Sam",
		Category:    "Food",
		Amount:      core.Money{Cents: 1250},
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	if exp.ID != "e1" || exp.Amount.Cents != 1250 {
		t.Fatalf("unexpected expense: %+v", exp)
	}
	if exp.Amount.Dollars() != "$12.50" {
		t.Fatalf("expected $12.50 display, got %s", exp.Amount.Dollars())
	}
}

func TestExportCSV(t *testing.T) {
	csv := "date,description,cost\n2026-08-01,Lunch,12.50\n"
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trips/t1/export" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(csv))
	}), "tok")

	raw, err := c.ExportCSV(context.Background(), "t1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if string(raw) != csv {
		t.Fatalf("unexpected csv: %q", raw)
	}
}

func TestExportCSVRequiresToken(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("export should not reach the server without a token")
	}), "")

	var authErr *AuthError
	if _, err := c.ExportCSV(context.Background(), "t1"); !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestPathEscaping(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.EscapedPath(), "/trips/a%2Fb") {
			t.Errorf("trip id not kept as a single path segment: %s", r.URL.EscapedPath())
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "ok", "deletedExpenses": 0})
	}), "tok")

	if _, err := c.DeleteTrip(context.Background(), "a/b"); err != nil {
		t.Fatalf("delete trip: %v", err)
	}
}
