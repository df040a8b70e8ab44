// Package api is the typed client for the remote trip/expense HTTP
// service. It attaches the bearer credential from the session provider
// and translates non-2xx responses into typed errors. No caching
// happens here; the session manager owns the trip cache.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"tripexpense/internal/auth"
	"tripexpense/internal/core"
	applog "tripexpense/internal/log"
)

type Client struct {
	baseURL  string
	http     *http.Client
	sessions auth.Provider
	log      *applog.Logger
}

// New creates a client for the service at baseURL. The trailing slash
// is trimmed so paths can be joined naively.
func New(baseURL string, timeout time.Duration, sessions auth.Provider, logger *applog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base URL is required")
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentAPI)
	}
	return &Client{
		baseURL:  baseURL,
		http:     newHTTPClient(timeout),
		sessions: sessions,
		log:      logger,
	}, nil
}

// newHTTPClient builds a pooled transport with explicit timeouts so a
// stalled remote cannot pin a request forever.
func newHTTPClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// ListTrips returns the authoritative trip list in server order.
func (c *Client) ListTrips(ctx context.Context) ([]core.Trip, error) {
	var out struct {
		Trips []core.Trip `json:"trips"`
	}
	if err := c.do(ctx, http.MethodGet, "/trips", nil, &out, false); err != nil {
		return nil, err
	}
	return out.Trips, nil
}

// CreateTrip creates a trip; the server assigns the ID.
func (c *Client) CreateTrip(ctx context.Context, name string) (core.Trip, error) {
	if err := core.ValidateTripName(name); err != nil {
		return core.Trip{}, err
	}
	body := map[string]string{"name": strings.TrimSpace(name)}
	var out struct {
		Trip core.Trip `json:"trip"`
	}
	if err := c.do(ctx, http.MethodPost, "/trips", body, &out, true); err != nil {
		return core.Trip{}, err
	}
	return out.Trip, nil
}

// DeleteTrip removes a trip and, server-side, its expenses. Deletion
// of a missing trip is not guaranteed to succeed; callers decide how
// to treat a 404-class APIError.
func (c *Client) DeleteTrip(ctx context.Context, tripID string) (int, error) {
	var out struct {
		Message         string `json:"message"`
		DeletedExpenses int    `json:"deletedExpenses"`
	}
	path := "/trips/" + url.PathEscape(tripID)
	if err := c.do(ctx, http.MethodDelete, path, nil, &out, true); err != nil {
		return 0, err
	}
	return out.DeletedExpenses, nil
}

// ListExpenses returns the expenses of one trip, filtered server-side.
func (c *Client) ListExpenses(ctx context.Context, tripID string) ([]core.Expense, error) {
	var out struct {
		Expenses []core.Expense `json:"expenses"`
	}
	path := "/expenses?tripId=" + url.QueryEscape(tripID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out, false); err != nil {
		return nil, err
	}
	return out.Expenses, nil
}

// CreateExpense records an expense against a trip. The request carries
// the cost in decimal currency units; the response comes back with
// integer cents (the conversion is server-side).
func (c *Client) CreateExpense(ctx context.Context, tripID string, in core.ExpenseInput) (core.Expense, error) {
	if strings.TrimSpace(tripID) == "" {
		return core.Expense{}, &core.ValidationError{Field: "tripId", Reason: "no active trip"}
	}
	if err := in.Validate(); err != nil {
		return core.Expense{}, err
	}
	body := map[string]any{
		"tripId":      tripID,
		"date":        in.Date.String(),
		"description": in.Description,
		"whoPaid":     in.WhoPaid,
		"category":    in.Category,
		"cost":        in.Amount.Decimal(),
	}
	var out struct {
		Message string       `json:"message"`
		Expense core.Expense `json:"expense"`
	}
	if err := c.do(ctx, http.MethodPost, "/expenses", body, &out, true); err != nil {
		return core.Expense{}, err
	}
	return out.Expense, nil
}

// ExportCSV fetches the trip's expenses as a CSV document.
func (c *Client) ExportCSV(ctx context.Context, tripID string) ([]byte, error) {
	path := "/trips/" + url.PathEscape(tripID) + "/export"
	req, token, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, &AuthError{Reason: "no session token for export"}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("export trip %s: %w", tripID, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read export body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(resp.StatusCode, raw)
	}
	return raw, nil
}

// do runs one request/response cycle. Writes require a token up front;
// reads go out regardless and let the server reject anonymously.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, write bool) error {
	req, token, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if write && token == "" {
		return &AuthError{Reason: "no session token for " + method + " " + path}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	c.log.DebugContext(ctx, "API call completed",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, raw)
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, string, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	token := ""
	if c.sessions != nil {
		session, err := c.sessions.Session(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("fetch session: %w", err)
		}
		token = session.Token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, token, nil
}
