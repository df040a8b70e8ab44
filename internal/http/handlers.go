package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"tripexpense/internal/api"
	"tripexpense/internal/auth"
	"tripexpense/internal/core"
	applog "tripexpense/internal/log"
)

// pageData is the view model shared by every page.
type pageData struct {
	Title        string
	DisplayName  string
	Trips        []core.Trip
	ActiveTripID string
	ActiveTrip   core.Trip
	HasActive    bool
	Loading      bool
	Notice       string
	Error        string
}

type summaryData struct {
	pageData
	Overview core.TripOverview
	Expenses []core.Expense
	HasChart bool
}

type expenseFormData struct {
	pageData
	Categories []string
}

type settingsData struct {
	pageData
	Authenticated bool
}

func (s *Server) basePage(r *http.Request, title string) pageData {
	data := pageData{
		Title:        title,
		Trips:        s.manager.Trips(),
		ActiveTripID: s.manager.ActiveTripID(),
		Loading:      s.manager.Loading(),
		Notice:       r.URL.Query().Get("notice"),
		Error:        r.URL.Query().Get("error"),
	}
	if trip, ok := s.manager.ActiveTrip(); ok {
		data.ActiveTrip = trip
		data.HasActive = true
	}
	return data
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data := summaryData{pageData: s.basePage(r, "Summary")}

	g, ctx := errgroup.WithContext(r.Context())
	var sess auth.Session
	g.Go(func() error {
		var err error
		sess, err = s.sessions.Session(ctx)
		if err != nil {
			s.log.WarnContext(ctx, "Session fetch failed", applog.FieldError, err)
		}
		return nil
	})

	var expenses []core.Expense
	var expErr error
	if data.ActiveTripID != "" {
		tripID := data.ActiveTripID
		g.Go(func() error {
			expenses, expErr = s.cachedExpenses(ctx, tripID)
			return nil
		})
	}
	_ = g.Wait()

	data.DisplayName = sess.DisplayName
	if expErr != nil {
		s.log.ErrorContext(r.Context(), "Expense list failed",
			applog.FieldTripID, data.ActiveTripID,
			applog.FieldError, expErr)
		if data.Error == "" {
			data.Error = expErr.Error()
		}
	} else if data.ActiveTripID != "" {
		data.Expenses = expenses
		data.Overview = core.Summarize(data.ActiveTripID, expenses)
		data.HasChart = len(data.Overview.ByCategory) > 0
	}

	s.render(w, r, "index.html", data)
}

func (s *Server) handleAddTrip(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectFlash(w, r, "/", "", "Invalid form submission")
		return
	}

	name := r.Form.Get("name")
	trip, err := s.manager.AddTrip(r.Context(), name)
	if err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			redirectFlash(w, r, "/", "", ve.Reason)
			return
		}
		s.log.ErrorContext(r.Context(), "Add trip failed",
			applog.FieldTripName, name,
			applog.FieldError, err)
		redirectFlash(w, r, "/", "", err.Error())
		return
	}
	redirectFlash(w, r, "/", fmt.Sprintf("Trip %q created", trip.Name), "")
}

func (s *Server) handleSelectTrip(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectFlash(w, r, "/", "", "Invalid form submission")
		return
	}
	s.manager.SetActiveTripID(r.Context(), r.Form.Get("tripId"))
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

// handleDeleteTrip orchestrates the two-step delete: remote delete
// first, local invalidation only after it succeeds. A 404-class reply
// means the trip was already gone; local state is still invalidated.
func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectFlash(w, r, "/settings", "", "Invalid form submission")
		return
	}
	tripID := r.Form.Get("tripId")
	if tripID == "" {
		redirectFlash(w, r, "/settings", "", "No trip selected")
		return
	}

	notice := ""
	deleted, err := s.api.DeleteTrip(r.Context(), tripID)
	switch {
	case err == nil:
		notice = fmt.Sprintf("Trip deleted (%d expenses removed)", deleted)
	case api.IsNotFound(err):
		notice = "Trip was already deleted on the server"
		s.log.WarnContext(r.Context(), "Delete of missing trip",
			applog.FieldTripID, tripID,
			applog.FieldError, err)
	default:
		s.log.ErrorContext(r.Context(), "Delete trip failed",
			applog.FieldTripID, tripID,
			applog.FieldError, err)
		redirectFlash(w, r, "/settings", "", err.Error())
		return
	}

	s.manager.RemoveLocal(r.Context(), tripID)
	s.expenseCache.Delete(tripID)

	// Re-fetch so the next page render has an authoritative list and a
	// freshly reconciled selection. Best effort; the delete succeeded.
	if err := s.manager.Refresh(r.Context()); err != nil {
		s.log.WarnContext(r.Context(), "Post-delete refresh failed", applog.FieldError, err)
	}
	redirectFlash(w, r, "/settings", notice, "")
}

func (s *Server) handleExpenseForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data := expenseFormData{
		pageData:   s.basePage(r, "Add Expense"),
		Categories: core.Categories,
	}
	data.DisplayName = s.displayName(r)
	s.render(w, r, "expenses.html", data)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		redirectFlash(w, r, "/expenses/new", "", "Invalid form submission")
		return
	}

	tripID := s.manager.ActiveTripID()
	if tripID == "" {
		redirectFlash(w, r, "/expenses/new", "", "Select a trip before adding expenses")
		return
	}

	in, err := parseExpenseForm(r)
	if err != nil {
		redirectFlash(w, r, "/expenses/new", "", err.Error())
		return
	}

	exp, err := s.api.CreateExpense(r.Context(), tripID, in)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Create expense failed",
			applog.FieldTripID, tripID,
			applog.FieldError, err)
		redirectFlash(w, r, "/expenses/new", "", err.Error())
		return
	}

	s.expenseCache.Delete(tripID)
	s.log.InfoContext(r.Context(), "Expense created",
		applog.FieldExpenseID, exp.ID,
		applog.FieldTripID, tripID,
		applog.FieldCategory, exp.Category,
		applog.FieldAmount, exp.Amount.Cents)
	redirectFlash(w, r, "/expenses/new", fmt.Sprintf("Added %s (%s)", exp.Description, exp.Amount.Dollars()), "")
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	tripID := s.manager.ActiveTripID()
	if override := r.URL.Query().Get("tripId"); override != "" {
		tripID = override
	}
	if tripID == "" {
		redirectFlash(w, r, "/settings", "", "Select a trip to export")
		return
	}

	raw, err := s.api.ExportCSV(r.Context(), tripID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "CSV export failed",
			applog.FieldTripID, tripID,
			applog.FieldError, err)
		redirectFlash(w, r, "/settings", "", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "trip-"+tripID+"-expenses.csv"))
	_, _ = w.Write(raw)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	tripID := s.manager.ActiveTripID()
	if tripID == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	expenses, err := s.cachedExpenses(r.Context(), tripID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	png, err := s.charts.CategoryBreakdown(core.Summarize(tripID, expenses))
	if err != nil {
		s.log.ErrorContext(r.Context(), "Chart render failed", applog.FieldError, err)
		http.Error(w, "chart rendering failed", http.StatusInternalServerError)
		return
	}
	if png == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	data := settingsData{pageData: s.basePage(r, "Settings")}
	if sess, err := s.sessions.Session(r.Context()); err == nil {
		data.DisplayName = sess.DisplayName
		data.Authenticated = sess.Authenticated()
	}
	s.render(w, r, "settings.html", data)
}

// handleSignOut drops the cached session when the provider supports
// it; the next request re-reads the credential source.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if p, ok := s.sessions.(interface{ SignOut() }); ok {
		p.SignOut()
		redirectFlash(w, r, "/settings", "Session cleared", "")
		return
	}
	redirectFlash(w, r, "/settings", "", "Session provider does not support sign-out")
}

// cachedExpenses serves the expense list from the per-trip cache,
// falling back to the API on a miss.
func (s *Server) cachedExpenses(ctx context.Context, tripID string) ([]core.Expense, error) {
	if cached, ok := s.expenseCache.Get(tripID); ok {
		return cached, nil
	}
	expenses, err := s.api.ListExpenses(ctx, tripID)
	if err != nil {
		return nil, err
	}
	s.expenseCache.Set(tripID, expenses)
	return expenses, nil
}

func (s *Server) displayName(r *http.Request) string {
	sess, err := s.sessions.Session(r.Context())
	if err != nil {
		return ""
	}
	return sess.DisplayName
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.ErrorContext(r.Context(), "Template execution failed",
			"template", name,
			applog.FieldError, err)
		http.Error(w, "template rendering failed", http.StatusInternalServerError)
	}
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func redirectFlash(w http.ResponseWriter, r *http.Request, path, notice, errMsg string) {
	q := url.Values{}
	if notice != "" {
		q.Set("notice", notice)
	}
	if errMsg != "" {
		q.Set("error", errMsg)
	}
	target := path
	if encoded := q.Encode(); encoded != "" {
		target += "?" + encoded
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// backTo returns the page the form was submitted from, constrained to
// local paths.
func backTo(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return u.Path
}
