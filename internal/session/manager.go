// Package session owns the client-side trip state: the cached trip
// list, the active trip selection, and the loading flag. It is the
// reconciliation point between the remote API (source of truth) and
// the durable local slot holding the last selection.
package session

import (
	"context"
	"fmt"
	"sync"

	"tripexpense/internal/core"
	applog "tripexpense/internal/log"
	"tripexpense/internal/store"
)

// TripAPI is the slice of the remote client the manager needs.
type TripAPI interface {
	ListTrips(ctx context.Context) ([]core.Trip, error)
	CreateTrip(ctx context.Context, name string) (core.Trip, error)
}

// Manager is safe for concurrent use. State transitions are applied
// atomically under the mutex at each operation's completion point;
// overlapping refreshes resolve last-completed-wins, and every
// completion leaves the invariant intact: a set active trip id always
// references a trip in the cached list once loading has finished.
type Manager struct {
	api   TripAPI
	store store.ActiveTripStore
	log   *applog.Logger

	mu           sync.Mutex
	trips        []core.Trip
	activeTripID string
	// saved mirrors the durable slot so reconciliation does not hit
	// the store on every refresh. Read once at construction, written
	// through on every change.
	saved    string
	inflight int
	ready    bool
}

// NewManager reads the persisted selection and returns a manager in
// the uninitialized state; callers trigger the first Refresh.
func NewManager(ctx context.Context, api TripAPI, st store.ActiveTripStore, logger *applog.Logger) (*Manager, error) {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentSession)
	}
	saved, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load persisted active trip: %w", err)
	}
	return &Manager{api: api, store: st, log: logger, saved: saved}, nil
}

// Trips returns a copy of the cached trip list.
func (m *Manager) Trips() []core.Trip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Trip, len(m.trips))
	copy(out, m.trips)
	return out
}

// ActiveTripID returns the current selection, or "" when none.
func (m *Manager) ActiveTripID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeTripID
}

// ActiveTrip returns the selected trip when it is present in the cache.
func (m *Manager) ActiveTrip() (core.Trip, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.trips {
		if t.ID == m.activeTripID {
			return t, true
		}
	}
	return core.Trip{}, false
}

// Loading reports whether the trip list is not yet authoritative:
// before the first refresh completes, and while any refresh is in
// flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.ready || m.inflight > 0
}

// Refresh fetches the authoritative trip list and reconciles the
// active selection against it, in precedence order: keep the current
// selection if still present, else adopt the persisted one if present,
// else the first trip, else none. The durable slot is written to match
// the outcome. A failed fetch leaves prior state untouched and is
// returned, not swallowed.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()

	trips, err := m.api.ListTrips(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	m.ready = true
	if err != nil {
		return fmt.Errorf("refresh trips: %w", err)
	}

	// Reconcile against the state as it is now, at completion time;
	// an overlapping operation may have changed it since the call
	// started.
	m.trips = trips
	resolved := ""
	switch {
	case tripExists(trips, m.activeTripID):
		resolved = m.activeTripID
	case tripExists(trips, m.saved):
		resolved = m.saved
	case len(trips) > 0:
		resolved = trips[0].ID
	}
	m.persistActiveLocked(ctx, resolved)
	return nil
}

// AddTrip validates the name, creates the trip remotely, optimistically
// prepends it as the new active trip, then runs a trailing Refresh.
// The created trip is returned even when the trailing refresh fails;
// the optimistic insert is not rolled back.
func (m *Manager) AddTrip(ctx context.Context, name string) (core.Trip, error) {
	if err := core.ValidateTripName(name); err != nil {
		return core.Trip{}, err
	}

	trip, err := m.api.CreateTrip(ctx, name)
	if err != nil {
		return core.Trip{}, err
	}

	m.mu.Lock()
	m.trips = append([]core.Trip{trip}, m.trips...)
	m.persistActiveLocked(ctx, trip.ID)
	m.mu.Unlock()

	m.log.InfoContext(ctx, "Trip created",
		applog.FieldTripID, trip.ID,
		applog.FieldTripName, trip.Name)

	if err := m.Refresh(ctx); err != nil {
		return trip, fmt.Errorf("trip %s created, list refresh failed: %w", trip.ID, err)
	}
	return trip, nil
}

// RemoveLocal drops a trip from the local cache only. It is the second
// half of a delete workflow: the caller performs the remote delete
// first, so a failed delete never invalidates local state.
func (m *Manager) RemoveLocal(ctx context.Context, tripID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.trips[:0]
	for _, t := range m.trips {
		if t.ID != tripID {
			kept = append(kept, t)
		}
	}
	m.trips = kept

	if m.activeTripID == tripID {
		m.persistActiveLocked(ctx, "")
	}
}

// SetActiveTripID records a selection and persists it. The id is not
// checked against the cached list; a stale value is reconciled away on
// the next Refresh.
func (m *Manager) SetActiveTripID(ctx context.Context, tripID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistActiveLocked(ctx, tripID)
}

// persistActiveLocked sets the in-memory selection and writes through
// to the durable slot. Store failures are logged, not fatal: the
// in-memory state stays authoritative for this process.
func (m *Manager) persistActiveLocked(ctx context.Context, tripID string) {
	m.activeTripID = tripID
	m.saved = tripID

	var err error
	if tripID == "" {
		err = m.store.Clear(ctx)
	} else {
		err = m.store.Save(ctx, tripID)
	}
	if err != nil {
		m.log.WarnContext(ctx, "Failed to persist active trip",
			applog.FieldTripID, tripID,
			applog.FieldError, err)
	}
}

func tripExists(trips []core.Trip, id string) bool {
	if id == "" {
		return false
	}
	for _, t := range trips {
		if t.ID == id {
			return true
		}
	}
	return false
}
