// Package controller owns the dashboard's observable state: the index
// catalog, the current selection, the heatmap payload, and one
// request-outcome state per fetch. It mediates between user actions
// and the heatmap client, and fans read-only snapshots out to
// registered observers after every transition. The controller is the
// only writer of its state; observers never mutate it.
package controller

import (
	"context"
	"sync"

	"github.com/finlens/heatlens/internal/heatmap"
)

// RequestState is the outcome state of one logical fetch.
type RequestState string

const (
	StateIdle    RequestState = "idle"
	StateLoading RequestState = "loading"
	StateSuccess RequestState = "success"
	StateError   RequestState = "error"
)

// Fetcher is the slice of the heatmap client the controller needs.
type Fetcher interface {
	FetchIndices(ctx context.Context) ([]string, error)
	FetchHeatmap(ctx context.Context, index string, period heatmap.Period) (*heatmap.Payload, error)
}

// Snapshot is a read-only view of the controller state, delivered to
// observers and serialized to the presentation layer.
type Snapshot struct {
	Indices        []string         `json:"indices"`
	SelectedIndex  string           `json:"selected_index"`
	SelectedPeriod heatmap.Period   `json:"selected_period"`
	Heatmap        *heatmap.Payload `json:"heatmap,omitempty"`
	CatalogState   RequestState     `json:"catalog_state"`
	CatalogError   string           `json:"catalog_error,omitempty"`
	HeatmapState   RequestState     `json:"heatmap_state"`
	HeatmapError   string           `json:"heatmap_error,omitempty"`

	// HeatmapSeq is the sequence number of the fetch whose outcome is
	// currently displayed. Overlapping fetches are not cancelled and
	// the last completed one wins, so observers can use this to detect
	// that an older fetch overwrote a newer one.
	HeatmapSeq uint64 `json:"heatmap_seq"`
}

// Observer receives a snapshot after every state transition. Callbacks
// run on the goroutine that caused the transition and must not block.
type Observer func(Snapshot)

// Controller is the page-level state machine. All fields are guarded
// by mu; fetches run on their own goroutine and re-acquire the lock to
// apply their outcome.
type Controller struct {
	ctx    context.Context
	client Fetcher

	mu              sync.Mutex
	indices         []string
	selectedIndex   string
	selectedPeriod  heatmap.Period
	payload         *heatmap.Payload
	catalogState    RequestState
	catalogErr      string
	heatmapState    RequestState
	heatmapErr      string
	catalogInFlight int
	heatmapInFlight int
	issuedSeq       uint64
	appliedSeq      uint64
	observers       []Observer
}

// New creates an idle controller. The context bounds the lifetime of
// all fetches the controller issues; the per-request timeout lives in
// the client.
func New(ctx context.Context, client Fetcher) *Controller {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Controller{
		ctx:          ctx,
		client:       client,
		catalogState: StateIdle,
		heatmapState: StateIdle,
	}
}

// Subscribe registers an observer. Registration order is notification
// order.
func (c *Controller) Subscribe(fn Observer) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Initialize starts the one catalog fetch a page load performs. A
// second call while the catalog fetch is in flight is a no-op.
func (c *Controller) Initialize() {
	c.mu.Lock()
	if c.catalogState == StateLoading {
		c.mu.Unlock()
		return
	}
	c.startCatalogFetchLocked()
	c.publishAndUnlock()
}

// SelectIndex records the new selection. An empty name clears the
// heatmap payload without issuing a request; any other name starts a
// heatmap fetch for (name, current period).
func (c *Controller) SelectIndex(name string) {
	c.mu.Lock()
	c.selectedIndex = name
	if name == "" {
		c.payload = nil
		c.heatmapState = StateIdle
		c.heatmapErr = ""
		c.publishAndUnlock()
		return
	}
	c.startHeatmapFetchLocked(name, c.selectedPeriod)
	c.publishAndUnlock()
}

// SelectPeriod records the new return-period lens. With an index
// selected it re-fetches the heatmap for (selected index, period);
// otherwise it only stores the period.
func (c *Controller) SelectPeriod(period heatmap.Period) {
	c.mu.Lock()
	c.selectedPeriod = period
	if c.selectedIndex == "" {
		c.publishAndUnlock()
		return
	}
	c.startHeatmapFetchLocked(c.selectedIndex, period)
	c.publishAndUnlock()
}

// Retry re-issues the failed fetch for the current state: the catalog
// fetch while the catalog is empty, else the heatmap fetch for the
// current selection. It reports whether a fetch was started; it is a
// guarded no-op while any fetch is in flight.
func (c *Controller) Retry() bool {
	c.mu.Lock()
	if c.catalogInFlight > 0 || c.heatmapInFlight > 0 {
		c.mu.Unlock()
		return false
	}

	switch {
	case len(c.indices) == 0:
		c.startCatalogFetchLocked()
	case c.selectedIndex != "":
		c.startHeatmapFetchLocked(c.selectedIndex, c.selectedPeriod)
	default:
		c.mu.Unlock()
		return false
	}

	c.publishAndUnlock()
	return true
}

// startCatalogFetchLocked transitions the catalog slot to loading and
// launches the fetch. Caller holds mu.
func (c *Controller) startCatalogFetchLocked() {
	c.catalogState = StateLoading
	c.catalogErr = ""
	c.catalogInFlight++

	go func() {
		indices, err := c.client.FetchIndices(c.ctx)

		c.mu.Lock()
		c.catalogInFlight--
		if err != nil {
			c.catalogState = StateError
			c.catalogErr = err.Error()
		} else {
			c.indices = indices
			c.catalogState = StateSuccess
			c.catalogErr = ""
		}
		c.publishAndUnlock()
	}()
}

// startHeatmapFetchLocked transitions the heatmap slot to loading,
// clearing any prior error, and launches the fetch. Caller holds mu.
//
// There is no cancellation: a newer fetch does not abort an
// outstanding one, and whichever completes last overwrites the
// displayed state. The sequence number of the applied fetch is kept on
// the snapshot so the race stays observable.
func (c *Controller) startHeatmapFetchLocked(index string, period heatmap.Period) {
	c.heatmapState = StateLoading
	c.heatmapErr = ""
	c.heatmapInFlight++
	c.issuedSeq++
	seq := c.issuedSeq

	go func() {
		payload, err := c.client.FetchHeatmap(c.ctx, index, period)

		c.mu.Lock()
		c.heatmapInFlight--

		// The selection was cleared while this fetch was out: drop the
		// result so no payload is ever shown with no index selected.
		if c.selectedIndex == "" {
			c.mu.Unlock()
			return
		}

		c.appliedSeq = seq
		if err != nil {
			c.payload = nil
			c.heatmapState = StateError
			c.heatmapErr = err.Error()
		} else {
			c.payload = payload
			c.heatmapState = StateSuccess
			c.heatmapErr = ""
		}
		c.publishAndUnlock()
	}()
}

// snapshotLocked copies the current state. Caller holds mu.
func (c *Controller) snapshotLocked() Snapshot {
	indices := make([]string, len(c.indices))
	copy(indices, c.indices)

	return Snapshot{
		Indices:        indices,
		SelectedIndex:  c.selectedIndex,
		SelectedPeriod: c.selectedPeriod,
		Heatmap:        c.payload,
		CatalogState:   c.catalogState,
		CatalogError:   c.catalogErr,
		HeatmapState:   c.heatmapState,
		HeatmapError:   c.heatmapErr,
		HeatmapSeq:     c.appliedSeq,
	}
}

// publishAndUnlock snapshots the state, releases mu, and notifies
// observers outside the lock.
func (c *Controller) publishAndUnlock() {
	snap := c.snapshotLocked()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
