package dashboard

import (
	"sync"
	"time"

	"dca-grid-console/internal/models"

	"go.uber.org/zap"
)

// State is the reconciler's externally visible mode.
type State int

const (
	// StateIdle means no active cycle is known.
	StateIdle State = iota
	// StateActive means a cycle is being tracked.
	StateActive
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "idle"
}

// View is a read-only copy of the reconciled dashboard. The rendering
// layer only ever sees copies; the reconciler is the sole writer.
type View struct {
	State     State
	Snapshot  models.DashboardSnapshot
	Cycle     models.CurrentCycle
	HasCycle  bool
	Trailing  models.TrailingStats
	Direction models.PriceDirection
	UpdatedAt time.Time
}

// Reconciler folds polled snapshots into mutable dashboard state.
// A failed poll never touches the state; the caller just skips the
// Apply for that tick.
type Reconciler struct {
	logger *zap.Logger

	mu   sync.Mutex
	view View
}

// NewReconciler creates an idle reconciler.
func NewReconciler(logger *zap.Logger) *Reconciler {
	return &Reconciler{logger: logger}
}

// SetActive transitions to the active state, used when a start
// operation succeeds before the first poll confirms the cycle.
func (r *Reconciler) SetActive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.State = StateActive
}

// SetIdle transitions to the idle state on an explicit stop and drops
// the tracked cycle.
func (r *Reconciler) SetIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.view.State = StateIdle
	r.view.Cycle = models.CurrentCycle{}
	r.view.HasCycle = false
}

// ApplyStats overwrites the aggregate fields and the current-cycle view
// from a successful poll. Fields the response omitted arrive as their
// zero defaults already, via the wire mapping. The live price is
// compared against the previous one to derive the direction; a zero
// price is treated as missing and keeps the prior price and direction.
func (r *Reconciler) ApplyStats(snap *models.DashboardSnapshot) {
	if snap == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.view.Snapshot.LastPrice

	cycle := snap.CurrentCycle
	r.view.Snapshot = *snap
	r.view.Snapshot.CurrentCycle = nil

	if cycle != nil {
		r.view.Cycle = *cycle
		r.view.HasCycle = true
		r.view.State = StateActive
	} else {
		// An empty cycle does not end tracking; only an explicit stop
		// moves the dashboard back to idle.
		r.view.Cycle = models.CurrentCycle{}
		r.view.HasCycle = false
	}

	switch {
	case snap.LastPrice == 0:
		r.view.Snapshot.LastPrice = previous
	case previous == 0:
		r.view.Direction = models.PriceNeutral
	case snap.LastPrice > previous:
		r.view.Direction = models.PriceUp
	case snap.LastPrice < previous:
		r.view.Direction = models.PriceDown
	}

	r.view.UpdatedAt = time.Now()
}

// ApplyTrailing overwrites the trailing view. An explicit empty
// response resets to the disabled-shaped default; a failed poll simply
// never reaches this method.
func (r *Reconciler) ApplyTrailing(stats *models.TrailingStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if stats == nil || !stats.Enabled {
		r.view.Trailing = models.TrailingStats{}
		return
	}
	r.view.Trailing = *stats
}

// View returns a copy of the current dashboard state.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := r.view
	if v.Trailing.Current != nil {
		cur := *v.Trailing.Current
		v.Trailing.Current = &cur
	}
	return v
}
