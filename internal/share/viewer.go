package share

import (
	"context"
	"log/slog"
	"sync"
)

// ViewCounter records that a shared payload was viewed and returns the
// running count for its hash.
type ViewCounter interface {
	View(ctx context.Context, req ViewRequest) (int, error)
}

// ViewState is what a shared-note view shows.
type ViewState struct {
	Loading bool
	Payload *Payload
	// Invalid is set when no tier resolved the link.
	Invalid bool
	// Views is the counter after this view was recorded, 0 when unknown.
	Views int
}

// Viewer resolves links for one view. Every Open takes a generation ticket;
// a resolution whose ticket is no longer current is dropped, so a slow
// response for a previous link never replaces the state of a newer one.
// Only applied resolutions are counted as views.
type Viewer struct {
	resolver *Resolver
	counter  ViewCounter

	mu    sync.Mutex
	gen   uint64
	state ViewState
}

// NewViewer creates a viewer over r. A nil counter records nothing.
func NewViewer(r *Resolver, counter ViewCounter) *Viewer {
	return &Viewer{resolver: r, counter: counter}
}

// Open resolves loc. applied is false when a later Open or Close superseded
// this call; the returned state is then the current one, not this result.
func (v *Viewer) Open(ctx context.Context, loc Location) (state ViewState, applied bool) {
	ticket := v.begin()
	p, ok := v.resolver.Resolve(ctx, loc)

	state = ViewState{Payload: p, Invalid: !ok}
	if !v.apply(ctx, ticket, state) {
		return v.State(), false
	}
	if ok {
		state.Views = v.count(ctx, ticket, p)
	}
	return state, true
}

// Close abandons any in-flight resolution.
func (v *Viewer) Close() {
	v.mu.Lock()
	v.gen++
	v.state = ViewState{}
	v.mu.Unlock()
}

// State returns the current state.
func (v *Viewer) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *Viewer) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.state = ViewState{Loading: true}
	return v.gen
}

func (v *Viewer) apply(ctx context.Context, ticket uint64, s ViewState) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if ticket != v.gen || ctx.Err() != nil {
		return false
	}
	v.state = s
	return true
}

// count reports the view to the counter and returns the new count. Failures
// are logged and never change the view.
func (v *Viewer) count(ctx context.Context, ticket uint64, p *Payload) int {
	if v.counter == nil {
		return 0
	}
	blob, err := Encode(*p)
	if err != nil {
		return 0
	}
	views, err := v.counter.View(ctx, ViewRequest{Hash: Hash(blob), Title: p.Title})
	if err != nil {
		slog.Warn("share view not recorded", slog.String("error", err.Error()))
		return 0
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if ticket == v.gen {
		v.state.Views = views
	}
	return views
}
