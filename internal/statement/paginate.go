package statement

import (
	"sync"

	"carteira/internal/core"
)

type PagerState string

const (
	StateIdle      PagerState = "idle"
	StateLoading   PagerState = "loading"
	StateExhausted PagerState = "exhausted"
)

// Pager reveals an already-filtered transaction list incrementally: a window
// of the first initialPageSize items that grows by pageIncrement per
// LoadMore. The underlying data is fully loaded client-side, so growing the
// window never touches the remote collaborator.
type Pager struct {
	mu        sync.Mutex
	initial   int
	increment int
	filtered  []core.Transaction
	window    int
	state     PagerState

	// beforeExtend, when set, runs between entering Loading and extending
	// the window. Tests use it to observe the Loading state.
	beforeExtend func()
}

func NewPager(initialPageSize, pageIncrement int) *Pager {
	if initialPageSize < 1 {
		initialPageSize = 1
	}
	if pageIncrement < 1 {
		pageIncrement = 1
	}
	return &Pager{
		initial:   initialPageSize,
		increment: pageIncrement,
		state:     StateExhausted,
	}
}

// Reset replaces the filtered set and rewinds the window to the initial
// page. Called whenever the filter criteria change.
func (p *Pager) Reset(filtered []core.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.filtered = filtered
	p.window = min(p.initial, len(filtered))
	p.settle()
}

// LoadMore extends the window by one page increment. It is a no-op while a
// previous call is still loading or when the window already covers the full
// set; the return value reports whether the window grew.
func (p *Pager) LoadMore() bool {
	p.mu.Lock()
	if p.state != StateIdle {
		p.mu.Unlock()
		return false
	}
	p.state = StateLoading
	p.mu.Unlock()

	if p.beforeExtend != nil {
		p.beforeExtend()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.window = min(p.window+p.increment, len(p.filtered))
	p.settle()
	return true
}

// Window returns the currently revealed prefix.
func (p *Pager) Window() []core.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Transaction(nil), p.filtered[:p.window]...)
}

// HasMore reports whether hidden items remain.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window < len(p.filtered)
}

// State returns the current pager state.
func (p *Pager) State() PagerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// settle picks Idle or Exhausted from the window position. Callers hold the
// lock.
func (p *Pager) settle() {
	if p.window >= len(p.filtered) {
		p.state = StateExhausted
	} else {
		p.state = StateIdle
	}
}
