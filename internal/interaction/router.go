// Package interaction maps global keyboard, wheel and pointer events onto
// view state actions, with overlay/layout guards and idle-based hiding of
// the floating controls.
package interaction

import (
	"sync"
	"time"

	"github.com/liutentor/tentor/internal/scale"
	"github.com/liutentor/tentor/internal/viewstate"
)

// IdleHideDelay is how long after the last qualifying activity the floating
// controls stay visible.
const IdleHideDelay = 1000 * time.Millisecond

// SplitStep is the percentage by which the arrow keys resize the panel split.
const SplitStep = 5

// Context carries the UI flags that gate bindings.
type Context struct {
	// OverlayOpen suppresses shortcuts while a search overlay or the chat
	// drawer has focus.
	OverlayOpen bool
	LayoutMode  scale.LayoutMode
	// HoveringControls pins the floating controls visible.
	HoveringControls bool
}

// KeyEvent is a normalized keyboard event.
type KeyEvent struct {
	Key  string
	Ctrl bool
	Meta bool
}

// WheelEvent is a normalized wheel event. Negative DeltaY scrolls up.
type WheelEvent struct {
	DeltaY float64
	Ctrl   bool
	Meta   bool
}

// Router applies the binding table to an injected view state store and owns
// the panel split and solution visibility toggles. Dispatch order is event
// order; every mutation is a whole-field replacement.
type Router struct {
	store *viewstate.Store

	mu              sync.Mutex
	splitPercent    int
	solutionBlurred bool
	solutionVisible bool
	lastActivity    time.Time
	hovering        bool

	now func() time.Time
}

// NewRouter creates a router over the given store with an even panel split.
func NewRouter(store *viewstate.Store) *Router {
	return &Router{
		store:        store,
		splitPercent: 50,
		now:          time.Now,
	}
}

// HandleKey routes a keyboard event. The returned bool reports whether the
// event was consumed (the caller prevents the default browser action).
func (r *Router) HandleKey(ev KeyEvent, ctx Context) bool {
	r.markActivity()

	if ctx.OverlayOpen {
		return false
	}

	switch ev.Key {
	case "+", "=":
		r.store.ZoomIn(viewstate.PanelExam)
		r.store.ZoomIn(viewstate.PanelSolution)
	case "-":
		r.store.ZoomOut(viewstate.PanelExam)
		r.store.ZoomOut(viewstate.PanelSolution)
	case "l":
		r.store.RotateRight(viewstate.PanelExam)
		r.store.RotateRight(viewstate.PanelSolution)
	case "r":
		r.store.RotateLeft(viewstate.PanelExam)
		r.store.RotateLeft(viewstate.PanelSolution)
	case "t":
		r.mu.Lock()
		r.solutionBlurred = !r.solutionBlurred
		r.mu.Unlock()
	case "e":
		if ctx.LayoutMode != scale.LayoutExamOnly {
			return false
		}
		r.mu.Lock()
		r.solutionVisible = !r.solutionVisible
		r.mu.Unlock()
	case "ArrowLeft":
		r.resizeSplit(-SplitStep)
	case "ArrowRight":
		r.resizeSplit(SplitStep)
	default:
		return false
	}
	return true
}

// HandleWheel routes a wheel event. Only Ctrl/Cmd+wheel is bound (zoom both
// panels); it is consumed even with an overlay open, to block the browser's
// own page zoom.
func (r *Router) HandleWheel(ev WheelEvent, ctx Context) bool {
	r.markActivity()

	if !ev.Ctrl && !ev.Meta {
		return false
	}
	if ev.DeltaY < 0 {
		r.store.ZoomIn(viewstate.PanelExam)
		r.store.ZoomIn(viewstate.PanelSolution)
	} else if ev.DeltaY > 0 {
		r.store.ZoomOut(viewstate.PanelExam)
		r.store.ZoomOut(viewstate.PanelSolution)
	}
	return true
}

// HandlePointerMove marks the UI active and records whether the pointer is
// over a floating control.
func (r *Router) HandlePointerMove(ctx Context) {
	r.mu.Lock()
	r.hovering = ctx.HoveringControls
	r.lastActivity = r.now()
	r.mu.Unlock()
}

// ControlsVisible reports whether the floating controls should currently be
// shown: within IdleHideDelay of the last activity, or while hovered.
func (r *Router) ControlsVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hovering {
		return true
	}
	return r.now().Sub(r.lastActivity) < IdleHideDelay
}

// SplitPercent returns the exam panel's share of the split, in [0, 100].
func (r *Router) SplitPercent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.splitPercent
}

// SolutionBlurred reports the solution-panel blur toggle.
func (r *Router) SolutionBlurred() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.solutionBlurred
}

// SolutionVisible reports the exam-only layout's on-demand solution panel.
func (r *Router) SolutionVisible() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.solutionVisible
}

func (r *Router) resizeSplit(delta int) {
	r.mu.Lock()
	r.splitPercent += delta
	if r.splitPercent < 0 {
		r.splitPercent = 0
	}
	if r.splitPercent > 100 {
		r.splitPercent = 100
	}
	r.mu.Unlock()
}

func (r *Router) markActivity() {
	r.mu.Lock()
	r.lastActivity = r.now()
	r.mu.Unlock()
}
