// Package viewstate holds the per-panel PDF view parameters (zoom, rotation,
// page count) shared between the interaction router, the responsive scale
// seeding and the page renderer.
package viewstate

import "sync"

// PanelKey identifies one of the two independently scrollable PDF panels.
type PanelKey string

const (
	PanelExam     PanelKey = "exam"
	PanelSolution PanelKey = "solution"
)

const (
	// DefaultScale is the scale a panel starts at before the responsive
	// calculator seeds a viewport-derived value.
	DefaultScale = 1.0

	// ZoomStep is the scale delta applied by interactive zoom.
	ZoomStep = 0.2

	// ZoomMin and ZoomMax bound interactive zoom. Programmatic SetScale is
	// intentionally not clamped; responsive auto-scale may go up to 3.5.
	ZoomMin = 0.5
	ZoomMax = 3.0
)

// PanelState is a snapshot of one panel's view parameters.
type PanelState struct {
	Scale           float64 `json:"scale"`
	RotationDegrees int     `json:"rotation_degrees"`
	PageCount       int     `json:"page_count"`

	// nativeRotations maps 1-based page numbers to the page's intrinsic
	// rotation as reported by the document loader. Scoped to the current
	// document and cleared on document change.
	nativeRotations map[int]int
}

// EffectiveRotation combines a page's intrinsic rotation with the user
// rotation: (native + user) mod 360. Pages without a recorded native
// rotation are treated as upright.
func (p PanelState) EffectiveRotation(page int) int {
	native := p.nativeRotations[page]
	r := (native + p.RotationDegrees) % 360
	if r < 0 {
		r += 360
	}
	return r
}

// Listener receives the panel key that changed and its new state. Listeners
// are invoked synchronously, after the mutation, while no lock is held.
type Listener func(key PanelKey, state PanelState)

// Store holds the view state for both panels. All mutations are whole-field
// replacements applied under a single mutex, so concurrent zoom and rotate
// calls never interleave partially; last writer wins.
type Store struct {
	mu        sync.Mutex
	panels    map[PanelKey]*PanelState
	listeners []Listener
}

// NewStore creates a store with both panels at their defaults.
func NewStore() *Store {
	return &Store{
		panels: map[PanelKey]*PanelState{
			PanelExam:     {Scale: DefaultScale, nativeRotations: map[int]int{}},
			PanelSolution: {Scale: DefaultScale, nativeRotations: map[int]int{}},
		},
	}
}

// Subscribe registers a listener notified after every mutation.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// State returns a snapshot of the panel's current state.
func (s *Store) State(key PanelKey) PanelState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(key)
}

// SetScale sets the panel scale directly, without clamping. Used by the
// responsive scale calculator; interactive zoom goes through ZoomIn/ZoomOut.
func (s *Store) SetScale(key PanelKey, scale float64) {
	s.mutate(key, func(p *PanelState) {
		p.Scale = scale
	})
}

// ZoomIn increases the panel scale by ZoomStep, clamped to ZoomMax.
func (s *Store) ZoomIn(key PanelKey) {
	s.mutate(key, func(p *PanelState) {
		p.Scale = clampZoom(p.Scale + ZoomStep)
	})
}

// ZoomOut decreases the panel scale by ZoomStep, clamped to ZoomMin.
func (s *Store) ZoomOut(key PanelKey) {
	s.mutate(key, func(p *PanelState) {
		p.Scale = clampZoom(p.Scale - ZoomStep)
	})
}

// RotateRight rotates the panel 90 degrees clockwise.
func (s *Store) RotateRight(key PanelKey) {
	s.mutate(key, func(p *PanelState) {
		p.RotationDegrees = (p.RotationDegrees + 90) % 360
	})
}

// RotateLeft rotates the panel 90 degrees counter-clockwise.
func (s *Store) RotateLeft(key PanelKey) {
	s.mutate(key, func(p *PanelState) {
		p.RotationDegrees = (p.RotationDegrees + 270) % 360
	})
}

// SetPageCount records the total page count once a document finishes parsing.
func (s *Store) SetPageCount(key PanelKey, n int) {
	if n < 0 {
		n = 0
	}
	s.mutate(key, func(p *PanelState) {
		p.PageCount = n
	})
}

// SetNativeRotation records a page's intrinsic rotation for the current
// document.
func (s *Store) SetNativeRotation(key PanelKey, page, degrees int) {
	s.mutate(key, func(p *PanelState) {
		p.nativeRotations[page] = ((degrees % 360) + 360) % 360
	})
}

// ResetDocument clears document-scoped state (page count and the native
// rotation map) when the panel's document changes, so a previous document's
// rotations are never applied to the new one. User scale and rotation are
// kept.
func (s *Store) ResetDocument(key PanelKey) {
	s.mutate(key, func(p *PanelState) {
		p.PageCount = 0
		p.nativeRotations = map[int]int{}
	})
}

func (s *Store) mutate(key PanelKey, fn func(*PanelState)) {
	s.mu.Lock()
	p, ok := s.panels[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	fn(p)
	snap := s.snapshot(key)
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l(key, snap)
	}
}

// snapshot copies the panel state, including the rotation map, so callers
// never observe later mutations. Caller must hold s.mu.
func (s *Store) snapshot(key PanelKey) PanelState {
	p, ok := s.panels[key]
	if !ok {
		return PanelState{nativeRotations: map[int]int{}}
	}
	out := *p
	out.nativeRotations = make(map[int]int, len(p.nativeRotations))
	for k, v := range p.nativeRotations {
		out.nativeRotations[k] = v
	}
	return out
}

func clampZoom(v float64) float64 {
	if v < ZoomMin {
		return ZoomMin
	}
	if v > ZoomMax {
		return ZoomMax
	}
	return v
}
