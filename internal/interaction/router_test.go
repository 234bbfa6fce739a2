package interaction

import (
	"math"
	"testing"
	"time"

	"github.com/liutentor/tentor/internal/scale"
	"github.com/liutentor/tentor/internal/viewstate"
)

func newRouter() (*Router, *viewstate.Store) {
	store := viewstate.NewStore()
	return NewRouter(store), store
}

func TestPlusZoomsBothPanels(t *testing.T) {
	r, store := newRouter()

	for _, key := range []string{"+", "="} {
		before := store.State(viewstate.PanelExam).Scale
		if !r.HandleKey(KeyEvent{Key: key}, Context{}) {
			t.Fatalf("expected %q to be consumed", key)
		}
		for _, panel := range []viewstate.PanelKey{viewstate.PanelExam, viewstate.PanelSolution} {
			got := store.State(panel).Scale
			if math.Abs(got-(before+viewstate.ZoomStep)) > 1e-9 {
				t.Errorf("key %q: expected %s scale %v, got %v", key, panel, before+viewstate.ZoomStep, got)
			}
		}
	}
}

func TestMinusZoomsOut(t *testing.T) {
	r, store := newRouter()
	r.HandleKey(KeyEvent{Key: "-"}, Context{})
	if got := store.State(viewstate.PanelExam).Scale; math.Abs(got-0.8) > 1e-9 {
		t.Errorf("expected scale 0.8, got %v", got)
	}
}

func TestRotationKeys(t *testing.T) {
	r, store := newRouter()

	r.HandleKey(KeyEvent{Key: "l"}, Context{})
	if got := store.State(viewstate.PanelExam).RotationDegrees; got != 90 {
		t.Errorf("expected 90 after 'l', got %d", got)
	}

	r.HandleKey(KeyEvent{Key: "r"}, Context{})
	if got := store.State(viewstate.PanelExam).RotationDegrees; got != 0 {
		t.Errorf("expected 0 after 'r', got %d", got)
	}
}

func TestOverlaySuppressesShortcuts(t *testing.T) {
	r, store := newRouter()
	if r.HandleKey(KeyEvent{Key: "+"}, Context{OverlayOpen: true}) {
		t.Error("expected shortcut to be ignored while overlay is open")
	}
	if got := store.State(viewstate.PanelExam).Scale; got != viewstate.DefaultScale {
		t.Errorf("expected scale untouched, got %v", got)
	}
}

func TestSolutionToggles(t *testing.T) {
	r, _ := newRouter()

	r.HandleKey(KeyEvent{Key: "t"}, Context{})
	if !r.SolutionBlurred() {
		t.Error("expected solution blurred after 't'")
	}
	r.HandleKey(KeyEvent{Key: "t"}, Context{})
	if r.SolutionBlurred() {
		t.Error("expected blur toggled back off")
	}

	// 'e' only applies in the exam-only layout.
	if r.HandleKey(KeyEvent{Key: "e"}, Context{LayoutMode: scale.LayoutExamWithFacit}) {
		t.Error("expected 'e' ignored in split layout")
	}
	if !r.HandleKey(KeyEvent{Key: "e"}, Context{LayoutMode: scale.LayoutExamOnly}) {
		t.Error("expected 'e' consumed in exam-only layout")
	}
	if !r.SolutionVisible() {
		t.Error("expected solution visible after 'e'")
	}
}

func TestSplitResizeClamped(t *testing.T) {
	r, _ := newRouter()

	r.HandleKey(KeyEvent{Key: "ArrowRight"}, Context{})
	if got := r.SplitPercent(); got != 55 {
		t.Errorf("expected split 55, got %d", got)
	}

	for i := 0; i < 30; i++ {
		r.HandleKey(KeyEvent{Key: "ArrowLeft"}, Context{})
	}
	if got := r.SplitPercent(); got != 0 {
		t.Errorf("expected split clamped at 0, got %d", got)
	}

	for i := 0; i < 30; i++ {
		r.HandleKey(KeyEvent{Key: "ArrowRight"}, Context{})
	}
	if got := r.SplitPercent(); got != 100 {
		t.Errorf("expected split clamped at 100, got %d", got)
	}
}

func TestCtrlWheelZooms(t *testing.T) {
	r, store := newRouter()

	if !r.HandleWheel(WheelEvent{DeltaY: -120, Ctrl: true}, Context{}) {
		t.Fatal("expected ctrl+wheel consumed")
	}
	if got := store.State(viewstate.PanelExam).Scale; math.Abs(got-1.2) > 1e-9 {
		t.Errorf("expected scale 1.2, got %v", got)
	}

	if !r.HandleWheel(WheelEvent{DeltaY: 120, Meta: true}, Context{}) {
		t.Fatal("expected cmd+wheel consumed")
	}
	if got := store.State(viewstate.PanelExam).Scale; math.Abs(got-1.0) > 1e-9 {
		t.Errorf("expected scale 1.0, got %v", got)
	}

	// Wheel zoom also applies while an overlay is open, since the browser
	// zoom must still be blocked.
	if !r.HandleWheel(WheelEvent{DeltaY: -120, Ctrl: true}, Context{OverlayOpen: true}) {
		t.Error("expected ctrl+wheel consumed with overlay open")
	}
}

func TestPlainWheelIgnored(t *testing.T) {
	r, store := newRouter()
	if r.HandleWheel(WheelEvent{DeltaY: -120}, Context{}) {
		t.Error("expected plain wheel not consumed")
	}
	if got := store.State(viewstate.PanelExam).Scale; got != viewstate.DefaultScale {
		t.Errorf("expected scale untouched, got %v", got)
	}
}

func TestIdleHide(t *testing.T) {
	r, _ := newRouter()

	current := time.Unix(1000, 0)
	r.now = func() time.Time { return current }

	r.HandlePointerMove(Context{})
	if !r.ControlsVisible() {
		t.Error("expected controls visible right after activity")
	}

	current = current.Add(999 * time.Millisecond)
	if !r.ControlsVisible() {
		t.Error("expected controls still visible within the idle delay")
	}

	current = current.Add(2 * time.Millisecond)
	if r.ControlsVisible() {
		t.Error("expected controls hidden after the idle delay")
	}

	// Hovering a floating control pins the controls visible.
	r.HandlePointerMove(Context{HoveringControls: true})
	current = current.Add(10 * time.Second)
	if !r.ControlsVisible() {
		t.Error("expected controls pinned while hovering")
	}
}

func TestActivityResetsIdleTimer(t *testing.T) {
	r, _ := newRouter()

	current := time.Unix(2000, 0)
	r.now = func() time.Time { return current }

	r.HandlePointerMove(Context{})
	current = current.Add(900 * time.Millisecond)
	r.HandleKey(KeyEvent{Key: "+"}, Context{})
	current = current.Add(900 * time.Millisecond)
	if !r.ControlsVisible() {
		t.Error("expected key activity to reset the idle timer")
	}
}
