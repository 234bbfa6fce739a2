// Package scale computes responsive zoom levels for the PDF panels from
// viewport dimensions and the active layout mode.
package scale

// LayoutMode selects how the exam and solution panels share the viewport.
type LayoutMode string

const (
	// LayoutExamOnly shows the exam panel alone, with the solution toggled
	// on demand as an overlay.
	LayoutExamOnly LayoutMode = "exam-only"
	// LayoutExamWithFacit shows exam and solution side by side.
	LayoutExamWithFacit LayoutMode = "exam-with-facit"
)

const (
	// MinScale and MaxScale bound every computed responsive scale.
	MinScale = 0.7
	MaxScale = 3.5

	mobileReferenceWidth = 420.0
	mobileScaleCap       = 1.1
)

// Result holds the computed scale for each panel.
type Result struct {
	ExamScale  float64 `json:"exam_scale"`
	FacitScale float64 `json:"facit_scale"`
}

// Compute derives the initial zoom level for both panels. It is a pure
// function of its inputs: a wider viewport yields a larger base scale, the
// exam-only layout gets a positive offset since a single panel has the whole
// width, and short or tall viewports apply a height correction. Results are
// clamped to [MinScale, MaxScale].
func Compute(viewportWidth, viewportHeight float64, mode LayoutMode, isMobile bool) Result {
	var base float64
	if isMobile {
		base = viewportWidth / mobileReferenceWidth
		if base > mobileScaleCap {
			base = mobileScaleCap
		}
	} else {
		base = baseForWidth(viewportWidth)
	}

	offset := 0.0
	switch mode {
	case LayoutExamOnly:
		offset = 0.3
	case LayoutExamWithFacit:
		offset = -0.1
	}

	heightFactor := 1.0
	if viewportHeight < 800 {
		heightFactor = 0.9
	} else if viewportHeight >= 1200 {
		heightFactor = 1.05
	}

	s := clamp((base+offset)*heightFactor, MinScale, MaxScale)
	return Result{ExamScale: s, FacitScale: s}
}

// baseForWidth is a step function over desktop viewport widths.
func baseForWidth(w float64) float64 {
	switch {
	case w < 900:
		return 0.9
	case w < 1200:
		return 1.1
	case w < 1600:
		return 1.3
	case w < 2000:
		return 1.5
	default:
		return 1.7
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
