// Package pagewindow computes which pages of a document should be mounted
// for a given scroll position, so rendering cost stays independent of the
// total page count.
package pagewindow

import "math"

// DefaultEstimatedPageHeight is the heuristic unscaled page height in CSS
// pixels used when a document's real page heights are not yet known. The
// window derived from it is approximate; the renderer reflows once a page
// reports its measured height.
const DefaultEstimatedPageHeight = 800.0

// Input describes the viewport over a paginated document.
type Input struct {
	NumPages            int
	Scale               float64
	ScrollTop           float64
	ContainerHeight     float64
	EstimatedPageHeight float64
}

// Window is the inclusive 1-based page range that should be mounted.
// A zero Window (Start==End==0) means nothing should be mounted.
type Window struct {
	StartPage int `json:"start_page"`
	EndPage   int `json:"end_page"`
}

// Contains reports whether page (1-based) is inside the window.
func (w Window) Contains(page int) bool {
	return page >= w.StartPage && page <= w.EndPage
}

// Len returns the number of pages in the window.
func (w Window) Len() int {
	if w.StartPage == 0 {
		return 0
	}
	return w.EndPage - w.StartPage + 1
}

// Compute derives the visible page window:
//
//	startIndex = floor(scrollTop / (estimatedPageHeight * scale))
//	endIndex   = min(numPages-1, startIndex + ceil(containerHeight/(estimatedPageHeight*scale)) + 1)
//
// plus one page of lookahead, intersected with [1, numPages].
func Compute(in Input) Window {
	if in.NumPages <= 0 {
		return Window{}
	}
	if in.Scale <= 0 {
		in.Scale = 1
	}
	if in.EstimatedPageHeight <= 0 {
		in.EstimatedPageHeight = DefaultEstimatedPageHeight
	}
	if in.ScrollTop < 0 {
		in.ScrollTop = 0
	}
	if in.ContainerHeight < 0 {
		in.ContainerHeight = 0
	}

	pageHeight := in.EstimatedPageHeight * in.Scale
	startIndex := int(math.Floor(in.ScrollTop / pageHeight))
	if startIndex > in.NumPages-1 {
		startIndex = in.NumPages - 1
	}
	span := int(math.Ceil(in.ContainerHeight/pageHeight)) + 1
	endIndex := startIndex + span
	if endIndex > in.NumPages-1 {
		endIndex = in.NumPages - 1
	}

	return Window{StartPage: startIndex + 1, EndPage: endIndex + 1}
}
