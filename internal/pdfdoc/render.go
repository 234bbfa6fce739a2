package pdfdoc

import (
	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/metrics"
	"github.com/liutentor/tentor/internal/pagewindow"
)

// PageRenderer renders a single page at the given scale and rotation.
type PageRenderer func(page int, scale float64, rotation int) error

// PageResult is the outcome of rendering one page of the visible window.
type PageResult struct {
	Page        int  `json:"page"`
	Rotation    int  `json:"rotation"`
	Placeholder bool `json:"placeholder"`
}

// RenderWindow renders every page of the visible window. A page that fails
// to render (a corrupt page, typically) is logged and emitted as a
// placeholder; it never aborts rendering of its siblings.
func RenderWindow(win pagewindow.Window, scale float64, rotationFor func(page int) int, render PageRenderer) []PageResult {
	if win.Len() == 0 {
		return nil
	}

	results := make([]PageResult, 0, win.Len())
	for page := win.StartPage; page <= win.EndPage; page++ {
		rotation := rotationFor(page)
		res := PageResult{Page: page, Rotation: rotation}
		if err := render(page, scale, rotation); err != nil {
			log.Warn().Err(err).Int("page", page).Msg("page render failed, emitting placeholder")
			metrics.IncPageRenderFailure()
			res.Placeholder = true
		}
		results = append(results, res)
	}
	return results
}
