// Package pdfdoc is the boundary to the PDF engine: it reads document
// structure (page count, intrinsic page rotations) and owns the cached,
// epoch-gated document fetch path.
package pdfdoc

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Info describes a parsed document.
type Info struct {
	PageCount int `json:"page_count"`
	// NativeRotations maps 1-based page numbers to the page's intrinsic
	// rotation in degrees. Pages with no /Rotate entry are omitted.
	NativeRotations map[int]int `json:"native_rotations,omitempty"`
}

// LoadFile parses the PDF at path and returns its structure.
func LoadFile(path string) (*Info, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pdf %s: %w", path, err)
	}

	info := &Info{
		PageCount:       ctx.PageCount,
		NativeRotations: map[int]int{},
	}

	for page := 1; page <= ctx.PageCount; page++ {
		_, _, attrs, err := ctx.PageDict(page, false)
		if err != nil {
			// A single unreadable page dict does not fail the load;
			// the page renders as upright.
			continue
		}
		if attrs != nil && attrs.Rotate != 0 {
			info.NativeRotations[page] = ((attrs.Rotate % 360) + 360) % 360
		}
	}

	return info, nil
}

// Load parses in-memory PDF bytes. pdfcpu's file API expects a path, so the
// bytes go through a temp file.
func Load(data []byte) (*Info, error) {
	f, err := os.CreateTemp("", "tentor-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("creating temp pdf: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing temp pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("closing temp pdf: %w", err)
	}

	return LoadFile(f.Name())
}
