// Package blobcache caches downloaded PDF bytes keyed by document
// identifier. The cache sits beside the document fetch path: a read or write
// failure is logged and treated as a miss, never surfaced to the caller. No
// eviction policy exists; the cache grows with the set of viewed documents
// and is bounded only by the host storage.
package blobcache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/liutentor/tentor/internal/metrics"
)

// Cache is a best-effort binary blob cache.
type Cache interface {
	// Get returns the cached blob for key, or nil on a miss. Storage
	// failures are swallowed and reported as a miss.
	Get(ctx context.Context, key string) []byte

	// Put stores the blob under key. Failures are logged and ignored.
	Put(ctx context.Context, key string, blob []byte)
}

// DecodeBase64 materializes document bytes from a base64 payload as returned
// by the backing document store. It tolerates URL-safe alphabets ('-'/'_')
// and embedded whitespace. Malformed input returns an error; the caller
// surfaces it as a document load failure.
func DecodeBase64(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		case '-':
			return '+'
		case '_':
			return '/'
		}
		return r
	}, s)

	// Repad: whitespace stripping can leave a length not divisible by 4.
	if m := len(cleaned) % 4; m != 0 {
		cleaned += strings.Repeat("=", 4-m)
	}

	b, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 document payload: %w", err)
	}
	return b, nil
}

func recordHit(blob []byte) []byte {
	if blob == nil {
		metrics.IncBlobCache("miss")
	} else {
		metrics.IncBlobCache("hit")
	}
	return blob
}
