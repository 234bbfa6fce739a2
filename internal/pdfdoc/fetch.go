package pdfdoc

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/blobcache"
)

// ErrStaleFetch marks a fetch whose response arrived after the panel had
// already moved on to a different document.
var ErrStaleFetch = errors.New("stale document fetch discarded")

// FetchFunc retrieves the raw document bytes from the backing store.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Fetcher loads document bytes through the blob cache, gated by a per-panel
// epoch: every navigation bumps the epoch, and a response carrying an older
// epoch is discarded instead of being applied to the wrong document.
type Fetcher struct {
	cache blobcache.Cache

	mu     sync.Mutex
	epochs map[string]uint64
}

// NewFetcher creates a fetcher over the given cache.
func NewFetcher(cache blobcache.Cache) *Fetcher {
	return &Fetcher{cache: cache, epochs: map[string]uint64{}}
}

// Begin records a navigation for the panel and returns the epoch token the
// subsequent Fetch must carry.
func (f *Fetcher) Begin(panel string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.epochs[panel]++
	return f.epochs[panel]
}

// Fetch returns the document bytes for key: from the cache when present,
// otherwise via fetch, with a best-effort cache fill. If the panel's epoch
// has moved past token by the time the bytes are available, the result is
// dropped and ErrStaleFetch is returned.
func (f *Fetcher) Fetch(ctx context.Context, panel string, token uint64, key string, fetch FetchFunc) ([]byte, error) {
	blob, err := f.Load(ctx, key, fetch)
	if err != nil {
		return nil, err
	}
	if !f.current(panel, token) {
		log.Debug().Str("panel", panel).Str("key", key).Msg("discarding stale document fetch")
		return nil, ErrStaleFetch
	}
	return blob, nil
}

// Load returns the document bytes for key without epoch gating: cache
// first, then fetch with a best-effort cache fill.
func (f *Fetcher) Load(ctx context.Context, key string, fetch FetchFunc) ([]byte, error) {
	if blob := f.cache.Get(ctx, key); blob != nil {
		return blob, nil
	}

	blob, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	f.cache.Put(ctx, key, blob)
	return blob, nil
}

func (f *Fetcher) current(panel string, token uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.epochs[panel] == token
}
