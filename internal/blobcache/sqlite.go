package blobcache

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"

	"github.com/liutentor/tentor/internal/db"
	"github.com/liutentor/tentor/internal/metrics"
)

// SQLiteCache stores blobs in the blob_cache table of the main database.
type SQLiteCache struct {
	db *db.DB
}

// NewSQLiteCache creates a cache backed by the given database.
func NewSQLiteCache(database *db.DB) *SQLiteCache {
	return &SQLiteCache{db: database}
}

func (c *SQLiteCache) Get(ctx context.Context, key string) []byte {
	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT content FROM blob_cache WHERE key = ?`, key).Scan(&blob)
	if err == sql.ErrNoRows {
		return recordHit(nil)
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("blob cache read failed, treating as miss")
		metrics.IncBlobCache("error")
		return nil
	}
	return recordHit(blob)
}

func (c *SQLiteCache) Put(ctx context.Context, key string, blob []byte) {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO blob_cache (key, content) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET content = excluded.content`,
		key, blob,
	)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("blob cache write failed, ignoring")
		metrics.IncBlobCache("error")
		return
	}
	metrics.IncBlobCache("put")
}
