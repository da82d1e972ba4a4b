// Package fetchcache implements the cache-then-revalidate read primitive
// used for read-heavy remote data such as player stats and game archives.
//
// Contract (per read, given an optional cache key and a max age):
//
//  1. Fresh cache hit: return the cached payload immediately (FromCache=true)
//     and still refresh the cache in the background. The refresh outcome is
//     never surfaced to this call; it only improves the next one.
//  2. Miss or stale: fetch in the foreground, persist on success when a key
//     was supplied, return the fresh payload (FromCache=false).
//  3. Fetch failure with a stale entry on hand: fall back to the stale
//     payload rather than failing the caller. Fetch failure with nothing
//     cached at all is an error.
//
// Background refreshes run on a detached context so a caller that abandons
// interest mid-flight cannot cancel the cache write; their failures are
// logged and swallowed because the caller already holds usable data.
//
// Concurrent calls for the same key are independent: no in-flight request
// deduplication is performed.
package fetchcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-goal-sync/internal/domain"
	"github.com/tbourn/go-goal-sync/internal/store"
)

// Fetcher issues the underlying remote read. Implemented by api.Client.
type Fetcher interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// Key identifies a cache slot: the subject being read plus the platform it
// lives on (e.g. username + "chess.com").
type Key struct {
	Subject  string
	Platform string
}

// Result is the outcome of a cached fetch.
type Result struct {
	// Payload is the opaque response body.
	Payload []byte
	// FromCache is true when Payload was served from the local store
	// rather than a foreground network fetch.
	FromCache bool
}

// Service is the cached-fetch coordinator. Construct with New; the zero
// value is not usable.
type Service struct {
	db      *gorm.DB
	fetcher Fetcher
	log     zerolog.Logger

	// refreshTimeout bounds detached background refreshes.
	refreshTimeout time.Duration

	// wg tracks in-flight background refreshes so Wait can drain them at
	// teardown (and in tests).
	wg sync.WaitGroup
}

// New constructs a cached-fetch service over the given store handle and
// remote fetcher.
func New(db *gorm.DB, fetcher Fetcher, log zerolog.Logger) *Service {
	return &Service{
		db:             db,
		fetcher:        fetcher,
		log:            log.With().Str("component", "fetchcache").Logger(),
		refreshTimeout: 30 * time.Second,
	}
}

// Fetch performs one cached read. url is the resource locator passed to the
// fetcher; key selects the cache slot (nil disables caching entirely);
// maxAge is the freshness horizon for a cached payload.
func (s *Service) Fetch(ctx context.Context, url string, key *Key, maxAge time.Duration) (Result, error) {
	var stale *domain.CachedEntry

	if key != nil {
		entry, err := store.GetCachedEntry(ctx, s.db, key.Subject, key.Platform)
		switch {
		case err == nil && time.Since(entry.LastUpdated) < maxAge:
			cacheReads.WithLabelValues(key.Platform, "hit").Inc()
			s.refreshInBackground(url, *key)
			return Result{Payload: entry.Payload, FromCache: true}, nil
		case err == nil:
			cacheReads.WithLabelValues(key.Platform, "stale").Inc()
			stale = entry
		case store.IsNotFound(err):
			cacheReads.WithLabelValues(key.Platform, "miss").Inc()
		default:
			// Storage failure, not a miss. Surface it.
			return Result{}, fmt.Errorf("read cache: %w", err)
		}
	}

	payload, err := s.fetcher.GetBytes(ctx, url)
	if err != nil {
		if stale != nil {
			// The caller still gets usable (possibly stale) data.
			s.log.Warn().Err(err).Str("url", url).Msg("fetch failed, serving stale cache")
			return Result{Payload: stale.Payload, FromCache: true}, nil
		}
		return Result{}, fmt.Errorf("fetch %s: %w", url, err)
	}

	if key != nil {
		if err := store.PutCachedEntry(ctx, s.db, key.Subject, key.Platform, payload); err != nil {
			// The caller has fresh data; a failed cache write only costs
			// the next reader a fetch.
			s.log.Warn().Err(err).Str("subject", key.Subject).Msg("cache write failed")
		}
	}
	return Result{Payload: payload, FromCache: false}, nil
}

// Wait blocks until all in-flight background refreshes have completed.
// Call at application teardown.
func (s *Service) Wait() { s.wg.Wait() }

// refreshInBackground refetches url on a detached context and updates the
// cache slot. Failures are logged and swallowed: the original caller was
// already served from cache.
func (s *Service) refreshInBackground(url string, key Key) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.refreshTimeout)
		defer cancel()

		payload, err := s.fetcher.GetBytes(ctx, url)
		if err != nil {
			cacheRefreshes.WithLabelValues("fetch_error").Inc()
			s.log.Warn().Err(err).Str("url", url).Msg("background refresh failed")
			return
		}
		if err := store.PutCachedEntry(ctx, s.db, key.Subject, key.Platform, payload); err != nil {
			cacheRefreshes.WithLabelValues("store_error").Inc()
			s.log.Warn().Err(err).Str("subject", key.Subject).Msg("background refresh store write failed")
			return
		}
		cacheRefreshes.WithLabelValues("ok").Inc()
	}()
}
