package domain

import "errors"

// ErrExhaustedSources is returned by the fetch cascade when every configured
// strategy, including the cache fallback, failed or produced zero records.
var ErrExhaustedSources = errors.New("all fetch strategies exhausted")

// ErrCacheMiss is returned by the cache store when no previous batch exists.
var ErrCacheMiss = errors.New("cache miss")

// ErrNoRecords marks a strategy response that succeeded at the transport
// level but contained nothing parseable; the cascade treats it as a
// strategy failure, not a legitimately empty result.
var ErrNoRecords = errors.New("strategy returned no records")
