// Package constants centralizes the tunable defaults shared across the
// engine, transport, and CLI.
package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files, which may
	// hold credentials.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of attempts when
	// retry is enabled.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum backoff between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum backoff between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency limits.
const (
	// DefaultConcurrencyLimit caps concurrent calls in a batch.
	DefaultConcurrencyLimit = 3
)

// Cache defaults.
const (
	// DefaultCacheSize is the default memory cache capacity.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default time-to-live for cached payloads.
	DefaultCacheTTL = 5 * time.Minute
)

// HTTP status boundaries used by the engine.
const (
	// HTTPStatusBadRequest is the lowest status treated as a failure.
	HTTPStatusBadRequest = 400
)

// Client identity.
const (
	// DefaultUserAgent identifies the dispatcher on the wire.
	DefaultUserAgent = "dispatch-go"
)
