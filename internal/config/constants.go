package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// USSD gateways drop a request after a few seconds, so the engine gets less.
const UssdRequestTimeout = 8 * time.Second

// Notification enqueue timeout per event
const NotifyEnqueueTimeout = 3 * time.Second

// Window for the USSD callback rate limit
const UssdRateLimitWindow = time.Minute

// Upper bound for one no-show sweep
const NoShowSweepTimeout = 30 * time.Second
