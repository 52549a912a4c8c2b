package config

import "time"

// Application constants
const (
	// Application Info
	AppName     = "MarketLens"
	AppVersion  = "1.0.0"
	ServiceName = "marketlens"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Timeouts
	DefaultRequestTimeout = 60 * time.Second
	WebSocketPingPeriod   = 30 * time.Second
	WebSocketPongWait     = 60 * time.Second

	// WebSocket Buffer Sizes
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// File Paths (relative to the base directory)
	DefaultDataDir    = "data"
	DefaultLogsDir    = "logs"
	DefaultExportsDir = "data/exports"

	// Document file names inside the data directory
	DefaultValueFile     = "value.json"
	DefaultVolumeFile    = "volume.json"
	DefaultStructureFile = "structure.json"

	// Ingestion
	DefaultMaxDepth         = 20
	DefaultYieldEvery       = 500
	DefaultMaxDocumentBytes = 64 << 20 // 64MB

	// API Endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
