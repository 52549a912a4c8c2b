// Package app wires the MarketLens server together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. Load configuration (config.Load) and initialize the process logger
//	2. Resolve and create the data, exports and logs directories
//	3. Initialize OpenTelemetry (tracer, meter, Prometheus registry)
//	4. Create the session, websocket hub and dataset/health services
//	5. Build the chi router with the middleware chain and API routes
//
// New takes an explicit configuration and logger, which is what tests use;
// NewApplication does the loading itself.
//
// # Middleware Order
//
//	RequestID → RealIP → OTel → StructuredLogger → Recovery →
//	SecureHeaders → CORS → RateLimiter → Timeout → Compress →
//	ValidateRequest → AuditLog
//
// /ws and /metrics sit outside the group and only see RequestID and RealIP.
//
// # Startup and Shutdown
//
// Start ingests the configured data directory when ingestion.load_on_start
// is set. A failed initial ingestion is logged and the server comes up
// without a dataset; clients can upload or reload later. Run blocks until
// SIGINT or SIGTERM, then Stop drains the HTTP server, disconnects websocket
// clients and flushes telemetry.
package app
