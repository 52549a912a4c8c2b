// Package files locates and reads the market documents an ingestion run
// consumes.
//
// Discovery resolves the value, volume and structure documents from the
// configured paths, validates them (regular file, accepted extension, size
// limit) and reads them into pipeline sources. The value document is
// required; the companions are optional and silently skipped when absent.
//
// Example usage:
//
//	discovery := files.NewDiscovery(paths, validator, logger)
//	found, docs, err := discovery.DiscoverAndLoad(ctx, "")
package files
