// Package shared holds helpers used across MarketLens packages that belong to
// no single layer.
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on log output
//	- market hierarchy JSON fixtures and helpers writing them to disk
//
// Example usage:
//
//	func TestIngest(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    dir := testutil.WriteDocuments(t, testutil.ScenarioValueJSON, "", "")
//	    // ... run ingestion with logger against dir
//	    testutil.AssertLogContains(t, logs, slog.LevelInfo, "ingestion completed")
//	}
//
// testutil must not import other internal packages so that any package can
// use it from its own tests.
package shared
