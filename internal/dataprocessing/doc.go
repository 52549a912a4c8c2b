// Package dataprocessing turns market documents into queryable datasets.
//
// # Architecture
//
// A Pipeline run has three stages:
//
//  1. Decode: value, volume and structure documents are parsed concurrently
//     into ordered hierarchies (strict JSON, then repaired JSON, then hjson
//     when lenient decoding is enabled).
//  2. Aggregate: a private copy of each numeric document is rolled up so
//     every parent carries the sum of its children.
//  3. Flatten: aggregated, raw and structure documents are merged into one
//     record per path plus the dimension catalogue.
//
// The Summarizer works on query results: per-year totals, totals by
// geography and the market share of each record for one year.
//
// # Usage
//
//	p := dataprocessing.NewPipeline(logger, dataprocessing.PipelineConfig{Lenient: true})
//	ds, err := p.Run(ctx, dataprocessing.Documents{
//	    Value: dataprocessing.Source{Name: "value.json", Data: data},
//	})
//
// # Error Handling
//
// Only the value document can fail a run. Errors are *errors.AppError values
// of type PARSING or INGESTION; the underlying cause (ErrNoYears,
// ErrNoGeography, hierarchy.ErrInvalidDocument) is reachable with errors.Is.
// Companion document failures, cycles, depth overflow and invalid values are
// logged and counted in the dataset's IngestReport.
package dataprocessing
