// Package exporter writes query results to files and HTTP responses.
//
// RecordExporter lays out records as a table (dimensions, hierarchy
// levels, aggregation flags, growth, market share and one column per year)
// and encodes it as UTF-8 CSV with a BOM or as an XLSX workbook:
//
//	exp := exporter.NewRecordExporter(paths, logger)
//	err := exp.Export(ctx, w, exporter.FormatXLSX, records, axis.Years)
//
// EncodeCSV is the lower-level encoder used for ad-hoc tables.
package exporter
