// Package config provides centralized configuration management for MarketLens.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//  1. Default values (Default)
//  2. A YAML file: MARKETLENS_CONFIG_FILE, config.yaml or configs/config.yaml
//  3. Environment variables, optionally loaded from a .env file
//
// # Environment Variables
//
// Variables follow the section structure under the MARKETLENS prefix:
//
//	MARKETLENS_SERVER_PORT=8080
//	MARKETLENS_LOGGING_LEVEL=debug
//	MARKETLENS_PATHS_DATA_DIR=/srv/marketlens/data
//	MARKETLENS_INGESTION_MAX_DEPTH=20
//	MARKETLENS_INGESTION_LENIENT=false
//
// # Path Management
//
// ResolvePaths turns configured directories into absolute paths anchored at
// the base directory (the executable directory unless configured):
//
//	paths, err := config.ResolvePaths(cfg.Paths)
//	valuePath := paths.ValueFile
//	exportPath := paths.GetExportPath("query.xlsx")
//
// # Validation
//
// The loaded configuration is checked with go-playground/validator struct
// tags; Load fails on the first invalid section.
package config
