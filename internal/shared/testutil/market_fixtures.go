package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Document file names written by WriteDocuments. They match the configured
// defaults.
const (
	ValueFileName     = "value.json"
	VolumeFileName    = "volume.json"
	StructureFileName = "structure.json"
)

// ScenarioValueJSON is the smallest useful hierarchy: one aggregated parent
// with two leaves.
const ScenarioValueJSON = `{
  "Global": {
    "By Product": {
      "Product A": {
        "Sub A1": {"2023": 10},
        "Sub A2": {"2023": 15}
      }
    }
  }
}`

// MarketValueJSON covers two geographies, uneven depth, a B2B/B2C split,
// numeric strings and nulls.
const MarketValueJSON = `{
  "Global": {
    "By Product": {
      "Product A": {
        "Sub A1": {"2023": 10, "2024": 12, "CAGR": "10%"},
        "Sub A2": {"2023": 15, "2024": 18, "CAGR": "20%"}
      },
      "Product B": {"2023": 30, "2024": 33, "CAGR": "10%"}
    },
    "By Channel": {
      "B2B": {
        "Direct": {"2023": 20, "2024": 22, "CAGR": "8%"},
        "Distributor": {"2023": 5, "2024": 6, "CAGR": "12%"}
      },
      "B2C": {
        "Retail": {"2023": 25, "2024": 29, "CAGR": "15%"},
        "Online": {"2023": "5", "2024": null, "CAGR": "25%"}
      }
    }
  },
  "North America": {
    "By Product": {
      "Product A": {
        "Sub A1": {"2023": 4, "2024": 5, "CAGR": "9%"},
        "Sub A2": {"2023": 6, "2024": 7, "CAGR": "11%"}
      },
      "Product B": {"2023": 10, "2024": 11, "CAGR": "10%"}
    }
  }
}`

// MarketVolumeJSON is a volume companion for MarketValueJSON.
const MarketVolumeJSON = `{
  "Global": {
    "By Product": {
      "Product A": {
        "Sub A1": {"2023": 100, "2024": 110},
        "Sub A2": {"2023": 200, "2024": 220}
      },
      "Product B": {"2023": 50, "2024": 55}
    }
  }
}`

// MarketStructureJSON lists segments, including ones without data.
const MarketStructureJSON = `{
  "Global": {
    "By Product": {
      "Product A": ["Sub A1", "Sub A2"],
      "Product B": {},
      "Product C": {}
    },
    "By Channel": {
      "B2B": ["Direct", "Distributor"],
      "B2C": ["Retail", "Online"]
    }
  },
  "North America": {
    "By Product": {
      "Product A": ["Sub A1", "Sub A2"],
      "Product B": {}
    }
  }
}`

// WriteDocuments writes the non-empty documents into a temporary directory
// and returns it.
func WriteDocuments(t *testing.T, value, volume, structure string) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		ValueFileName:     value,
		VolumeFileName:    volume,
		StructureFileName: structure,
	}
	for name, content := range files {
		if content == "" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
