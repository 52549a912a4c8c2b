package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketlens/internal/shared/testutil"
)

func setup(t *testing.T) string {
	t.Helper()
	t.Setenv("MARKETLENS_PATHS_BASE_DIR", t.TempDir())
	return testutil.WriteDocuments(t, testutil.ScenarioValueJSON, "", "")
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o *options)
	}{
		{
			name: "lists are split and trimmed",
			args: []string{"-segment-type", "By Product", "-segments", "Sub A1, Sub A2,", "-geographies", "Global"},
			check: func(t *testing.T, o *options) {
				assert.Equal(t, []string{"Sub A1", "Sub A2"}, o.segments)
				assert.Equal(t, []string{"Global"}, o.geographies)
				assert.Nil(t, o.request().Filter.AggregationLevel)
			},
		},
		{
			name: "level is pinned",
			args: []string{"-segment-type", "By Product", "-level", "2", "-business-type", "b2b"},
			check: func(t *testing.T, o *options) {
				req := o.request()
				assert.Equal(t, 2, req.Filter.PinnedLevel())
				assert.Equal(t, "B2B", req.Filter.BusinessType)
			},
		},
		{name: "segment type required", args: []string{"-level", "2"}, wantErr: true},
		{name: "level out of range", args: []string{"-segment-type", "By Product", "-level", "7"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, &bytes.Buffer{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, opts)
		})
	}
}

func TestRun_Report(t *testing.T) {
	dir := setup(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-dir", dir, "-segment-type", "By Product", "-level", "2"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Product A")
	assert.Contains(t, out, "total 25 in 2023")
	assert.NotContains(t, out, "Sub A1")
}

func TestRun_JSON(t *testing.T) {
	dir := setup(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-dir", dir, "-segment-type", "By Product", "-json"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
	summary := result["summary"].(map[string]interface{})
	assert.Equal(t, float64(25), summary["total"])
}

func TestRun_Export(t *testing.T) {
	dir := setup(t)
	out := filepath.Join(t.TempDir(), "report.csv")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-dir", dir, "-segment-type", "By Product", "-out", out}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Sub A2")
	assert.Contains(t, stderr.String(), out)
}

func TestRun_Errors(t *testing.T) {
	dir := setup(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing documents", args: []string{"-dir", t.TempDir(), "-segment-type", "By Product"}},
		{name: "year off the axis", args: []string{"-dir", dir, "-segment-type", "By Product", "-year", "1999"}},
		{name: "unsupported export", args: []string{"-dir", dir, "-segment-type", "By Product", "-format", "pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{}, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestRun_VerboseLogsShareOneTraceID(t *testing.T) {
	dir := setup(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-dir", dir, "-segment-type", "By Product", "-v"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	ids := map[string]bool{}
	for _, line := range strings.Split(stderr.String(), "\n") {
		if i := strings.Index(line, "trace_id="); i >= 0 {
			ids[strings.Fields(line[i+len("trace_id="):])[0]] = true
		}
	}
	assert.Contains(t, stderr.String(), "dataset ingested")
	assert.Len(t, ids, 1, "every context-aware log line carries the run's trace ID")
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), "MarketLens v")
}

func TestRun_Help(t *testing.T) {
	err := run(context.Background(), []string{"-h"}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, flag.ErrHelp)
}
