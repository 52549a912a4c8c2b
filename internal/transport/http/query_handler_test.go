package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketlens/internal/dataprocessing"
	apierrors "marketlens/internal/errors"
	"marketlens/internal/exporter"
	"marketlens/internal/services"
	v1 "marketlens/pkg/contracts/api/v1"
	"marketlens/pkg/contracts/domain"
)

// MockQueryService is a mock implementation of QueryServiceInterface
type MockQueryService struct {
	mock.Mock
}

func (m *MockQueryService) Query(ctx context.Context, req v1.QueryRequest) (*services.QueryResult, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QueryResult), args.Error(1)
}

func (m *MockQueryService) Export(ctx context.Context, req v1.ExportRequest, out io.Writer) (exporter.Format, error) {
	args := m.Called(req)
	if content := args.String(2); content != "" {
		_, _ = io.WriteString(out, content)
	}
	return args.Get(0).(exporter.Format), args.Error(1)
}

func serveQuery(t *testing.T, svc *MockQueryService, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewQueryHandler(svc, nil, nil, nil)

	router := chi.NewRouter()
	router.Mount("/api/query", handler.Routes())

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestQueryHandler_Query(t *testing.T) {
	result := &services.QueryResult{
		DatasetID:      "ds-1",
		Metric:         domain.MetricValue,
		EffectiveLevel: 2,
		Summary: &dataprocessing.Summary{
			Year:  2023,
			Count: 1,
			Total: 25,
			Records: []domain.Record{
				{Geography: "Global", SegmentType: "By Product", Segment: "Product A"},
			},
		},
	}

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockQueryService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "pinned level",
			body: `{"filter": {"segmentType": "By Product", "aggregationLevel": 2}}`,
			setupMock: func(m *MockQueryService) {
				m.On("Query", mock.MatchedBy(func(req v1.QueryRequest) bool {
					return req.Filter.SegmentType == "By Product" && req.Filter.PinnedLevel() == 2
				})).Return(result, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "segment type required",
			body:           `{"filter": {}}`,
			setupMock:      func(m *MockQueryService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name: "no dataset",
			body: `{"filter": {"segmentType": "By Product"}}`,
			setupMock: func(m *MockQueryService) {
				m.On("Query", mock.Anything).Return(nil, services.ErrNoDataset)
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NO_DATASET",
		},
		{
			name: "volume not loaded",
			body: `{"filter": {"segmentType": "By Product"}, "metric": "volume"}`,
			setupMock: func(m *MockQueryService) {
				m.On("Query", mock.Anything).Return(nil, fmt.Errorf("%w: volume", services.ErrMetricUnavailable))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "METRIC_UNAVAILABLE",
		},
		{
			name: "year outside axis",
			body: `{"filter": {"segmentType": "By Product"}, "year": 1999}`,
			setupMock: func(m *MockQueryService) {
				m.On("Query", mock.Anything).Return(nil, apierrors.NewQueryError("year 1999 is not on the axis", nil))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "QUERY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockQueryService)
			tt.setupMock(svc)

			rec := serveQuery(t, svc, "/api/query", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			body := decodeBody(t, rec)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error_code"])
			} else {
				assert.Equal(t, float64(2), body["effective_level"])
				summary := body["summary"].(map[string]interface{})
				assert.Equal(t, float64(25), summary["total"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestQueryHandler_RequiresJSON(t *testing.T) {
	for _, path := range []string{"/api/query", "/api/query/export"} {
		t.Run(path, func(t *testing.T) {
			svc := new(MockQueryService)
			router := chi.NewRouter()
			router.Mount("/api/query", NewQueryHandler(svc, nil, nil, nil).Routes())

			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`<filter segmentType="By Product"/>`))
			req.Header.Set("Content-Type", "application/xml")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
			assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", decodeBody(t, rec)["error_code"])
			svc.AssertNotCalled(t, "Query", mock.Anything)
			svc.AssertNotCalled(t, "Export", mock.Anything)
		})
	}
}

func TestQueryHandler_Export(t *testing.T) {
	body := `{"filter": {"segmentType": "By Product"}, "format": "csv"}`

	t.Run("csv attachment", func(t *testing.T) {
		svc := new(MockQueryService)
		svc.On("Export", mock.MatchedBy(func(req v1.ExportRequest) bool {
			return req.Format == "csv"
		})).Return(exporter.FormatCSV, nil, "Geography,Segment\nGlobal,Sub A1\n")

		rec := serveQuery(t, svc, "/api/query/export", body)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, exporter.FormatCSV.ContentType(), rec.Header().Get("Content-Type"))
		disposition := rec.Header().Get("Content-Disposition")
		assert.Contains(t, disposition, "attachment")
		assert.Contains(t, disposition, "marketlens_value_")
		assert.Contains(t, rec.Body.String(), "Global,Sub A1")
	})

	t.Run("query parameter wins", func(t *testing.T) {
		svc := new(MockQueryService)
		svc.On("Export", mock.MatchedBy(func(req v1.ExportRequest) bool {
			return req.Format == "xlsx"
		})).Return(exporter.FormatXLSX, nil, "PK")

		rec := serveQuery(t, svc, "/api/query/export?format=XLSX",
			`{"filter": {"segmentType": "By Product"}, "format": "csv", "file_name": "market"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, exporter.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="market.xlsx"`)
		svc.AssertExpectations(t)
	})

	t.Run("year parameter", func(t *testing.T) {
		svc := new(MockQueryService)
		svc.On("Export", mock.MatchedBy(func(req v1.ExportRequest) bool {
			return req.Year == 2024
		})).Return(exporter.FormatCSV, nil, "Geography\n")

		rec := serveQuery(t, svc, "/api/query/export?year=2024", body)

		require.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed year parameter", func(t *testing.T) {
		svc := new(MockQueryService)
		rec := serveQuery(t, svc, "/api/query/export?year=soon", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Export", mock.Anything)
	})

	t.Run("unknown format parameter", func(t *testing.T) {
		svc := new(MockQueryService)
		rec := serveQuery(t, svc, "/api/query/export?format=pdf", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Export", mock.Anything)
	})

	t.Run("failure renders a problem", func(t *testing.T) {
		svc := new(MockQueryService)
		svc.On("Export", mock.Anything).Return(exporter.Format(""), errors.New("disk on fire"), "partial")

		rec := serveQuery(t, svc, "/api/query/export", body)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "partial")
		assert.Empty(t, rec.Header().Get("Content-Disposition"))
	})
}

func TestExportName(t *testing.T) {
	tests := []struct {
		name     string
		req      v1.ExportRequest
		format   exporter.Format
		expected string
	}{
		{name: "extension added", req: v1.ExportRequest{FileName: "report"}, format: exporter.FormatCSV, expected: "report.csv"},
		{name: "extension kept", req: v1.ExportRequest{FileName: "report.XLSX"}, format: exporter.FormatXLSX, expected: "report.XLSX"},
		{name: "mismatched extension", req: v1.ExportRequest{FileName: "report.csv"}, format: exporter.FormatXLSX, expected: "report.csv.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exportName(tt.req, tt.format))
		})
	}

	generated := exportName(v1.ExportRequest{QueryRequest: v1.QueryRequest{Metric: domain.MetricVolume}}, exporter.FormatCSV)
	assert.True(t, strings.HasPrefix(generated, "marketlens_volume_"))
}
