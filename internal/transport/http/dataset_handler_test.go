package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "marketlens/internal/errors"
	"marketlens/internal/services"
	"marketlens/internal/validation"
	v1 "marketlens/pkg/contracts/api/v1"
	"marketlens/pkg/contracts/domain"
)

// MockDatasetService is a mock implementation of DatasetServiceInterface
type MockDatasetService struct {
	mock.Mock
}

func (m *MockDatasetService) Current(ctx context.Context) (*domain.Dataset, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) IngestUpload(ctx context.Context, req v1.UploadRequest) (*domain.Dataset, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) IngestDirectory(ctx context.Context, opts services.IngestOptions) (*domain.Dataset, error) {
	args := m.Called(opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Dataset), args.Error(1)
}

func (m *MockDatasetService) Dimensions(ctx context.Context) (*v1.DimensionsResponse, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*v1.DimensionsResponse), args.Error(1)
}

func (m *MockDatasetService) SegmentDimension(ctx context.Context, segmentType string) (*domain.SegmentDimension, error) {
	args := m.Called(segmentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SegmentDimension), args.Error(1)
}

func sampleDataset() *domain.Dataset {
	return &domain.Dataset{
		ID:        "ds-1",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Value:     &domain.RecordSet{Records: make([]domain.Record, 4)},
		YearAxis:  domain.NewYearAxis([]int{2023}),
		Dimensions: domain.Dimensions{
			Geographies:  []string{"Global"},
			SegmentTypes: []string{"By Product"},
		},
	}
}

func serveDataset(t *testing.T, svc *MockDatasetService, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	handler := NewDatasetHandler(svc, nil, nil, nil)

	router := chi.NewRouter()
	router.Mount("/api/dataset", handler.Routes())

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestDatasetHandler_GetDataset(t *testing.T) {
	tests := []struct {
		name           string
		setupMock      func(*MockDatasetService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "dataset loaded",
			setupMock: func(m *MockDatasetService) {
				m.On("Current").Return(sampleDataset(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "no dataset",
			setupMock: func(m *MockDatasetService) {
				m.On("Current").Return(nil, services.ErrNoDataset)
			},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "NO_DATASET",
		},
		{
			name: "internal error",
			setupMock: func(m *MockDatasetService) {
				m.On("Current").Return(nil, errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDatasetService)
			tt.setupMock(svc)

			rec := serveDataset(t, svc, http.MethodGet, "/api/dataset", "")

			assert.Equal(t, tt.expectedStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["error_code"])
			}
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "ds-1", body["id"])
				assert.Equal(t, float64(4), body["value_records"])
				assert.Equal(t, false, body["has_volume"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDatasetHandler_Upload(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockDatasetService)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "created",
			body: `{"value": {"Global": {}}, "lenient": false}`,
			setupMock: func(m *MockDatasetService) {
				m.On("IngestUpload", mock.MatchedBy(func(req v1.UploadRequest) bool {
					return req.Lenient != nil && !*req.Lenient && strings.Contains(string(req.Value), "Global")
				})).Return(sampleDataset(), nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "value missing",
			body:           `{"volume": {}}`,
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "malformed body",
			body:           `{"value": `,
			setupMock:      func(m *MockDatasetService) {},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_REQUEST",
		},
		{
			name: "ingestion failed",
			body: `{"value": {}}`,
			setupMock: func(m *MockDatasetService) {
				m.On("IngestUpload", mock.Anything).
					Return(nil, apierrors.NewIngestionError("no geography", errors.New("empty")))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   "INGESTION_FAILED",
		},
		{
			name: "document too large",
			body: `{"value": {"Global": {}}}`,
			setupMock: func(m *MockDatasetService) {
				m.On("IngestUpload", mock.Anything).
					Return(nil, fmt.Errorf("value: %w", validation.ErrFileTooLarge))
			},
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedCode:   "PAYLOAD_TOO_LARGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDatasetService)
			tt.setupMock(svc)

			rec := serveDataset(t, svc, http.MethodPost, "/api/dataset", tt.body)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeBody(t, rec)["error_code"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestDatasetHandler_RequiresJSON(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		contentType    string
		expectedStatus int
		expectedCode   string
	}{
		{name: "upload as text", path: "/api/dataset", contentType: "text/plain", expectedStatus: http.StatusUnsupportedMediaType, expectedCode: "UNSUPPORTED_MEDIA_TYPE"},
		{name: "upload as form", path: "/api/dataset", contentType: "application/x-www-form-urlencoded", expectedStatus: http.StatusUnsupportedMediaType, expectedCode: "UNSUPPORTED_MEDIA_TYPE"},
		{name: "reload without content type", path: "/api/dataset/reload", expectedStatus: http.StatusBadRequest, expectedCode: "MISSING_CONTENT_TYPE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDatasetService)
			router := chi.NewRouter()
			router.Mount("/api/dataset", NewDatasetHandler(svc, nil, nil, nil).Routes())

			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"value": {"Global": {}}}`))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.expectedCode, decodeBody(t, rec)["error_code"])
			svc.AssertNotCalled(t, "IngestUpload", mock.Anything)
			svc.AssertNotCalled(t, "IngestDirectory", mock.Anything)
		})
	}
}

func TestDatasetHandler_Reload(t *testing.T) {
	t.Run("without body", func(t *testing.T) {
		svc := new(MockDatasetService)
		svc.On("IngestDirectory", services.IngestOptions{}).Return(sampleDataset(), nil)

		rec := serveDataset(t, svc, http.MethodPost, "/api/dataset/reload", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ds-1", decodeBody(t, rec)["id"])
		svc.AssertExpectations(t)
	})

	t.Run("lenient override", func(t *testing.T) {
		svc := new(MockDatasetService)
		svc.On("IngestDirectory", mock.MatchedBy(func(opts services.IngestOptions) bool {
			return opts.Lenient != nil && *opts.Lenient
		})).Return(sampleDataset(), nil)

		rec := serveDataset(t, svc, http.MethodPost, "/api/dataset/reload", `{"lenient": true}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("missing documents", func(t *testing.T) {
		svc := new(MockDatasetService)
		svc.On("IngestDirectory", mock.Anything).
			Return(nil, apierrors.NewIngestionError("value document not found", validation.ErrFileNotFound))

		rec := serveDataset(t, svc, http.MethodPost, "/api/dataset/reload", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestDatasetHandler_Dimensions(t *testing.T) {
	svc := new(MockDatasetService)
	svc.On("Dimensions").Return(&v1.DimensionsResponse{
		DatasetID:  "ds-1",
		Dimensions: domain.Dimensions{SegmentTypes: []string{"By Product"}},
	}, nil)
	svc.On("SegmentDimension", "By Product").Return(&domain.SegmentDimension{
		SegmentType: "By Product",
		Items:       []string{"Product A"},
	}, nil)
	svc.On("SegmentDimension", "By Region").
		Return(nil, fmt.Errorf("%w: By Region", services.ErrUnknownSegmentType))

	rec := serveDataset(t, svc, http.MethodGet, "/api/dataset/dimensions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ds-1", decodeBody(t, rec)["dataset_id"])

	rec = serveDataset(t, svc, http.MethodGet, "/api/dataset/dimensions/By%20Product", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "By Product", decodeBody(t, rec)["segment_type"])

	rec = serveDataset(t, svc, http.MethodGet, "/api/dataset/dimensions/By%20Region", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UNKNOWN_SEGMENT_TYPE", decodeBody(t, rec)["error_code"])

	svc.AssertExpectations(t)
}
