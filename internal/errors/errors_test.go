package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{ErrUnsupportedFormat, http.StatusBadRequest, "UNSUPPORTED_FORMAT"},
		{ErrNoDataset, http.StatusNotFound, "NO_DATASET"},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{ErrIngestionFailed, http.StatusUnprocessableEntity, "INGESTION_FAILED"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("segmentType", "is required")

	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, ValidationError{Field: "segmentType", Message: "is required"}, err.Details)
}

func TestWithDetails(t *testing.T) {
	err := ErrUnsupportedFormat.WithDetails("pdf")

	assert.Equal(t, "pdf", err.Details)
	assert.Equal(t, ErrUnsupportedFormat.ErrorCode, err.ErrorCode)
	assert.Nil(t, ErrUnsupportedFormat.Details, "sentinel is not modified")
}

func TestIngestionFailedError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "plain error", err: errors.New("no year keys found"), want: "no year keys found"},
		{
			name: "app error",
			err:  NewIngestionError("value document not found", errors.New("no value.json in /data")),
			want: "value document not found: no value.json in /data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := IngestionFailedError(tt.err)
			assert.Equal(t, http.StatusUnprocessableEntity, err.StatusCode)
			assert.Equal(t, "INGESTION_FAILED", err.ErrorCode)
			assert.Equal(t, tt.want, err.Details)
		})
	}
}

func TestFromAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantCode   string
		wantDetail interface{}
	}{
		{
			name:       "validation",
			err:        NewAppValidationError("bad filter"),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "ingestion with cause",
			err:        NewIngestionError("dataset could not be built", errors.New("no geography found")),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INGESTION_FAILED",
			wantDetail: "dataset could not be built: no geography found",
		},
		{
			name:       "query with cause",
			err:        NewQueryError("year outside the dataset range", errors.New("1999")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "QUERY",
			wantDetail: "1999",
		},
		{
			name:       "storage cause hidden",
			err:        NewStorageError("export failed", errors.New("disk full")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "STORAGE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := FromAppError(tt.err)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.ErrorCode)
			assert.Equal(t, tt.wantDetail, apiErr.Details)
		})
	}
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "segmentType", Message: "required"},
		{Field: "businessType", Message: "oneof"},
	})

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	assert.Len(t, details.Errors, 2)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNoDataset, "Not Found", "no dataset", "/api/query").
		WithExtension("trace_id", "req-1")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeNoDataset, body["type"])
	assert.Equal(t, float64(404), body["status"])
	assert.Equal(t, "req-1", body["trace_id"])
	assert.Equal(t, "/api/query", body["instance"])
}
