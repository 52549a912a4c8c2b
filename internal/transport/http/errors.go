package http

import (
	"errors"
	"net/http"

	apierrors "marketlens/internal/errors"
	"marketlens/internal/services"
	"marketlens/internal/validation"
)

// serviceError maps service sentinels to API errors. Anything else,
// including *AppError, is returned unchanged for the ErrorHandler.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrNoDataset):
		return apierrors.ErrNoDataset
	case errors.Is(err, services.ErrUnknownSegmentType):
		return apierrors.NewWithDetails(http.StatusNotFound, "UNKNOWN_SEGMENT_TYPE", "Segment type not found in dataset", err.Error())
	case errors.Is(err, services.ErrMetricUnavailable):
		return apierrors.NewWithDetails(http.StatusBadRequest, "METRIC_UNAVAILABLE", "Metric not loaded for the active dataset", err.Error())
	case errors.Is(err, services.ErrUnsupportedFormat):
		return apierrors.ErrUnsupportedFormat.WithDetails(err.Error())
	}
	return err
}

// uploadError is serviceError plus the size limit, which is the caller's
// fault only when the caller sent the document.
func uploadError(err error) error {
	if errors.Is(err, validation.ErrFileTooLarge) {
		return apierrors.ErrPayloadTooLarge.WithDetails(err.Error())
	}
	return serviceError(err)
}
