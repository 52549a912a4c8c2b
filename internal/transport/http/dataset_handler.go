package http

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "marketlens/internal/errors"
	mw "marketlens/internal/middleware"
	"marketlens/internal/services"
	v1 "marketlens/pkg/contracts/api/v1"
)

// DatasetHandler handles dataset ingestion and metadata requests
type DatasetHandler struct {
	service      DatasetServiceInterface
	validator    *mw.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetServiceInterface, validator *mw.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	if validator == nil {
		validator = mw.NewValidationMiddleware(logger, errorHandler, 0)
	}
	return &DatasetHandler{
		service:      service,
		validator:    validator,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dataset routes
func (h *DatasetHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", h.GetDataset)
	r.Group(func(r chi.Router) {
		r.Use(mw.ContentTypeValidator("application/json"))
		r.Post("/", h.UploadDataset)
		r.Post("/reload", h.ReloadDataset)
	})

	r.Route("/dimensions", func(r chi.Router) {
		r.Get("/", h.GetDimensions)
		r.Get("/{segmentType}", h.GetSegmentDimension)
	})

	return r
}

// GetDataset handles GET /api/dataset
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Current(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, v1.NewDatasetResponse(ds))
}

// UploadDataset handles POST /api/dataset
func (h *DatasetHandler) UploadDataset(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req v1.UploadRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "ingesting uploaded documents",
		slog.String("request_id", reqID),
		slog.Int("value_bytes", len(req.Value)),
		slog.Int("volume_bytes", len(req.Volume)),
		slog.Int("structure_bytes", len(req.Structure)),
	)

	ds, err := h.service.IngestUpload(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, v1.NewDatasetResponse(ds))
}

// ReloadDataset handles POST /api/dataset/reload. The body is optional.
func (h *DatasetHandler) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	var req v1.ReloadRequest
	if r.ContentLength > 0 {
		if err := h.validator.DecodeAndValidate(r, &req); err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
	}

	ds, err := h.service.IngestDirectory(r.Context(), services.IngestOptions{Lenient: req.Lenient})
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	render.JSON(w, r, v1.NewDatasetResponse(ds))
}

// GetDimensions handles GET /api/dataset/dimensions
func (h *DatasetHandler) GetDimensions(w http.ResponseWriter, r *http.Request) {
	dims, err := h.service.Dimensions(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, dims)
}

// GetSegmentDimension handles GET /api/dataset/dimensions/{segmentType}
func (h *DatasetHandler) GetSegmentDimension(w http.ResponseWriter, r *http.Request) {
	segmentType, err := url.PathUnescape(chi.URLParam(r, "segmentType"))
	if err != nil || segmentType == "" {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("segmentType", "Segment type is required"))
		return
	}

	dim, err := h.service.SegmentDimension(r.Context(), segmentType)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, dim)
}
