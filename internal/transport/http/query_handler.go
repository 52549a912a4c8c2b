package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apierrors "marketlens/internal/errors"
	"marketlens/internal/exporter"
	mw "marketlens/internal/middleware"
	"marketlens/internal/services"
	v1 "marketlens/pkg/contracts/api/v1"
)

// QueryHandler handles filter queries and exports
type QueryHandler struct {
	service      QueryServiceInterface
	validator    *mw.ValidationMiddleware
	params       *mw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(service QueryServiceInterface, validator *mw.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if errorHandler == nil {
		errorHandler = apierrors.NewErrorHandler(logger, false)
	}
	if validator == nil {
		validator = mw.NewValidationMiddleware(logger, errorHandler, 0)
	}
	return &QueryHandler{
		service:      service,
		validator:    validator,
		params:       mw.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "query_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the query routes
func (h *QueryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(mw.ContentTypeValidator("application/json"))
	r.Post("/", h.Query)
	r.Post("/export", h.Export)
	return r
}

// Query handles POST /api/query
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req v1.QueryRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Query(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	render.JSON(w, r, result)
}

// Export handles POST /api/query/export?format=csv|xlsx&year=YYYY. Query
// parameters win over the body's fields. The file is rendered in
// memory first so a failure still produces a problem response.
func (h *QueryHandler) Export(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())

	var req v1.ExportRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	format, ok := h.params.ValidateEnum(w, r, "format",
		[]string{string(exporter.FormatCSV), string(exporter.FormatXLSX)}, req.Format)
	if !ok {
		return
	}
	req.Format = format

	year, ok := h.params.ValidateInt(w, r, "year", 0, 9999, req.Year)
	if !ok {
		return
	}
	req.Year = year

	var buf bytes.Buffer
	f, err := h.service.Export(r.Context(), req, &buf)
	if err != nil {
		h.errorHandler.HandleError(w, r, serviceError(err))
		return
	}

	name := exportName(req, f)
	h.logger.InfoContext(r.Context(), "export rendered",
		slog.String("request_id", reqID),
		slog.String("format", string(f)),
		slog.String("file", name),
		slog.Int("bytes", buf.Len()),
	)

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
	}
}

// exportName returns the caller's file name with the right extension, or a
// generated one.
func exportName(req v1.ExportRequest, f exporter.Format) string {
	if req.FileName == "" {
		return services.ExportFileName(req.Metric, f)
	}
	name := filepath.Base(req.FileName)
	if !strings.EqualFold(filepath.Ext(name), f.Extension()) {
		name += f.Extension()
	}
	return name
}
