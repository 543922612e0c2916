package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"fleetsum/internal/config"
	apierrors "fleetsum/internal/errors"
	"fleetsum/internal/ingest"
	"fleetsum/internal/middleware"
	"fleetsum/internal/services"
	"fleetsum/internal/summary"
)

// SummaryServiceInterface is the service surface the handler depends on.
type SummaryServiceInterface interface {
	TripSummary(ctx context.Context, files []ingest.File, filter summary.Filter) (*services.TripSummaryResult, error)
	ExportTrips(ctx context.Context, files []ingest.File, filter summary.Filter, kind services.ReportKind) (*services.Export, error)
	CombineSummary(ctx context.Context, files []ingest.File) (*services.CombineResult, error)
	ExportCombined(ctx context.Context, files []ingest.File) (*services.Export, error)
}

// xlsxContentType is the MIME type for xlsx downloads.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// summaryForm holds the filter selections submitted with an upload batch.
type summaryForm struct {
	From   string   `validate:"omitempty,datetime=2006-01-02"`
	To     string   `validate:"omitempty,datetime=2006-01-02"`
	Fleets []string `validate:"-"`
	Report string   `validate:"omitempty,oneof=daily fleet workbook"`
}

// SummaryHandler handles summary computation and export requests.
type SummaryHandler struct {
	service      SummaryServiceInterface
	upload       config.UploadConfig
	validate     *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(service SummaryServiceInterface, upload config.UploadConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *SummaryHandler {
	return &SummaryHandler{
		service:      service,
		upload:       upload,
		validate:     validator.New(),
		logger:       logger.With(slog.String("component", "summary_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the summary routes.
func (h *SummaryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/trips", h.TripSummary)
	r.Post("/trips/export", h.ExportTrips)
	r.Post("/combine", h.CombineSummary)
	r.Post("/combine/export", h.ExportCombined)

	return r
}

// TripSummary handles POST /api/summary/trips
func (h *SummaryHandler) TripSummary(w http.ResponseWriter, r *http.Request) {
	files, form, cleanup, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	result, err := h.service.TripSummary(r.Context(), files, form.filter())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result.Daily),
	})
}

// ExportTrips handles POST /api/summary/trips/export
func (h *SummaryHandler) ExportTrips(w http.ResponseWriter, r *http.Request) {
	files, form, cleanup, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	kind := services.ReportKind(form.Report)
	if form.Report == "" {
		kind = services.ReportWorkbook
	}

	export, err := h.service.ExportTrips(r.Context(), files, form.filter(), kind)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrExportFailed(err))
		return
	}

	h.writeAttachment(w, r, export)
}

// CombineSummary handles POST /api/summary/combine
func (h *SummaryHandler) CombineSummary(w http.ResponseWriter, r *http.Request) {
	files, _, cleanup, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	result, err := h.service.CombineSummary(r.Context(), files)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   result,
		"count":  len(result.Fleet),
	})
}

// ExportCombined handles POST /api/summary/combine/export
func (h *SummaryHandler) ExportCombined(w http.ResponseWriter, r *http.Request) {
	files, _, cleanup, ok := h.parseUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	export, err := h.service.ExportCombined(r.Context(), files)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrExportFailed(err))
		return
	}

	h.writeAttachment(w, r, export)
}

// parseUpload reads the multipart form, enforces upload limits, and validates
// the filter fields. On failure it writes the error response and returns
// ok=false. On success the caller must defer cleanup, which closes the opened
// file handles and removes the form's temp files once the service is done
// reading them.
func (h *SummaryHandler) parseUpload(w http.ResponseWriter, r *http.Request) ([]ingest.File, *summaryForm, func(), bool) {
	reqID := middleware.GetReqID(r.Context())

	if err := r.ParseMultipartForm(h.upload.MaxMemory); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return nil, nil, nil, false
	}

	fail := func(files []ingest.File, err error) ([]ingest.File, *summaryForm, func(), bool) {
		closeFiles(files)
		r.MultipartForm.RemoveAll()
		h.errorHandler.HandleError(w, r, err)
		return nil, nil, nil, false
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return fail(nil, apierrors.ErrNoFiles)
	}
	if len(headers) > h.upload.MaxFiles {
		return fail(nil, apierrors.ErrTooManyFiles)
	}

	files, err := h.openFiles(headers)
	if err != nil {
		return fail(files, err)
	}

	form := &summaryForm{
		From:   r.FormValue("from"),
		To:     r.FormValue("to"),
		Fleets: r.MultipartForm.Value["fleets"],
		Report: r.URL.Query().Get("report"),
	}
	if err := h.validate.Struct(form); err != nil {
		return fail(files, apierrors.InvalidRequestWithError(err))
	}

	h.logger.InfoContext(r.Context(), "upload batch received",
		slog.String("request_id", reqID),
		slog.Int("files", len(files)),
		slog.String("from", form.From),
		slog.String("to", form.To))

	cleanup := func() {
		closeFiles(files)
		r.MultipartForm.RemoveAll()
	}
	return files, form, cleanup, true
}

// closeFiles closes every upload reader that carries a Close method.
func closeFiles(files []ingest.File) {
	for _, f := range files {
		if c, ok := f.Reader.(io.Closer); ok {
			c.Close()
		}
	}
}

// openFiles opens each uploaded part, rejecting oversized files. On error any
// already-opened parts are closed before returning.
func (h *SummaryHandler) openFiles(headers []*multipart.FileHeader) ([]ingest.File, error) {
	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.upload.MaxFileBytes {
			closeFiles(files)
			return nil, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"FILE_TOO_LARGE",
				fmt.Sprintf("file %s exceeds the %d byte limit", fh.Filename, h.upload.MaxFileBytes),
				fh.Filename,
			)
		}
		f, err := fh.Open()
		if err != nil {
			closeFiles(files)
			return nil, apierrors.InvalidRequestWithError(err)
		}
		files = append(files, ingest.File{Name: fh.Filename, Reader: f})
	}
	return files, nil
}

// writeAttachment streams a generated workbook as a download.
func (h *SummaryHandler) writeAttachment(w http.ResponseWriter, r *http.Request, export *services.Export) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(export.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(export.Data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write export",
			slog.String("filename", export.Filename),
			slog.String("error", err.Error()))
	}
}

// filter converts validated form fields into an aggregation filter.
func (f *summaryForm) filter() summary.Filter {
	var filter summary.Filter
	if f.From != "" {
		filter.From, _ = time.Parse("2006-01-02", f.From)
	}
	if f.To != "" {
		filter.To, _ = time.Parse("2006-01-02", f.To)
	}
	filter.Fleets = f.Fleets
	return filter
}
