package delivery

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Nengock/katepeh/internal/config"
	"github.com/Nengock/katepeh/internal/domain"
	"github.com/Nengock/katepeh/internal/usecase"
)

// Handler wires the recognition use cases to the HTTP surface.
type Handler struct {
	cfg       *config.Config
	recognize *usecase.RecognizeUseCase
	upload    *usecase.UploadUseCase
	export    *usecase.ExportUseCase
	audit     domain.ExtractionRepository
	logger    *slog.Logger
	metrics   *Metrics
	registry  *prometheus.Registry
}

func NewHandler(
	cfg *config.Config,
	recognize *usecase.RecognizeUseCase,
	upload *usecase.UploadUseCase,
	export *usecase.ExportUseCase,
	audit domain.ExtractionRepository,
	logger *slog.Logger,
) *Handler {
	registry := prometheus.NewRegistry()
	return &Handler{
		cfg:       cfg,
		recognize: recognize,
		upload:    upload,
		export:    export,
		audit:     audit,
		logger:    logger,
		metrics:   NewMetrics(registry),
		registry:  registry,
	}
}

// Router builds the chi router with the full middleware chain.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(Recoverer(h.logger))
	r.Use(NewRateLimiter(h.cfg.RateLimitPerMinute).Middleware)
	r.Use(ProcessTime(h.logger))
	r.Use(h.metrics.Middleware)

	r.Get("/", h.handleRoot)
	r.Get("/health", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))

	r.Route(h.cfg.APIPrefix, func(api chi.Router) {
		api.Get("/health", h.handleHealth)
		api.Post("/upload", h.handleUpload)
		api.Post("/extract", h.handleExtract)
		api.Get("/export/{format}", h.handleExport)
		api.Get("/extractions", h.handleExtractions)
	})

	return r
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to " + h.cfg.ProjectName,
		"health":  "/health",
		"api":     h.cfg.APIPrefix,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"components": map[string]string{
			"preprocessor": "ok",
			"analyzer":     "ok",
			"ocr":          "ok",
			"extractor":    "ok",
		},
	})
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	FileID  string `json:"file_id"`
	FileURL string `json:"file_url"`
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, meta, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.upload.Upload(r.Context(), data, meta)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Message: "file uploaded successfully",
		FileID:  result.FileID,
		FileURL: result.URL,
	})
}

type extractResponse struct {
	KTPData         *domain.KTPRecord `json:"ktp_data"`
	ConfidenceScore float64           `json:"confidence_score"`
}

func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	bypass := parseBool(r.URL.Query().Get("bypass_validation"), false)

	data, meta, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	start := time.Now()
	result, err := h.recognize.Recognize(r.Context(), data, meta, bypass)
	h.metrics.ObserveExtraction(time.Since(start), err != nil)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.export.SetLastRecord(result.Record)
	writeJSON(w, http.StatusOK, extractResponse{
		KTPData:         result.Record,
		ConfidenceScore: result.Confidence,
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")

	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case "json":
		payload, err = h.export.ExportJSON()
		contentType = "application/json"
	case "csv":
		payload, err = h.export.ExportCSV()
		contentType = "text/csv"
	case "pdf":
		payload, err = h.export.ExportPDF()
		contentType = "application/pdf"
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "unsupported export format: " + format + "; use 'json', 'csv' or 'pdf'",
		})
		return
	}
	if err != nil {
		if errors.Is(err, usecase.ErrNoRecord) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no extracted record available for export",
			})
			return
		}
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="ktp_export.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

type extractionEntry struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Confidence  float64   `json:"confidence"`
	DurationMS  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// handleExtractions lists recent audit rows, newest first. Only available
// when a database is configured.
func (h *Handler) handleExtractions(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "extraction audit trail is not configured",
		})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.audit.ListExtractions(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entries := make([]extractionEntry, len(events))
	for i, e := range events {
		entries[i] = extractionEntry{
			ID:          e.ID.String(),
			FileName:    e.FileName,
			ContentType: e.ContentType,
			SizeBytes:   e.SizeBytes,
			Confidence:  e.Confidence,
			DurationMS:  e.Duration.Milliseconds(),
			Status:      string(e.Status),
			CreatedAt:   e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"extractions": entries})
}

// readUpload pulls the "file" part out of the multipart form and enforces
// the size and content type limits before any decoding happens.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, usecase.UploadMeta, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxContentLength+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, usecase.UploadMeta{}, domain.NewValidationError("file too large: maximum size is 10MB")
		}
		return nil, usecase.UploadMeta{}, domain.NewValidationError("no file provided: expected multipart field 'file'")
	}
	defer file.Close()

	if header.Size > h.cfg.MaxContentLength {
		return nil, usecase.UploadMeta{}, domain.NewValidationError("file too large: maximum size is 10MB")
	}
	contentType := header.Header.Get("Content-Type")
	if !h.cfg.AllowsContentType(contentType) {
		return nil, usecase.UploadMeta{}, domain.NewValidationError(
			"unsupported file type: " + contentType + "; only JPEG and PNG images are supported")
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, usecase.UploadMeta{}, domain.NewDocumentError("failed to read uploaded file", err)
	}

	return data, usecase.UploadMeta{
		FileName:    header.Filename,
		ContentType: contentType,
		SizeBytes:   header.Size,
	}, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if pe, ok := domain.AsProcessingError(err); ok {
		body := map[string]string{"error": pe.Message}
		if pe.StatusCode >= http.StatusInternalServerError {
			body["type"] = "processing_error"
			h.logger.Error("request failed", "error", err)
		}
		writeJSON(w, pe.StatusCode, body)
		return
	}
	h.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "An unexpected error occurred",
		"type":  "internal_error",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}
