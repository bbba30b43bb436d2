package httpadapter

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/korzhov-lab/microscan/internal/core/domain"
	"github.com/korzhov-lab/microscan/internal/core/ports"
	"github.com/korzhov-lab/microscan/internal/observability/metrics"
)

type Router struct {
	ingest   ports.DocumentIngestor
	docs     ports.DocumentReader
	history  ports.HistoryReader
	exporter ports.RecordExporter
	settings ports.SettingsManager
	metrics  *metrics.HTTPServerMetrics

	rateLimitRPS   int
	rateLimitBurst int
	maxInFlight    int
}

type RouterConfig struct {
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(
	ingest ports.DocumentIngestor,
	docs ports.DocumentReader,
	history ports.HistoryReader,
	exporter ports.RecordExporter,
	settings ports.SettingsManager,
	httpMetrics *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	return &Router{
		ingest:         ingest,
		docs:           docs,
		history:        history,
		exporter:       exporter,
		settings:       settings,
		metrics:        httpMetrics,
		rateLimitRPS:   cfg.RateLimitRPS,
		rateLimitBurst: cfg.RateLimitBurst,
		maxInFlight:    cfg.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocuments)
	mux.HandleFunc("/v1/documents/", rt.documentSubtree)
	mux.HandleFunc("/v1/records", rt.recordsCollection)
	mux.HandleFunc("/v1/records/", rt.recordSubtree)
	mux.HandleFunc("/v1/settings", rt.settingsResource)

	var handler http.Handler = mux
	handler = validationMiddleware(handler)
	handler = backpressureMiddleware(handler, rt.maxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// uploadResult reports one file's fate: rejection of one file never stops
// the rest of the batch.
type uploadResult struct {
	Filename string           `json:"filename"`
	Status   string           `json:"status"`
	Error    string           `json:"error,omitempty"`
	Document *domain.Document `json:"document,omitempty"`
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart payload"})
		return
	}
	headers := multipartFiles(r)
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	results := make([]uploadResult, 0, len(headers))
	for _, header := range headers {
		results = append(results, rt.uploadOne(r, header))
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (rt *Router) uploadOne(r *http.Request, header *multipart.FileHeader) uploadResult {
	file, err := header.Open()
	if err != nil {
		return uploadResult{Filename: header.Filename, Status: "failed", Error: "cannot read uploaded file"}
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		status := "failed"
		if domain.IsKind(err, domain.ErrInvalidInput) {
			status = "rejected"
		}
		if rt.metrics != nil {
			rt.metrics.RecordUpload(false)
			if status == "rejected" {
				rt.metrics.RecordUploadRejection("invalid_input")
			}
		}
		return uploadResult{Filename: header.Filename, Status: status, Error: err.Error()}
	}

	if rt.metrics != nil {
		rt.metrics.RecordUpload(true)
	}
	return uploadResult{Filename: header.Filename, Status: "queued", Document: doc}
}

func multipartFiles(r *http.Request) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	if headers := r.MultipartForm.File["files"]; len(headers) > 0 {
		return headers
	}
	return r.MultipartForm.File["file"]
}

func (rt *Router) documentSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	if id, ok := strings.CutSuffix(rest, "/retry"); ok {
		rt.retryDocument(w, r, id)
		return
	}
	rt.getDocumentByID(w, r, rest)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) retryDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.ingest.Retry(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) recordsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		rt.listRecords(w, r)
	case http.MethodDelete:
		rt.clearRecords(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) listRecords(w http.ResponseWriter, r *http.Request) {
	records := rt.history.Records(r.Context())

	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit parameter"})
		return
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (rt *Router) clearRecords(w http.ResponseWriter, r *http.Request) {
	rt.history.Clear(r.Context())
	if rt.metrics != nil {
		rt.metrics.RecordHistoryClear()
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": []domain.ExtractionRecord{}})
}

func (rt *Router) recordSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/records/")
	id, ok := strings.CutSuffix(rest, "/export")
	if !ok || id == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	format := "json"
	if err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &format); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid format parameter"})
		return
	}

	artifact, err := rt.exporter.Export(r.Context(), id, format)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordExport(format)
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

type settingsView struct {
	APIKeySet      bool   `json:"api_key_set"`
	PreferredModel string `json:"preferred_model,omitempty"`
}

func (rt *Router) settingsResource(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		current := rt.settings.Current()
		writeJSON(w, http.StatusOK, settingsView{
			APIKeySet:      current.APIKey != "",
			PreferredModel: current.PreferredModel,
		})
	case http.MethodPut:
		var payload domain.StoredSettings
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		rt.settings.Update(r.Context(), payload)
		writeJSON(w, http.StatusOK, settingsView{
			APIKeySet:      payload.APIKey != "",
			PreferredModel: payload.PreferredModel,
		})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
