package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/kirillkom/smart-file-explorer/internal/config"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
	"github.com/kirillkom/smart-file-explorer/internal/observability/metrics"
)

const (
	serviceName         = "api"
	multipartMemoryMax  = 32 << 20
	defaultContentType  = "application/octet-stream"
	defaultUploadMaxLen = 100 << 20
)

type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.HTTPServerMetrics
	// OpenAPIJSON is served verbatim at /openapi.json when set.
	OpenAPIJSON []byte
}

type Router struct {
	cfg         config.Config
	files       ports.FileService
	logger      *slog.Logger
	metrics     *metrics.HTTPServerMetrics
	openAPIJSON []byte
}

func NewRouter(cfg config.Config, files ports.FileService, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:         cfg,
		files:       files,
		logger:      logger,
		metrics:     opts.Metrics,
		openAPIJSON: opts.OpenAPIJSON,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)

	mux.HandleFunc("POST /files/upload", rt.upload)
	mux.HandleFunc("POST /files/upload-ai", rt.uploadAndClassify)
	mux.HandleFunc("GET /files/{$}", rt.list)
	mux.HandleFunc("GET /files/files-ai", rt.listWithMetadata)
	mux.HandleFunc("GET /files/search-ai/{query}", rt.search)
	mux.HandleFunc("GET /files/summarize/{filename}", rt.summarize)
	mux.HandleFunc("DELETE /files/delete/{filename}", rt.delete)
	mux.HandleFunc("GET /files/view/{filename}", rt.view)

	if len(rt.openAPIJSON) > 0 {
		mux.HandleFunc("GET /openapi.json", rt.openAPI)
	}
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.cfg.MCPEnabled {
		mux.Handle("/mcp", NewMCPHandler(rt.files, rt.logger))
	}

	var onReject rejectFunc
	if rt.metrics != nil {
		onReject = func(reason string) { rt.metrics.RecordRejected(serviceName, reason) }
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.BackpressureWait(), onReject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rt.openAPIJSON)
}

func (rt *Router) upload(w http.ResponseWriter, r *http.Request) {
	upload, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer upload.file.Close()

	if err := rt.files.Upload(r.Context(), upload.filename, upload.file, upload.size, upload.contentType); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": upload.filename + " uploaded successfully"})
}

func (rt *Router) uploadAndClassify(w http.ResponseWriter, r *http.Request) {
	upload, ok := rt.readUpload(w, r)
	if !ok {
		return
	}
	defer upload.file.Close()

	result, err := rt.files.UploadAndClassify(r.Context(), upload.filename, upload.file, upload.size, upload.contentType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) list(w http.ResponseWriter, r *http.Request) {
	names, err := rt.files.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (rt *Router) listWithMetadata(w http.ResponseWriter, r *http.Request) {
	records, err := rt.files.ListWithMetadata(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.files.Search(r.Context(), r.PathValue("query")))
}

func (rt *Router) summarize(w http.ResponseWriter, r *http.Request) {
	result, err := rt.files.Summarize(r.Context(), r.PathValue("filename"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) delete(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	if err := rt.files.Delete(r.Context(), filename); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": filename + " deleted successfully"})
}

func (rt *Router) view(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	body, err := rt.files.Open(r.Context(), filename)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", contentTypeFor(filename))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		rt.logger.Warn("files.view.stream_failed",
			"request_id", requestIDFromContext(r.Context()),
			"filename", filename,
			"error", err,
		)
	}
}

type multipartUpload struct {
	file        io.ReadCloser
	filename    string
	size        int64
	contentType string
}

func (rt *Router) readUpload(w http.ResponseWriter, r *http.Request) (multipartUpload, bool) {
	limit := rt.cfg.MaxUploadBytes
	if limit <= 0 {
		limit = defaultUploadMaxLen
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemoryMax); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds size limit"})
			return multipartUpload{}, false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return multipartUpload{}, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return multipartUpload{}, false
	}
	return multipartUpload{
		file:        file,
		filename:    header.Filename,
		size:        header.Size,
		contentType: header.Header.Get("Content-Type"),
	}, true
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return defaultContentType
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
