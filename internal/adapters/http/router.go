package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/document-classifier/internal/config"
	"github.com/kirillkom/document-classifier/internal/core/domain"
	"github.com/kirillkom/document-classifier/internal/core/ports"
	"github.com/kirillkom/document-classifier/internal/observability/metrics"
)

const serviceName = "api"

const documentPathPrefix = "/doc/"

const missingDocumentIDMessage = "missing document id: use GET /doc/{percent-encoded document id} or GET /doc?document_id={document id}"

type Router struct {
	cfg         config.Config
	reader      ports.AnalysisReader
	httpMetrics *metrics.HTTPServerMetrics
}

// NewRouter builds the lookup surface. httpMetrics may be nil.
func NewRouter(cfg config.Config, reader ports.AnalysisReader, httpMetrics *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:         cfg,
		reader:      reader,
		httpMetrics: httpMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware, accessLogMiddleware)

	r.Get("/healthz", rt.health)
	if rt.httpMetrics != nil {
		r.Method(http.MethodGet, "/metrics", rt.httpMetrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return rateLimitMiddleware(next, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
		})
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.cfg.APIBackpressureMaxInFlight, rt.cfg.APIBackpressureWait)
		})
		r.Get("/doc", rt.getDocument)
		r.Get("/doc/*", rt.getDocument)
	})

	if rt.httpMetrics == nil {
		return r
	}
	return rt.httpMetrics.Middleware(serviceName, r)
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	documentID, err := documentIDFromRequest(r)
	if err != nil {
		rt.recordLookup(http.StatusBadRequest)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := rt.reader.GetByID(r.Context(), documentID)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		rt.recordLookup(status)
		switch status {
		case http.StatusNotFound:
			http.Error(w, "document not found: "+documentID, status)
		case http.StatusBadRequest:
			http.Error(w, err.Error(), status)
		default:
			slog.Error("document_lookup_failed",
				"request_id", requestIDFromContext(r.Context()),
				"document_id", documentID,
				"error", err,
			)
			http.Error(w, "lookup failed: "+err.Error(), status)
		}
		return
	}

	body, err := json.Marshal(item)
	if err != nil {
		rt.recordLookup(http.StatusInternalServerError)
		http.Error(w, "encode record: "+err.Error(), http.StatusInternalServerError)
		return
	}
	rt.recordLookup(http.StatusOK)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (rt *Router) recordLookup(status int) {
	if rt.httpMetrics == nil {
		return
	}
	rt.httpMetrics.RecordLookup(serviceName, lookupOutcome(status))
}

// documentIDFromRequest decodes the id after /doc/ exactly once, from the
// escaped path, and falls back to the document_id query parameter.
func documentIDFromRequest(r *http.Request) (string, error) {
	if raw, ok := strings.CutPrefix(r.URL.EscapedPath(), documentPathPrefix); ok && raw != "" {
		documentID, err := url.PathUnescape(raw)
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "parse document id", err)
		}
		if strings.TrimSpace(documentID) != "" {
			return documentID, nil
		}
	}
	if documentID := strings.TrimSpace(r.URL.Query().Get("document_id")); documentID != "" {
		return documentID, nil
	}
	return "", errors.New(missingDocumentIDMessage)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
