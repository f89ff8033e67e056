// Package httpapi exposes the feed pipeline over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	app "github.com/vibeshare/feedservice/internal/app"
	"github.com/vibeshare/feedservice/internal/app/metrics"
	feedsvc "github.com/vibeshare/feedservice/internal/app/services/feed"
	"github.com/vibeshare/feedservice/internal/config"
	"github.com/vibeshare/feedservice/pkg/logger"
)

// userHeader carries the authenticated identity. Authentication itself is
// terminated upstream; this service trusts the header.
const userHeader = "X-User-ID"

type handler struct {
	app   *app.Application
	log   *logger.Logger
	audit *auditLog
}

// NewHandler returns the service's HTTP handler with metrics, rate limiting
// and audit middleware applied.
func NewHandler(application *app.Application, cfg config.ServerConfig, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}

	sink, err := newFileAuditSink(cfg.AuditLogPath)
	if err != nil {
		log.WithError(err).Warn("audit file sink unavailable; keeping in-memory audit only")
	}
	h := &handler{
		app:   application,
		log:   log,
		audit: newAuditLog(cfg.AuditLogSize, sink),
	}

	r := mux.NewRouter()
	r.HandleFunc("/feed", h.generateFeed).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.HandleFunc("/audit", h.auditEntries).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	limiter := newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	var chain http.Handler = r
	chain = h.auditMiddleware(chain)
	chain = limiter.middleware(chain)
	chain = h.recoverMiddleware(chain)
	chain = metrics.InstrumentHandler(chain)
	return chain
}

type feedRequest struct {
	SessionID string `json:"sessionId"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
	PostType  string `json:"postType"`
}

func (h *handler) generateFeed(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.Header.Get(userHeader))
	if ownerID == "" {
		metrics.RecordFeedRequest("unauthorized")
		writeError(w, http.StatusUnauthorized, errors.New("Unauthorized"))
		return
	}

	var payload feedRequest
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		writeError(w, http.StatusBadRequest, errors.New("sessionId is required"))
		return
	}

	result, err := h.app.Feed.GenerateFeed(r.Context(), ownerID, feedsvc.Request{
		SessionID: payload.SessionID,
		Offset:    payload.Offset,
		Limit:     payload.Limit,
		PostType:  payload.PostType,
	})
	if err != nil {
		metrics.RecordFeedRequest("error")
		h.log.WithError(err).
			WithField("owner_id", ownerID).
			Error("feed generation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to generate feed",
			"message": err.Error(),
		})
		return
	}

	metrics.RecordFeedRequest("success")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"items":          result.Items,
		"hasMore":        result.HasMore,
		"sessionContext": result.Session,
	})
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

// recoverMiddleware keeps the error envelope well-formed when a handler
// panics.
func (h *handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.WithField("path", r.URL.Path).
					Errorf("handler panicked: %v", rec)
				metrics.RecordFeedRequest("error")
				writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
					"success": false,
					"error":   "Failed to generate feed",
					"message": "internal error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
