package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/af-corp/taskmind/internal/httputil"
)

// Register mounts the four handlers on r. Routes accept any method.
func (h *Handler) Register(r chi.Router) {
	r.HandleFunc("/"+NameAskAI, h.instrument(NameAskAI, h.AskAI))
	r.HandleFunc("/"+NameSaveTask, h.instrument(NameSaveTask, h.SaveTask))
	r.HandleFunc("/"+NameGetTasks, h.instrument(NameGetTasks, h.GetTasks))
	r.HandleFunc("/"+NameUpdateTask, h.instrument(NameUpdateTask, h.UpdateTask))
}

// NewRouter builds the service router: shared middleware, health check and
// the handlers.
func NewRouter(h *Handler, version string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthHandler(version))
	h.Register(r)
	return r
}

func (h *Handler) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next(ww, r)
		h.metrics.RecordRequest(name, ww.Status(), time.Since(start))
	}
}

// HealthHandler reports liveness and the build version.
func HealthHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, RequestIDFromContext(r.Context()), http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": version,
		})
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID echoes the caller's X-Request-ID or assigns a new one, and puts it
// on the response headers and the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = "req_" + uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
