// Package handler exposes askAI and the task operations over HTTP.
package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/af-corp/taskmind/internal/auth"
	"github.com/af-corp/taskmind/internal/completion"
	"github.com/af-corp/taskmind/internal/httputil"
	"github.com/af-corp/taskmind/internal/taskstore"
	"github.com/af-corp/taskmind/internal/telemetry"
	"github.com/af-corp/taskmind/internal/types"
)

// Handler names, used in logs, metrics and routes.
const (
	NameAskAI      = "askAI"
	NameSaveTask   = "saveTask"
	NameGetTasks   = "getTasks"
	NameUpdateTask = "updateTask"
)

const defaultMaxBodyBytes = 10 << 20

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	verifier     auth.Verifier
	tasks        *taskstore.Gateway
	completion   completion.Service
	metrics      *telemetry.Metrics
	maxBodyBytes int64
}

func NewHandler(verifier auth.Verifier, tasks *taskstore.Gateway, ai completion.Service, metrics *telemetry.Metrics, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Handler{
		verifier:     verifier,
		tasks:        tasks,
		completion:   ai,
		metrics:      metrics,
		maxBodyBytes: maxBodyBytes,
	}
}

// AskAI forwards the prompt to the completion service. It does not
// authenticate the caller.
func (h *Handler) AskAI(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req types.AskRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.aiFailure(w, reqID, fmt.Errorf("read ask request: %w", err))
		return
	}

	text, err := h.completion.Complete(r.Context(), req.Prompt)
	if err != nil {
		h.metrics.RecordUpstreamError("completion")
		h.aiFailure(w, reqID, err)
		return
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, types.AskResponse{Response: text})
}

// SaveTask stores the request body as a new task of the caller.
func (h *Handler) SaveTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	identity, ok := h.authenticate(w, r, NameSaveTask)
	if !ok {
		return
	}

	body, err := h.readBody(w, r)
	if err != nil {
		h.taskFailure(w, reqID, NameSaveTask, identity, fmt.Errorf("read task body: %w", err))
		return
	}
	task, err := types.DecodeObjectBytes(body)
	if err != nil {
		h.taskFailure(w, reqID, NameSaveTask, identity, fmt.Errorf("decode task: %w", err))
		return
	}

	id, err := h.tasks.CreateTask(r.Context(), identity, task)
	if err != nil {
		h.taskFailure(w, reqID, NameSaveTask, identity, err)
		return
	}

	slog.Info("task created", "request_id", reqID, "uid", identity.UID, "task_id", id)
	httputil.WriteJSON(w, reqID, http.StatusOK, types.SaveTaskResponse{ID: id})
}

// GetTasks returns every task of the caller.
func (h *Handler) GetTasks(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	identity, ok := h.authenticate(w, r, NameGetTasks)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), identity)
	if err != nil {
		h.taskFailure(w, reqID, NameGetTasks, identity, err)
		return
	}

	httputil.WriteJSON(w, reqID, http.StatusOK, tasks)
}

// UpdateTask merges {"updates": {...}} into the caller's task {"id": ...}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	identity, ok := h.authenticate(w, r, NameUpdateTask)
	if !ok {
		return
	}

	var req types.UpdateTaskRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.taskFailure(w, reqID, NameUpdateTask, identity, fmt.Errorf("read update request: %w", err))
		return
	}
	fields, err := types.DecodeObjectBytes(req.Updates)
	if err != nil {
		h.taskFailure(w, reqID, NameUpdateTask, identity, fmt.Errorf("decode updates: %w", err))
		return
	}

	if err := h.tasks.UpdateTask(r.Context(), identity, req.ID, fields); err != nil {
		h.taskFailure(w, reqID, NameUpdateTask, identity, err)
		return
	}

	slog.Info("task updated", "request_id", reqID, "uid", identity.UID, "task_id", req.ID)
	httputil.WriteUpdated(w, reqID)
}

// authenticate resolves the caller or writes the 401 response.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request, name string) (*auth.Identity, bool) {
	reqID := RequestIDFromContext(r.Context())
	header := r.Header.Get("Authorization")

	identity, err := auth.Authenticate(r.Context(), header, h.verifier)
	if err != nil {
		reason := "invalid_token"
		if errors.Is(err, auth.ErrMissingToken) {
			reason = "missing_token"
		}
		h.metrics.RecordAuthFailure(reason)
		slog.Warn("authentication failed",
			"request_id", reqID,
			"handler", name,
			"reason", reason,
			"token_prefix", auth.SafePrefix(auth.BearerToken(header)),
			"error", err,
		)
		httputil.WriteUnauthorized(w, reqID)
		return nil, false
	}
	return identity, true
}

func (h *Handler) taskFailure(w http.ResponseWriter, reqID, name string, identity *auth.Identity, err error) {
	if !isClientError(err) {
		h.metrics.RecordUpstreamError("store")
	}
	slog.Error("task operation failed",
		"request_id", reqID,
		"handler", name,
		"uid", identity.UID,
		"error", err,
	)
	httputil.WriteUnauthorized(w, reqID)
}

func (h *Handler) aiFailure(w http.ResponseWriter, reqID string, err error) {
	slog.Error("completion failed",
		"request_id", reqID,
		"handler", NameAskAI,
		"error", err,
	)
	httputil.WriteAIError(w, reqID)
}

// readBody reads the whole request body, bounded by maxBodyBytes.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
}

// decodeJSON decodes the body into v. An empty body leaves v untouched.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := h.readBody(w, r)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}

// isClientError reports failures caused by the request rather than a backend.
func isClientError(err error) bool {
	var maxErr *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.Is(err, taskstore.ErrNotFound) ||
		errors.Is(err, taskstore.ErrForbidden) ||
		errors.Is(err, taskstore.ErrInvalidTaskID) ||
		errors.Is(err, taskstore.ErrEmptyUpdate) ||
		errors.Is(err, types.ErrNotObject) ||
		errors.Is(err, types.ErrNumberRange) ||
		errors.As(err, &maxErr) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr)
}
