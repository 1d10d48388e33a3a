package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/strata/internal/finder"
	"github.com/eugenenazirov/strata/internal/overlay"
	"github.com/eugenenazirov/strata/internal/value"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Source resolves configuration keys and can drop what it has memoized;
// *storage.Cache satisfies it.
type Source interface {
	Load(key string) (any, error)
	AllKeyNames() ([]string, error)
	Cached() []string
	Reset()
}

// Handler exposes a Source over HTTP.
type Handler struct {
	source Source

	clock func() time.Time

	mu         sync.RWMutex
	reloadedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler serving source.
func NewHandler(source Source, opts ...HandlerOption) *Handler {
	h := &Handler{
		source: source,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.reloadedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleKeys(w http.ResponseWriter, r *http.Request) {
	_ = r
	keys, err := h.source.AllKeyNames()
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}

	resp := keysResponse{
		Keys:       keys,
		ReloadedAt: h.currentReloadedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.PathValue("key"))
	if !overlay.PlainKey(key) || strings.ContainsAny(key, "*?[]") {
		writeError(w, http.StatusBadRequest, "Invalid key", "key must be a plain file name without path separators or glob characters")
		return
	}

	v, err := h.source.Load(key)
	if err != nil {
		if errors.Is(err, finder.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Key not found", err.Error(), "GET /api/keys lists the available keys")
			return
		}
		writeError(w, http.StatusInternalServerError, "Source error", err.Error())
		return
	}

	path := strings.TrimSpace(r.URL.Query().Get("path"))
	found, ok := value.Lookup(v, path)
	if !ok {
		writeError(w, http.StatusNotFound, "Path not found", "no value at "+key+"."+path)
		return
	}

	resp := configResponse{
		Key:   key,
		Path:  path,
		Value: found,
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "yaml") {
		writeYAML(w, http.StatusOK, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	_ = r
	cleared := len(h.source.Cached())
	h.source.Reset()
	h.markReloaded()

	resp := reloadResponse{
		Cleared:    cleared,
		ReloadedAt: h.currentReloadedAt(),
		Message:    "Configuration cache cleared",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) currentReloadedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reloadedAt
}

func (h *Handler) markReloaded() {
	h.mu.Lock()
	h.reloadedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type keysResponse struct {
	Keys       []string  `json:"keys"`
	ReloadedAt time.Time `json:"reloadedAt"`
}

type configResponse struct {
	Key   string `json:"key" yaml:"key"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
	Value any    `json:"value" yaml:"value"`
}

type reloadResponse struct {
	Cleared    int       `json:"cleared"`
	ReloadedAt time.Time `json:"reloadedAt"`
	Message    string    `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeYAML(w http.ResponseWriter, status int, payload any) {
	data, err := yaml.Marshal(payload)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
