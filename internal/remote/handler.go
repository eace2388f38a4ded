package remote

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mesh-intelligence/cling/internal/syncer"
	"github.com/mesh-intelligence/cling/pkg/types"
)

// Wire routes.
const (
	RecordsPath   = "/v1/records"
	ChangesPath   = "/v1/changes"
	MaxPageSize   = 1000
	maxRecordBody = 4 << 20
)

// Handler serves a sync authority over HTTP.
type Handler struct {
	backend syncer.Remote
	key     string
	logger  *slog.Logger
}

// NewHandler returns the HTTP routes for backend. Requests must carry key
// as a bearer token or an apikey header; an empty key disables the check.
func NewHandler(backend syncer.Remote, key string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Handler{backend: backend, key: key, logger: logger}

	r := chi.NewRouter()
	r.Use(h.authenticate)
	r.Put(RecordsPath+"/{kind}/{id}", h.PutRecord)
	r.Get(ChangesPath, h.Changes)
	return r
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.key != "" && !h.authorized(r) {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) authorized(r *http.Request) bool {
	if k := r.Header.Get("apikey"); k != "" && equalKey(k, h.key) {
		return true
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	return ok && equalKey(strings.TrimSpace(token), h.key)
}

func equalKey(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// PutRecord handles PUT /v1/records/{kind}/{id}.
func (h *Handler) PutRecord(w http.ResponseWriter, r *http.Request) {
	kind, err := types.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	id := chi.URLParam(r, "id")

	var rec types.Record
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRecordBody)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "malformed record: "+err.Error())
		return
	}
	if rec.Kind == "" {
		rec.Kind = kind
	}
	if rec.ID == "" {
		rec.ID = id
	}
	if rec.Kind != kind || rec.ID != id {
		writeError(w, http.StatusBadRequest, "record does not match path")
		return
	}

	ack, err := h.backend.Push(r.Context(), rec)
	if err != nil {
		if errors.Is(err, ErrInvalidRecord) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("storing record", "kind", kind, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.logger.Debug("record pushed", "kind", kind, "id", id, "applied", ack.Applied)
	writeJSON(w, http.StatusOK, ack)
}

// Changes handles GET /v1/changes?since=&limit=.
func (h *Handler) Changes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var since time.Time
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: "+err.Error())
			return
		}
		since = t
	}
	limit := syncer.DefaultPageSize
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, MaxPageSize)
	}

	page, err := h.backend.Changes(r.Context(), since, limit)
	if err != nil {
		h.logger.Error("listing changes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if page.Records == nil {
		page.Records = []types.Record{}
	}
	writeJSON(w, http.StatusOK, page)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
