package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/index"
	"github.com/starford/sheaf/internal/share"
	"github.com/starford/sheaf/internal/sse"
)

const maxShareSize = 2 << 20

// ShareRepo persists shared blobs and their view counters.
type ShareRepo = index.ShareRepo

// ViewListener is told about every recorded view.
type ViewListener func(sse.ShareView)

// ShareHandler serves the share store protocol.
type ShareHandler struct {
	repo   ShareRepo
	onView ViewListener
}

type shareBlob struct {
	Blob  string `json:"blob"`
	Title string `json:"title"`
}

// Put handles POST /shares/put.
//
//	@Summary		Store a compressed note payload
//	@Tags			shares
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PutShareRequest	true	"Blob and its SHA-256 hash"
//	@Success		201		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Router			/shares/put [post]
func (h *ShareHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req PutShareRequest
	if !decodeJSON(w, r, maxShareSize, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if share.Hash(req.Blob) != req.Hash {
		writeJSON(w, http.StatusBadRequest, errorBody("hash does not match blob"))
		return
	}

	id, err := h.repo.PutShare(r.Context(), req.Hash, req.Title, req.Blob)
	if err != nil {
		slog.Error("put share failed", slog.String("hash", req.Hash), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]string{"id": id}})
}

// Get handles GET /shares/get/{id}.
//
//	@Summary		Fetch a stored payload by short id
//	@Tags			shares
//	@Produce		json
//	@Param			id	path		string	true	"Short id"
//	@Success		200	{object}	map[string]any
//	@Failure		404	{object}	errResponse
//	@Router			/shares/get/{id} [get]
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	row, err := h.repo.GetShare(r.Context(), id)
	if errors.Is(err, apperr.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if err != nil {
		slog.Error("get share failed", slog.String("id", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": shareBlob{Blob: row.Blob, Title: row.Title}})
}

// View handles POST /shares/view.
//
//	@Summary		Record a view of a shared note
//	@Tags			shares
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ViewShareRequest	true	"Viewed hash"
//	@Success		200		{object}	map[string]any
//	@Failure		400		{object}	errResponse
//	@Router			/shares/view [post]
func (h *ShareHandler) View(w http.ResponseWriter, r *http.Request) {
	var req ViewShareRequest
	if !decodeJSON(w, r, maxBodySize, &req, false) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	views, err := h.repo.RecordView(r.Context(), req.Hash, req.Title)
	if err != nil {
		slog.Error("record view failed", slog.String("hash", req.Hash), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if h.onView != nil {
		h.onView(sse.ShareView{Hash: req.Hash, Title: req.Title, Views: views})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]int{"views": views}})
}
