package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sheaf/internal/apperr"
	"github.com/starford/sheaf/internal/export"
)

// responseTarget adapts an HTTP response to export.Target. The placeholder
// has no meaning for a single response, so only the outcome is recorded.
type responseTarget struct {
	location string
	failure  string
}

func (t *responseTarget) WriteHTML(string)        {}
func (t *responseTarget) Navigate(url string)     { t.location = url }
func (t *responseTarget) ReplaceBody(text string) { t.failure = text }

// acceptsHTML reports whether a client can be sent to an HTML document.
func acceptsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

// PrintNote handles GET /api/notes/{id}/print.
//
//	@Summary		Render the print document of a note
//	@Tags			export
//	@Produce		html
//	@Param			id	path	string	true	"Note id"
//	@Success		200	{string}	string	"Standalone HTML document"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/print [get]
func (h *Handler) PrintNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page, err := h.svc.Print(r.Context(), id)
	if err != nil {
		writeServiceError(w, "print note", id, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, page)
}

// ExportNote handles GET /api/notes/{id}/export. On success the client is
// redirected to a short-lived blob holding the print document.
//
//	@Summary		Export a note as a print document
//	@Tags			export
//	@Param			id	path	string	true	"Note id"
//	@Success		303	"Redirect to the blob URL"
//	@Failure		406	{object}	errResponse
//	@Failure		502	{string}	string	"Note could not be loaded"
//	@Security		BearerAuth
//	@Router			/notes/{id}/export [get]
func (h *Handler) ExportNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	target := &responseTarget{}
	opener := export.OpenerFunc(func(context.Context) (export.Target, error) {
		if !acceptsHTML(r) {
			return nil, export.ErrBlocked
		}
		return target, nil
	})
	onBlocked := func() {
		writeJSON(w, http.StatusNotAcceptable, errorBody("client does not accept HTML documents"))
	}

	url, err := h.exp.Export(r.Context(), opener, id, onBlocked)
	switch {
	case errors.Is(err, export.ErrBlocked):
		return
	case err != nil:
		status := http.StatusBadGateway
		if errors.Is(err, apperr.ErrNotFound) {
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, target.failure)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// ShareNote handles POST /api/notes/{id}/share.
//
//	@Summary		Publish a note as a shareable link
//	@Tags			share
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		ShareNoteRequest	false	"Origin override"
//	@Success		200		{object}	ShareNoteResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/share [post]
func (h *Handler) ShareNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ShareNoteRequest
	if !decodeJSON(w, r, maxBodySize, &req, true) {
		return
	}
	link, err := h.svc.Share(r.Context(), id, req.Origin)
	if err != nil {
		writeServiceError(w, "share note", id, err)
		return
	}
	writeJSON(w, http.StatusOK, ShareNoteResponse{URL: link})
}

// ResolveShare handles GET /api/share/resolve?url=...
//
//	@Summary		Resolve a shared link to its payload
//	@Tags			share
//	@Produce		json
//	@Param			url	query		string	true	"Shared link"
//	@Success		200	{object}	share.Payload
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/share/resolve [get]
func (h *Handler) ResolveShare(w http.ResponseWriter, r *http.Request) {
	link := r.URL.Query().Get("url")
	if link == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("url is required"))
		return
	}
	p, ok := h.svc.Resolve(r.Context(), link)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("link invalid or content not found"))
		return
	}
	writeJSON(w, http.StatusOK, p)
}
