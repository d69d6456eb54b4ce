package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sheaf/internal/export"
	"github.com/starford/sheaf/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, exp *export.Exporter, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, exp)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Notes CRUD.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Patch("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Placement, print, export and sharing of a stored note.
	r.Put("/notes/{id}/folder", h.MoveNote)
	r.Get("/notes/{id}/print", h.PrintNote)
	r.Get("/notes/{id}/export", h.ExportNote)
	r.Post("/notes/{id}/share", h.ShareNote)

	// Shared link resolution.
	r.Get("/share/resolve", h.ResolveShare)

	// Folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.SaveFolder)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// NewShareRouter serves the public share store protocol: put, get and view.
// It is mounted outside the authenticated API.
func NewShareRouter(repo ShareRepo, onView ViewListener) chi.Router {
	h := &ShareHandler{repo: repo, onView: onView}

	r := chi.NewRouter()
	r.Post("/put", h.Put)
	r.Get("/get/{id}", h.Get)
	r.Post("/view", h.View)
	return r
}
