package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sheaf/internal/checksum"
	"github.com/starford/sheaf/internal/noteservice"
	"github.com/starford/sheaf/internal/share"
)

var isDigest = validation.NewStringRuleWithError(checksum.Valid,
	validation.NewError("validation_is_sha256", "must be a hex SHA-256 digest"))

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest = noteservice.NoteInput

// UpdateNoteRequest is the request body for patching a note.
type UpdateNoteRequest = noteservice.NotePatch

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// MoveNoteRequest places a note in a folder; a null folder_id moves it to the root.
type MoveNoteRequest struct {
	FolderID *string `json:"folder_id"`
}

// ShareNoteRequest optionally overrides the configured link origin.
type ShareNoteRequest struct {
	Origin string `json:"origin" example:"https://notes.example.com"`
}

// ShareNoteResponse carries a published link.
type ShareNoteResponse struct {
	URL string `json:"url" example:"https://notes.example.com/n/3kTMd9Qx1a" validate:"required"`
}

// SaveFolderRequest creates (empty id) or renames a folder.
type SaveFolderRequest struct {
	ID       string  `json:"id"`
	Name     string  `json:"name" example:"Projects" validate:"required"`
	ParentID *string `json:"parentId"`
}

// Validate validates the folder request.
func (r *SaveFolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// PutShareRequest is the body of POST /shares/put.
type PutShareRequest share.PutRequest

// Validate validates the put request.
func (r *PutShareRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Hash, validation.Required, isDigest),
		validation.Field(&r.Blob, validation.Required),
	)
}

// ViewShareRequest is the body of POST /shares/view.
type ViewShareRequest share.ViewRequest

// Validate validates the view request.
func (r *ViewShareRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Hash, validation.Required, isDigest),
	)
}
