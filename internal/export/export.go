// Package export drives a print export: open a target first, fetch the note,
// render the print document and hand the target a short-lived blob URL.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/sheaf/internal/render"
)

const (
	// Placeholder is written into the target while the note is fetched.
	Placeholder = "Preparing document…"
	// FailureText replaces the target body when the note cannot be fetched.
	FailureText = "This note could not be loaded for export."

	htmlContentType = "text/html; charset=utf-8"
)

// ErrBlocked is returned when the target could not be opened.
var ErrBlocked = errors.New("export: target blocked")

// Target is an opened browsing context the export writes into.
type Target interface {
	WriteHTML(html string)
	Navigate(url string)
	ReplaceBody(text string)
}

// Opener opens a new Target. An error means the environment refused to open
// one (for a browser, a blocked popup).
type Opener interface {
	Open(ctx context.Context) (Target, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context) (Target, error)

func (f OpenerFunc) Open(ctx context.Context) (Target, error) { return f(ctx) }

// Document is the stored form of a note as the exporter needs it. Doc is
// either a block document or a legacy Markdown string.
type Document struct {
	Title string
	Doc   any
}

// Fetcher loads a note by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (Document, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) (Document, error)

func (f FetcherFunc) Fetch(ctx context.Context, id string) (Document, error) { return f(ctx, id) }

// Exporter renders notes into print documents served from Blobs.
type Exporter struct {
	fetcher Fetcher
	blobs   *Blobs
	log     *slog.Logger
	now     func() time.Time
}

// New creates an Exporter. A nil logger uses slog.Default().
func New(fetcher Fetcher, blobs *Blobs, log *slog.Logger) *Exporter {
	if log == nil {
		log = slog.Default()
	}
	return &Exporter{fetcher: fetcher, blobs: blobs, log: log, now: time.Now}
}

// Export opens a target through opener, then fetches and renders note id and
// navigates the target to the blob URL, which it also returns.
//
// When the target cannot be opened, onBlocked is called (if non-nil) and
// ErrBlocked is returned; nothing is fetched. When the fetch fails, the
// target body is replaced with FailureText and the fetch error is returned.
func (e *Exporter) Export(ctx context.Context, opener Opener, id string, onBlocked func()) (string, error) {
	target, err := opener.Open(ctx)
	if err != nil || target == nil {
		e.log.Warn("export target blocked", slog.String("id", id))
		if onBlocked != nil {
			onBlocked()
		}
		return "", ErrBlocked
	}
	target.WriteHTML(Placeholder)

	note, err := e.fetcher.Fetch(ctx, id)
	if err != nil {
		e.log.Warn("export fetch failed", slog.String("id", id), slog.String("error", err.Error()))
		target.ReplaceBody(FailureText)
		return "", fmt.Errorf("export: fetch %s: %w", id, err)
	}

	page := render.Print(note.Doc, note.Title, e.now())
	url := e.blobs.Create(htmlContentType, []byte(page))
	target.Navigate(url)
	return url, nil
}
