package http

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/swooosh/internal/entity"
)

const (
	notFoundPath = "/404"
	legacyPrefix = "/i"
)

type urlUseCase interface {
	ShortenURL(ctx context.Context, originalURL string) (*entity.URL, error)
	ResolveID(ctx context.Context, id string) (*entity.URL, error)
}

// redirect answers with code and a Location header carrying location verbatim.
// The body links to location only when it is an http(s) URL or a local path.
func redirect(w http.ResponseWriter, r *http.Request, location string, code int) {
	w.Header().Set("Location", location)

	render.Status(r, code)

	if !linkable(location) {
		render.HTML(w, r, html.EscapeString(http.StatusText(code))+".\n")
		return
	}

	render.HTML(w, r, fmt.Sprintf("<a href=\"%s\">%s</a>.\n", html.EscapeString(location), http.StatusText(code)))
}

func linkable(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "":
		return u.Host == "" && strings.HasPrefix(location, "/") &&
			!strings.HasPrefix(location, "//") && !strings.HasPrefix(location, "/\\")
	default:
		return false
	}
}

func redirectNotFound(w http.ResponseWriter, r *http.Request) {
	redirect(w, r, notFoundPath, http.StatusNotFound)
}

func handlePing(w http.ResponseWriter, r *http.Request) {
	render.PlainText(w, r, "pong")
}

type redirectHandler struct {
	useCase urlUseCase
}

func newRedirectHandler(useCase urlUseCase) *redirectHandler {
	return &redirectHandler{useCase: useCase}
}

// resolve sends the visitor to the destination of {id}. Success is reported
// with status 200 plus a Location header; every failure becomes a 404
// redirect to the not-found page.
func (h *redirectHandler) resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.useCase.ResolveID(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrURLNotFound):
			httplog.LogEntrySetField(r.Context(), "outcome", slog.StringValue("not_found"))
		case errors.Is(err, entity.ErrNoDestination):
			httplog.LogEntrySetField(r.Context(), "outcome", slog.StringValue("no_destination"))
		default:
			httplog.LogEntrySetField(r.Context(), "outcome", slog.StringValue("store_error"))
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))
		}

		redirectNotFound(w, r)
		return
	}

	httplog.LogEntrySetField(r.Context(), "outcome", slog.StringValue("found"))

	redirect(w, r, rec.URL, http.StatusOK)
}

// legacy maps /i/{id} onto /{id}.
func (h *redirectHandler) legacy(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		redirect(w, r, notFoundPath, http.StatusFound)
		return
	}

	redirect(w, r, "/"+url.PathEscape(id), http.StatusFound)
}

func (h *redirectHandler) notFoundPage(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.PlainText(w, r, "404 page not found")
}

// fallback catches every unmatched path. The not-found page itself is never
// redirected, so no loop can form.
func (h *redirectHandler) fallback(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == notFoundPath {
		h.notFoundPage(w, r)
		return
	}

	redirectNotFound(w, r)
}
