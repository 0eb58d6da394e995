package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/auth"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/registry"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	reg *registry.Registry
}

// NewHandler creates a new Handler.
func NewHandler(reg *registry.Registry) *Handler {
	return &Handler{reg: reg}
}

// ArchiveBook handles POST /api/books.
//
//	@Summary		Archive a book once per normalized title and author
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ArchiveBookRequest	true	"Book to archive"
//	@Success		201		{object}	ArchiveBookResponse
//	@Failure		400		{object}	errResponse
//	@Failure		401		{object}	errResponse
//	@Failure		409		{object}	conflictResponse
//	@Security		BearerAuth
//	@Router			/books [post]
func (h *Handler) ArchiveBook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ArchiveBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	caller := auth.FromContext(r.Context())
	fp, rec, err := h.reg.Archive(r.Context(), caller, []byte(*req.Title), []byte(*req.Author), []byte(*req.ContentRef))
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnauthenticated):
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		case errors.Is(err, apperr.ErrAlreadyExistsInArchive):
			writeJSON(w, http.StatusConflict, conflictResponse{Error: "book already exists in archive", Fingerprint: fp})
		default:
			slog.Error("archive book failed", slog.String("fingerprint", fp.String()), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, ArchiveBookResponse{Fingerprint: fp, Book: rec})
}

// BookSummary handles GET /api/books/{fingerprint}.
//
//	@Summary		Look up an archived book by fingerprint
//	@Tags			books
//	@Produce		json
//	@Param			fingerprint	path		string	true	"0x-prefixed BLAKE2b-256 fingerprint"
//	@Success		200			{object}	models.Record
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/books/{fingerprint} [get]
func (h *Handler) BookSummary(w http.ResponseWriter, r *http.Request) {
	fp, err := fingerprint.Parse(chi.URLParam(r, "fingerprint"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	rec, ok, err := h.reg.Summary(r.Context(), fp)
	if err != nil {
		slog.Error("book summary failed", slog.String("fingerprint", fp.String()), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody(apperr.ErrNotFound.Error()))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Fingerprint handles GET /api/fingerprint.
//
//	@Summary		Compute the fingerprint of a title and author
//	@Tags			books
//	@Produce		json
//	@Param			title	query		string	false	"Book title"
//	@Param			author	query		string	false	"Book author"
//	@Success		200		{object}	FingerprintResponse
//	@Security		BearerAuth
//	@Router			/fingerprint [get]
func (h *Handler) Fingerprint(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fp := h.reg.Fingerprint([]byte(q.Get("title")), []byte(q.Get("author")))
	writeJSON(w, http.StatusOK, FingerprintResponse{Fingerprint: fp})
}
