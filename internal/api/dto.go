package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
)

// ArchiveBookRequest is the request body for archiving a book. Empty strings
// are valid values; absent fields are not.
type ArchiveBookRequest struct {
	Title      *string `json:"title" example:"Dune" validate:"required"`
	Author     *string `json:"author" example:"Frank Herbert" validate:"required"`
	ContentRef *string `json:"content_ref" example:"ipfs://bafy..." validate:"required"`
}

// Validate implements validation.Validatable.
func (r ArchiveBookRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NotNil),
		validation.Field(&r.Author, validation.NotNil),
		validation.Field(&r.ContentRef, validation.NotNil),
	)
}

// ArchiveBookResponse is returned after a successful archive.
type ArchiveBookResponse struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint" example:"0x53210bed..." validate:"required"`
	Book        models.Record           `json:"book" validate:"required"`
}

// FingerprintResponse carries a derived fingerprint.
type FingerprintResponse struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint" example:"0x53210bed..." validate:"required"`
}

// conflictResponse is returned when the book is already archived.
type conflictResponse struct {
	Error       string                  `json:"error" validate:"required"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint" validate:"required"`
}
