// Package apperr holds the sentinel errors shared across the archive.
package apperr

import "errors"

var (
	// ErrUnauthenticated means the caller identity could not be established.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAlreadyExists is returned by a store when the fingerprint is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyExistsInArchive is returned by the archive operation when a
	// record with the same fingerprint has already been archived.
	ErrAlreadyExistsInArchive = errors.New("book already exists in archive")

	ErrNotFound           = errors.New("not found")
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
)
