// Package registry implements the archive operation: fingerprint a book,
// refuse it if the fingerprint is taken, otherwise store it exactly once and
// announce it.
package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/auth"
	"github.com/starford/archiver/internal/clock"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/models"
	"github.com/starford/archiver/internal/store"
)

// EventSink receives BookArchived notifications. Delivery is fire-and-forget.
type EventSink interface {
	PublishArchived(ev models.BookArchived)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(models.BookArchived)

// PublishArchived implements EventSink.
func (f SinkFunc) PublishArchived(ev models.BookArchived) { f(ev) }

type discard struct{}

func (discard) PublishArchived(models.BookArchived) {}

// Registry is the archive of books.
type Registry struct {
	store  store.Store
	clock  clock.Logical
	sink   EventSink
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithSink sets the event sink. The default drops events.
func WithSink(s EventSink) Option {
	return func(r *Registry) { r.sink = s }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New returns a Registry over s stamping records with c.
func New(s store.Store, c clock.Logical, opts ...Option) *Registry {
	r := &Registry{
		store:  s,
		clock:  c,
		sink:   discard{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Archive stores a book on behalf of caller. It fails with
// apperr.ErrUnauthenticated when caller is empty and with
// apperr.ErrAlreadyExistsInArchive when the normalized title and author are
// already archived. On any failure the store is left untouched and no event
// is emitted.
//
// The stored title and author are the normalized forms.
func (r *Registry) Archive(ctx context.Context, caller auth.Identity, title, author, contentRef []byte) (fingerprint.Fingerprint, models.Record, error) {
	if caller.IsZero() {
		return fingerprint.Fingerprint{}, models.Record{}, apperr.ErrUnauthenticated
	}

	title = fingerprint.Normalize(title)
	author = fingerprint.Normalize(author)
	fp := fingerprint.Derive(title, author)

	exists, err := r.store.Exists(ctx, fp)
	if err != nil {
		return fp, models.Record{}, fmt.Errorf("registry: check %s: %w", fp, err)
	}
	if exists {
		r.logger.Debug("archive rejected: duplicate",
			slog.String("fingerprint", fp.String()),
			slog.String("submitter", caller.String()))
		return fp, models.Record{}, apperr.ErrAlreadyExistsInArchive
	}

	rec := models.Record{
		Title:      title,
		Author:     author,
		ContentRef: bytes.Clone(contentRef),
		Submitter:  caller.String(),
		CreatedAt:  r.clock.Now(),
	}

	// The store's insert-if-absent settles races that slipped past Exists.
	if err := r.store.Insert(ctx, fp, rec); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return fp, models.Record{}, apperr.ErrAlreadyExistsInArchive
		}
		return fp, models.Record{}, fmt.Errorf("registry: insert %s: %w", fp, err)
	}

	r.sink.PublishArchived(models.BookArchived{Submitter: rec.Submitter, Fingerprint: fp})

	r.logger.Info("book archived",
		slog.String("fingerprint", fp.String()),
		slog.String("submitter", rec.Submitter),
		slog.Uint64("created_at", rec.CreatedAt))

	return fp, rec.Clone(), nil
}

// Summary returns the record archived under fp, if any.
func (r *Registry) Summary(ctx context.Context, fp fingerprint.Fingerprint) (models.Record, bool, error) {
	rec, ok, err := r.store.Get(ctx, fp)
	if err != nil {
		return models.Record{}, false, fmt.Errorf("registry: summary %s: %w", fp, err)
	}
	return rec, ok, nil
}

// Fingerprint exposes the published derivation rule.
func (r *Registry) Fingerprint(title, author []byte) fingerprint.Fingerprint {
	return fingerprint.Derive(title, author)
}

// Stats reports the size of the archive.
func (r *Registry) Stats(ctx context.Context) (store.Stats, error) {
	return r.store.Stats(ctx)
}
