package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/archiver/internal/apperr"
	"github.com/starford/archiver/internal/auth"
	"github.com/starford/archiver/internal/fingerprint"
	"github.com/starford/archiver/internal/registry"
)

// Report summarises an import run.
type Report struct {
	Archived   []fingerprint.Fingerprint
	Duplicates []fingerprint.Fingerprint
}

// Import archives entries in order on behalf of caller. Books already in the
// archive are recorded in Report.Duplicates and skipped. Any other error
// stops the run; entries archived before it stay archived.
func Import(ctx context.Context, reg *registry.Registry, caller auth.Identity, entries []Entry, logger *slog.Logger) (Report, error) {
	var rep Report
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		title, author, ref := e.Fields()
		fp, _, err := reg.Archive(ctx, caller, title, author, ref)
		switch {
		case errors.Is(err, apperr.ErrAlreadyExistsInArchive):
			logger.Info("import: duplicate skipped",
				slog.String("book", e.Label()),
				slog.String("fingerprint", fp.String()))
			rep.Duplicates = append(rep.Duplicates, fp)
		case err != nil:
			return rep, fmt.Errorf("import book %d (%s): %w", i+1, e.Label(), err)
		default:
			rep.Archived = append(rep.Archived, fp)
		}
	}
	return rep, nil
}
