package scan

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/equiscan/server/internal/normalize"
)

// auditDisciplines sweeps stored discipline values after a scheduled scan.
// Values that canonicalize to something else (a new alias added to the
// mapping since the rows were written) are rewritten in place; values the
// mapping does not know are logged so the mapping can grow.
func (r *Runner) auditDisciplines(ctx context.Context, logger zerolog.Logger) {
	counts, err := r.repo.Competitions().DistinctDisciplines(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("audit: listing disciplines failed")
		return
	}
	for stored, n := range counts {
		if stored == "" {
			continue
		}
		canonical, _ := normalize.Discipline(stored)
		if canonical == "" {
			logger.Warn().Str("discipline", stored).Int("rows", n).
				Msg("audit: unmapped discipline value")
			continue
		}
		if canonical == stored {
			continue
		}
		rewritten, err := r.repo.Competitions().RewriteDiscipline(ctx, stored, canonical)
		if err != nil {
			logger.Warn().Err(err).Str("from", stored).Str("to", canonical).
				Msg("audit: rewrite failed")
			continue
		}
		logger.Info().Str("from", stored).Str("to", canonical).Int64("rows", rewritten).
			Msg("audit: rewrote discipline")
	}
}
