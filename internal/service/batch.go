package service

import (
	"context"

	"splat-tracker/internal/constants"
	"splat-tracker/internal/domain"
	"splat-tracker/internal/livequery"
	"splat-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// Progress is a cumulative report emitted after each committed chunk.
type Progress struct {
	Processed int `json:"processed"`
	Total     int `json:"total"`
}

// BatchService applies a flag change to id sets too large to bind as one IN
// list. Ids are partitioned into fixed-size chunks, each committed in its
// own transaction; already-committed chunks stay applied if a later chunk
// fails. Chunked updates bypass the tracker, so the service broadcasts one
// explicit change notification after the final chunk.
type BatchService struct {
	matches  *repository.MatchRepository
	notifier *livequery.Notifier
	logger   zerolog.Logger
}

func NewBatchService(matches *repository.MatchRepository, notifier *livequery.Notifier, logger zerolog.Logger) *BatchService {
	return &BatchService{matches: matches, notifier: notifier, logger: logger}
}

// SetDeleted soft-deletes (or restores) the given matches in chunks,
// reporting cumulative progress after each chunk.
func (s *BatchService) SetDeleted(ctx context.Context, ids []string, value bool, onProgress func(Progress)) error {
	return s.run(ctx, ids, value, s.matches.SetDeletedChunk, onProgress)
}

// SetFavorite applies the favorite flag to many matches at once.
func (s *BatchService) SetFavorite(ctx context.Context, ids []string, value bool, onProgress func(Progress)) error {
	return s.run(ctx, ids, value, s.matches.SetFavoriteChunk, onProgress)
}

func (s *BatchService) run(
	ctx context.Context,
	ids []string,
	value bool,
	apply func(context.Context, []string, bool) error,
	onProgress func(Progress),
) error {
	total := len(ids)
	if total == 0 {
		return nil
	}

	processed := 0
	for start := 0; start < total; start += constants.BatchChunkSize {
		// Chunk boundaries are also the cancellation points; a cancel
		// is observed within one chunk at most.
		if err := ctx.Err(); err != nil {
			return &domain.PartialBatchError{Processed: processed, Total: total, Err: err}
		}

		end := min(start+constants.BatchChunkSize, total)
		if err := apply(ctx, ids[start:end], value); err != nil {
			s.logger.Error().Err(err).
				Int("processed", processed).
				Int("total", total).
				Msg("batch mutation stopped early")
			return &domain.PartialBatchError{Processed: processed, Total: total, Err: err}
		}

		processed = end
		if onProgress != nil {
			onProgress(Progress{Processed: processed, Total: total})
		}
	}

	s.logger.Info().Int("total", total).Msg("batch mutation completed")
	s.notifier.Broadcast()
	return nil
}
