package syncer

import (
	"context"
	"fmt"

	"tandem/internal/logging"
	"tandem/internal/queue"
	"tandem/internal/services"
)

// PrepareNext claims the oldest pending mapping and prepares it for syncing:
// transcript acquisition followed by priming the book index. The processing
// marker is persisted before any blocking work so an interrupted run is
// detectable at the next startup. Returns true when a mapping was claimed.
func (e *Engine) PrepareNext(ctx context.Context) (bool, error) {
	item, err := e.store.NextPending(ctx)
	if err != nil {
		return false, err
	}
	if item == nil {
		return false, nil
	}
	log := e.itemLogger(item).With(logging.String(logging.FieldPhase, "prepare"))
	log.InfoContext(ctx, "preparing mapping")

	item.Status = queue.StatusProcessing
	if err := e.store.Update(ctx, item); err != nil {
		return false, fmt.Errorf("mark mapping processing: %w", err)
	}

	if err := e.prepare(ctx, item); err != nil {
		log.ErrorContext(ctx, "preparation failed", logging.Error(err))
		item.SetFailed(services.FailureStatus(err), err.Error())
		if saveErr := e.store.Update(ctx, item); saveErr != nil {
			return true, fmt.Errorf("record preparation failure: %w", saveErr)
		}
		return true, nil
	}

	item.Status = queue.StatusActive
	item.ErrorMessage = ""
	if err := e.store.Update(ctx, item); err != nil {
		return true, fmt.Errorf("mark mapping active: %w", err)
	}
	log.InfoContext(ctx, "mapping active and syncing")
	return true, nil
}

func (e *Engine) prepare(ctx context.Context, item *queue.Item) error {
	parts, err := e.audio.AudioParts(ctx, item.AudioItemID)
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "syncer", "prepare", "list audio parts", err)
	}
	if len(parts) == 0 {
		return services.Wrap(services.ErrNotFound, "syncer", "prepare", "item has no audio parts", nil)
	}

	transcriptPath, err := e.transcriber.EnsureTranscript(ctx, item.AudioItemID, parts)
	if err != nil {
		return err
	}

	if _, err := e.indexer.Load(item.EbookPath); err != nil {
		return err
	}

	item.TranscriptPath = transcriptPath
	return nil
}

// RecoverCrashed marks mappings left in processing by a previous run. Run
// once at startup; crashed mappings stay parked until explicitly re-queued.
func (e *Engine) RecoverCrashed(ctx context.Context) (int64, error) {
	count, err := e.store.MarkInterrupted(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		e.logger.WarnContext(ctx, "mappings interrupted by previous run marked crashed",
			logging.Int64("count", count))
	}
	return count, nil
}
