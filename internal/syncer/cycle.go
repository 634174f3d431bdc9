package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"tandem/internal/logging"
	"tandem/internal/queue"
	"tandem/internal/transcript"
)

// RunCycle reconciles every active mapping once, in queue order. A failure
// on one mapping is logged and does not stop the rest of the cycle. Every
// log line in a cycle shares one correlation ID.
func (e *Engine) RunCycle(ctx context.Context) error {
	items, err := e.store.List(ctx, queue.StatusActive)
	if err != nil {
		return fmt.Errorf("list active mappings: %w", err)
	}
	cycleLog := e.logger.With(logging.String(logging.FieldCycleID, uuid.NewString()))
	cycleLog.DebugContext(ctx, "sync cycle started", logging.Int("active_mappings", len(items)))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.reconcile(ctx, cycleLog, item)
	}
	return nil
}

// reconcile runs the per-mapping state machine. Provider fetch failures skip
// the mapping without touching state; everything after the fetches either
// propagates a change or stabilizes the stored positions.
func (e *Engine) reconcile(ctx context.Context, cycleLog *slog.Logger, item *queue.Item) {
	log := cycleLog.With(
		logging.String(logging.FieldAudioID, item.AudioItemID),
		logging.String(logging.FieldTitle, item.Title),
	)

	audioNow, err := e.audio.Progress(ctx, item.AudioItemID)
	if err != nil {
		log.WarnContext(ctx, "audio progress fetch failed, skipping mapping", logging.Error(err))
		return
	}
	readingNow, err := e.reading.GetProgress(ctx, item.DocumentID)
	if err != nil {
		log.WarnContext(ctx, "reading progress fetch failed, skipping mapping", logging.Error(err))
		return
	}

	state, err := e.store.GetState(ctx, item.AudioItemID)
	if err != nil {
		log.ErrorContext(ctx, "load sync state failed", logging.Error(err))
		return
	}

	audioDelta := math.Abs(audioNow - state.AudioSeconds)
	readingDelta := math.Abs(readingNow - state.ReadingFraction)

	audioChanged := audioDelta > e.cfg.Sync.AudioDeltaSeconds
	readingChanged := readingDelta > e.cfg.Sync.ReadingDeltaPercent/100

	if audioDelta > 0 && !audioChanged {
		log.DebugContext(ctx, "audio delta below threshold, holding position",
			logging.Float64("delta_seconds", audioDelta))
		state.AudioSeconds = audioNow
		if err := e.store.SaveState(ctx, state); err != nil {
			log.ErrorContext(ctx, "save sync state failed", logging.Error(err))
			return
		}
	}

	if readingDelta > 0 && !readingChanged {
		charDelta := e.characterDelta(item, state.ReadingFraction, readingNow)
		if charDelta > e.cfg.Sync.CharacterDeltaThreshold {
			// A small fraction can still span a lot of text; treat it as
			// a real change when the character distance says so.
			log.DebugContext(ctx, "reading delta corroborated by character distance",
				logging.Int("char_delta", charDelta))
			readingChanged = true
		} else {
			log.DebugContext(ctx, "reading delta below threshold, holding position",
				logging.Float64("delta_fraction", readingDelta),
				logging.Int("char_delta", charDelta))
			state.ReadingFraction = readingNow
			if err := e.store.SaveState(ctx, state); err != nil {
				log.ErrorContext(ctx, "save sync state failed", logging.Error(err))
				return
			}
		}
	}

	if !audioChanged && !readingChanged {
		return
	}

	if audioChanged && readingChanged {
		log.InfoContext(ctx, "both sides moved, audio side wins")
	}

	var propagated bool
	if audioChanged {
		propagated, err = e.propagateFromAudio(ctx, item, state, audioNow)
	} else {
		propagated, err = e.propagateFromReading(ctx, item, state, readingNow)
	}
	if err != nil {
		// Collaborator push failed; leave state untouched and retry the
		// same delta next cycle.
		log.WarnContext(ctx, "progress push failed, retrying next cycle", logging.Error(err))
		return
	}
	if !propagated {
		// Unresolvable content. Hold both observed values so the same
		// delta is not reconsidered forever.
		log.WarnContext(ctx, "position match failed, holding both sides",
			logging.Float64("audio_now", audioNow),
			logging.Float64("reading_now", readingNow))
		state.AudioSeconds = audioNow
		state.ReadingFraction = readingNow
	}
	if err := e.store.SaveState(ctx, state); err != nil {
		log.ErrorContext(ctx, "save sync state failed", logging.Error(err))
	}
}

// propagateFromAudio translates the audio timestamp into a book position and
// pushes it to the reading provider. A false result with nil error means the
// position could not be resolved; an error means the push itself failed.
func (e *Engine) propagateFromAudio(ctx context.Context, item *queue.Item, state *queue.SyncState, audioNow float64) (bool, error) {
	log := e.itemLogger(item)

	segments, err := e.transcripts.Load(item.TranscriptPath)
	if err != nil {
		log.WarnContext(ctx, "transcript unavailable", logging.Error(err))
		return false, nil
	}
	probe, ok := transcript.WindowAt(segments, audioNow, e.cfg.Match.WindowMinChars)
	if !ok {
		return false, nil
	}
	idx, err := e.indexer.Load(item.EbookPath)
	if err != nil {
		log.WarnContext(ctx, "ebook unavailable", logging.Error(err))
		return false, nil
	}
	match, ok := e.resolver.Locate(idx, probe)
	if !ok {
		log.InfoContext(ctx, "probe text not found in book",
			logging.Float64("seconds", audioNow))
		return false, nil
	}

	if err := e.reading.UpdateProgress(ctx, item.DocumentID, match.Fraction, match.Locator); err != nil {
		return false, fmt.Errorf("push reading progress: %w", err)
	}
	log.InfoContext(ctx, "audio position propagated to reader",
		logging.Float64("seconds", audioNow),
		logging.Float64("fraction", match.Fraction),
		logging.String("tier", string(match.Tier)))

	state.AudioSeconds = audioNow
	state.ReadingFraction = match.Fraction
	state.CharOffset = int64(match.Offset)
	return true, nil
}

// propagateFromReading translates the reading fraction into an audio
// timestamp and pushes it to the audio provider.
func (e *Engine) propagateFromReading(ctx context.Context, item *queue.Item, state *queue.SyncState, readingNow float64) (bool, error) {
	log := e.itemLogger(item)

	idx, err := e.indexer.Load(item.EbookPath)
	if err != nil {
		log.WarnContext(ctx, "ebook unavailable", logging.Error(err))
		return false, nil
	}
	snippet := idx.SnippetAt(readingNow, e.cfg.Match.SnippetRadius)
	if snippet == "" {
		return false, nil
	}
	segments, err := e.transcripts.Load(item.TranscriptPath)
	if err != nil {
		log.WarnContext(ctx, "transcript unavailable", logging.Error(err))
		return false, nil
	}
	seconds, ok := transcript.TimeForText(segments, snippet, e.cfg.Match.TranscriptCutoff)
	if !ok {
		log.InfoContext(ctx, "book snippet not found in transcript",
			logging.Float64("fraction", readingNow))
		return false, nil
	}

	if err := e.audio.UpdateProgress(ctx, item.AudioItemID, seconds); err != nil {
		return false, fmt.Errorf("push audio progress: %w", err)
	}
	log.InfoContext(ctx, "reading position propagated to player",
		logging.Float64("fraction", readingNow),
		logging.Float64("seconds", seconds))

	state.AudioSeconds = seconds
	state.ReadingFraction = readingNow
	state.CharOffset = int64(idx.OffsetForFraction(readingNow))
	return true, nil
}

// characterDelta measures the text distance spanned by two fractions. An
// unreadable book counts as zero distance so the caller falls back to the
// fraction threshold alone.
func (e *Engine) characterDelta(item *queue.Item, last, now float64) int {
	idx, err := e.indexer.Load(item.EbookPath)
	if err != nil {
		return 0
	}
	return idx.CharacterDelta(last, now)
}
