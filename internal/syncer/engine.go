package syncer

import (
	"context"
	"log/slog"

	"tandem/internal/config"
	"tandem/internal/ebook"
	"tandem/internal/logging"
	"tandem/internal/queue"
	"tandem/internal/services/audiobookshelf"
	"tandem/internal/transcript"
)

// AudioProvider is the audio-side collaborator. Progress values are absolute
// playback positions in seconds.
type AudioProvider interface {
	Progress(ctx context.Context, itemID string) (float64, error)
	UpdateProgress(ctx context.Context, itemID string, seconds float64) error
	AudioParts(ctx context.Context, itemID string) ([]audiobookshelf.AudioPart, error)
}

// ReadingProvider is the reading-side collaborator. Progress values are
// fractions of the document in [0,1]. An empty locator falls back to the
// fraction on the provider side.
type ReadingProvider interface {
	GetProgress(ctx context.Context, documentID string) (float64, error)
	UpdateProgress(ctx context.Context, documentID string, fraction float64, locator string) error
}

// Transcriber prepares a persisted transcript for a queued mapping.
type Transcriber interface {
	TranscriptPath(audioID string) string
	EnsureTranscript(ctx context.Context, audioID string, parts []audiobookshelf.AudioPart) (string, error)
}

// Engine reconciles playback and reading positions for every active mapping
// and prepares newly queued mappings. All methods run on a single goroutine;
// the engine holds no locks of its own.
type Engine struct {
	cfg         *config.Config
	store       *queue.Store
	audio       AudioProvider
	reading     ReadingProvider
	transcriber Transcriber

	indexer     *ebook.Indexer
	resolver    *ebook.Resolver
	transcripts *transcript.Library
	logger      *slog.Logger
}

// NewEngine wires an engine from its collaborators. The ebook index and
// transcript caches live for the engine's lifetime.
func NewEngine(cfg *config.Config, store *queue.Store, audio AudioProvider, reading ReadingProvider, transcriber Transcriber, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		cfg:         cfg,
		store:       store,
		audio:       audio,
		reading:     reading,
		transcriber: transcriber,
		indexer:     ebook.NewIndexer(),
		resolver:    &ebook.Resolver{FuzzyCutoff: cfg.Match.FuzzyCutoff},
		transcripts: transcript.NewLibrary(),
		logger:      logger.With(logging.String(logging.FieldComponent, "syncer")),
	}
}

func (e *Engine) itemLogger(item *queue.Item) *slog.Logger {
	return e.logger.With(
		logging.String(logging.FieldAudioID, item.AudioItemID),
		logging.String(logging.FieldTitle, item.Title),
	)
}
