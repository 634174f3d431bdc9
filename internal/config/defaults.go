package config

const (
	defaultDataDir                 = "~/.local/share/tandem"
	defaultBooksDir                = "~/books"
	defaultLogDir                  = "~/.local/share/tandem/logs"
	defaultRequestTimeout          = 30
	defaultDownloadTimeout         = 120
	defaultDeviceName              = "tandem"
	defaultHashMethod              = "content"
	defaultAudioDeltaSeconds       = 60.0
	defaultReadingDeltaPercent     = 1.0
	defaultCharacterDeltaThreshold = 2000
	defaultSyncIntervalMinutes     = 5
	defaultQueuePollSeconds        = 60
	defaultModel                   = "tiny"
	defaultMaxChunkMinutes         = 45
	defaultFuzzyCutoff             = 75
	defaultTranscriptCutoff        = 80
	defaultSnippetRadius           = 450
	defaultWindowMinChars          = 400
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// HashMethodContent selects the KOReader partial content hash for document IDs.
const HashMethodContent = "content"

// HashMethodFilename selects the filename MD5 hash for document IDs.
const HashMethodFilename = "filename"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			BooksDir: defaultBooksDir,
			LogDir:   defaultLogDir,
		},
		Audiobookshelf: Audiobookshelf{
			RequestTimeout: defaultRequestTimeout,
		},
		KoSync: KoSync{
			DeviceName: defaultDeviceName,
			HashMethod: defaultHashMethod,
		},
		Sync: Sync{
			AudioDeltaSeconds:       defaultAudioDeltaSeconds,
			ReadingDeltaPercent:     defaultReadingDeltaPercent,
			CharacterDeltaThreshold: defaultCharacterDeltaThreshold,
			IntervalMinutes:         defaultSyncIntervalMinutes,
			QueuePollSeconds:        defaultQueuePollSeconds,
		},
		Transcription: Transcription{
			Model:           defaultModel,
			MaxChunkMinutes: defaultMaxChunkMinutes,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Match: Match{
			FuzzyCutoff:      defaultFuzzyCutoff,
			TranscriptCutoff: defaultTranscriptCutoff,
			SnippetRadius:    defaultSnippetRadius,
			WindowMinChars:   defaultWindowMinChars,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
