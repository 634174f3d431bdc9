package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAudiobookshelf()
	c.normalizeKoSync()
	c.normalizeSync()
	c.normalizeTranscription()
	c.normalizeMatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.BooksDir, err = expandPath(c.Paths.BooksDir); err != nil {
		return fmt.Errorf("paths.books_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAudiobookshelf() {
	c.Audiobookshelf.URL = strings.TrimRight(strings.TrimSpace(c.Audiobookshelf.URL), "/")
	if c.Audiobookshelf.Token == "" {
		if value, ok := os.LookupEnv("ABS_TOKEN"); ok {
			c.Audiobookshelf.Token = value
		}
	}
	if c.Audiobookshelf.RequestTimeout <= 0 {
		c.Audiobookshelf.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeKoSync() {
	c.KoSync.URL = strings.TrimRight(strings.TrimSpace(c.KoSync.URL), "/")
	if c.KoSync.Key == "" {
		if value, ok := os.LookupEnv("KOSYNC_KEY"); ok {
			c.KoSync.Key = value
		}
	}
	if strings.TrimSpace(c.KoSync.DeviceName) == "" {
		c.KoSync.DeviceName = defaultDeviceName
	}
	c.KoSync.HashMethod = strings.ToLower(strings.TrimSpace(c.KoSync.HashMethod))
	if c.KoSync.HashMethod == "" {
		c.KoSync.HashMethod = defaultHashMethod
	}
}

func (c *Config) normalizeSync() {
	if c.Sync.AudioDeltaSeconds <= 0 {
		c.Sync.AudioDeltaSeconds = defaultAudioDeltaSeconds
	}
	if c.Sync.ReadingDeltaPercent <= 0 {
		c.Sync.ReadingDeltaPercent = defaultReadingDeltaPercent
	}
	if c.Sync.CharacterDeltaThreshold <= 0 {
		c.Sync.CharacterDeltaThreshold = defaultCharacterDeltaThreshold
	}
	if c.Sync.IntervalMinutes <= 0 {
		c.Sync.IntervalMinutes = defaultSyncIntervalMinutes
	}
	if c.Sync.QueuePollSeconds <= 0 {
		c.Sync.QueuePollSeconds = defaultQueuePollSeconds
	}
}

func (c *Config) normalizeTranscription() {
	if strings.TrimSpace(c.Transcription.Model) == "" {
		c.Transcription.Model = defaultModel
	}
	if c.Transcription.MaxChunkMinutes <= 0 {
		c.Transcription.MaxChunkMinutes = defaultMaxChunkMinutes
	}
	if c.Transcription.DownloadTimeout <= 0 {
		c.Transcription.DownloadTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeMatch() {
	if c.Match.FuzzyCutoff <= 0 {
		c.Match.FuzzyCutoff = defaultFuzzyCutoff
	}
	if c.Match.TranscriptCutoff <= 0 {
		c.Match.TranscriptCutoff = defaultTranscriptCutoff
	}
	if c.Match.SnippetRadius <= 0 {
		c.Match.SnippetRadius = defaultSnippetRadius
	}
	if c.Match.WindowMinChars <= 0 {
		c.Match.WindowMinChars = defaultWindowMinChars
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
