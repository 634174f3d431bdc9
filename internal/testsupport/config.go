package testsupport

import (
	"path/filepath"
	"testing"

	"tandem/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.BooksDir = filepath.Join(base, "books")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Audiobookshelf.URL = "http://127.0.0.1:0"
	cfgVal.Audiobookshelf.Token = "test-token"
	cfgVal.KoSync.URL = "http://127.0.0.1:0"
	cfgVal.KoSync.User = "test-user"
	cfgVal.KoSync.Key = "test-key"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSyncThresholds overrides the propagation thresholds on the test config.
func WithSyncThresholds(audioSeconds, readingPercent float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sync.AudioDeltaSeconds = audioSeconds
		b.cfg.Sync.ReadingDeltaPercent = readingPercent
	}
}

// WithHashMethod overrides the KoSync document hash method on the test config.
func WithHashMethod(method string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.KoSync.HashMethod = method
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
