package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	BooksDir string `toml:"books_dir"`
	LogDir   string `toml:"log_dir"`
}

// Audiobookshelf contains connection settings for the audio-side provider.
type Audiobookshelf struct {
	URL            string `toml:"url"`
	Token          string `toml:"token"`
	RequestTimeout int    `toml:"request_timeout"`
}

// KoSync contains connection settings for the reading-side provider.
type KoSync struct {
	URL        string `toml:"url"`
	User       string `toml:"user"`
	Key        string `toml:"key"`
	DeviceName string `toml:"device_name"`
	HashMethod string `toml:"hash_method"`
}

// Sync contains reconciliation thresholds and daemon timing.
type Sync struct {
	AudioDeltaSeconds       float64 `toml:"audio_delta_seconds"`
	ReadingDeltaPercent     float64 `toml:"reading_delta_percent"`
	CharacterDeltaThreshold int     `toml:"character_delta_threshold"`
	IntervalMinutes         int     `toml:"interval_minutes"`
	QueuePollSeconds        int     `toml:"queue_poll_seconds"`
}

// Transcription contains settings for the speech-to-text engine.
type Transcription struct {
	Model           string `toml:"model"`
	Language        string `toml:"language"`
	MaxChunkMinutes int    `toml:"max_chunk_minutes"`
	DownloadTimeout int    `toml:"download_timeout"`
}

// Match contains resolver calibration.
type Match struct {
	FuzzyCutoff      int `toml:"fuzzy_cutoff"`
	TranscriptCutoff int `toml:"transcript_cutoff"`
	SnippetRadius    int `toml:"snippet_radius"`
	WindowMinChars   int `toml:"window_min_chars"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config is the root configuration consumed by the daemon and CLI.
type Config struct {
	Paths          Paths          `toml:"paths"`
	Audiobookshelf Audiobookshelf `toml:"audiobookshelf"`
	KoSync         KoSync         `toml:"kosync"`
	Sync           Sync           `toml:"sync"`
	Transcription  Transcription  `toml:"transcription"`
	Match          Match          `toml:"match"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the expanded default configuration location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tandem/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tandem.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// BooksDir is created on a best-effort basis so the daemon can start when
// external book storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.TranscriptsDir(), c.AudioCacheDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.BooksDir) != "" {
		_ = os.MkdirAll(c.Paths.BooksDir, 0o755)
	}
	return nil
}

// TranscriptsDir returns the directory holding persisted transcripts.
func (c *Config) TranscriptsDir() string {
	return filepath.Join(c.Paths.DataDir, "transcripts")
}

// AudioCacheDir returns the scratch directory for downloaded audio parts.
func (c *Config) AudioCacheDir() string {
	return filepath.Join(c.Paths.DataDir, "audio_cache")
}

// FFmpegBinary returns the ffmpeg executable name used for audio splitting.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for duration probes.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// WhisperBinary returns the speech-to-text executable name.
func (c *Config) WhisperBinary() string {
	return "whisper"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
