package transcribe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tandem/internal/config"
	"tandem/internal/logging"
	"tandem/internal/services/audiobookshelf"
	"tandem/internal/transcript"
)

// HTTPDoer describes the HTTP client used for audio part downloads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service produces a persisted transcript for an audiobook: download every
// part, split oversized files, run the speech-to-text engine per chunk, and
// stitch segment times onto the whole-book timeline.
type Service struct {
	cfg           *config.Config
	logger        *slog.Logger
	client        HTTPDoer
	commandRunner func(ctx context.Context, name string, args ...string) (string, error)
}

// NewService creates a transcription service from configuration.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		cfg:    cfg,
		logger: logger.With(logging.String(logging.FieldComponent, "transcribe")),
		client: &http.Client{Timeout: time.Duration(cfg.Transcription.DownloadTimeout) * time.Second},
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) (string, error)) {
	s.commandRunner = runner
}

// WithHTTPClient sets a custom HTTP client (for testing).
func (s *Service) WithHTTPClient(client HTTPDoer) {
	s.client = client
}

// TranscriptPath returns where the transcript for an audiobook lives.
func (s *Service) TranscriptPath(audioID string) string {
	return filepath.Join(s.cfg.TranscriptsDir(), audioID+".json")
}

// EnsureTranscript returns the transcript path for an audiobook, producing
// the transcript first when none exists. The audio cache for the book is
// always removed afterwards; a partial transcript is removed on failure so a
// retry starts clean.
func (s *Service) EnsureTranscript(ctx context.Context, audioID string, parts []audiobookshelf.AudioPart) (string, error) {
	outputPath := s.TranscriptPath(audioID)
	if _, err := os.Stat(outputPath); err == nil {
		s.logger.InfoContext(ctx, "transcript already exists", logging.String("path", outputPath))
		return outputPath, nil
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no audio parts for %s", audioID)
	}

	cacheDir := filepath.Join(s.cfg.AudioCacheDir(), audioID)
	if err := os.RemoveAll(cacheDir); err != nil {
		return "", fmt.Errorf("reset audio cache: %w", err)
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create audio cache: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(cacheDir); err != nil {
			s.logger.WarnContext(ctx, "failed to clean audio cache", logging.Error(err))
		}
	}()

	var files []string
	for idx, part := range parts {
		s.logger.InfoContext(ctx, "downloading audio part",
			logging.Int("part", idx+1), logging.Int("total", len(parts)))
		localPath := filepath.Join(cacheDir, fmt.Sprintf("part_%03d%s", idx, part.Ext))
		if err := s.download(ctx, part.StreamURL, localPath); err != nil {
			return "", fmt.Errorf("download part %d: %w", idx+1, err)
		}
		chunks, err := s.splitIfNeeded(ctx, localPath)
		if err != nil {
			return "", fmt.Errorf("split part %d: %w", idx+1, err)
		}
		files = append(files, chunks...)
	}

	segments, err := s.transcribeAll(ctx, files, cacheDir)
	if err != nil {
		if removeErr := os.Remove(outputPath); removeErr != nil && !os.IsNotExist(removeErr) {
			s.logger.WarnContext(ctx, "failed to remove partial transcript", logging.Error(removeErr))
		}
		return "", err
	}

	if err := transcript.Save(outputPath, segments); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "transcription complete",
		logging.String("path", outputPath), logging.Int("segments", len(segments)))
	return outputPath, nil
}

func (s *Service) download(ctx context.Context, streamURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	written, err := io.Copy(f, resp.Body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("write audio file: %w", err)
	}
	if written == 0 {
		_ = os.Remove(dest)
		return fmt.Errorf("downloaded file is empty")
	}
	return nil
}

// splitIfNeeded slices a file exceeding the chunk limit into equal parts via
// stream copy and removes the original. Files within the limit pass through.
func (s *Service) splitIfNeeded(ctx context.Context, path string) ([]string, error) {
	duration, err := s.probeDuration(ctx, path)
	if err != nil {
		return nil, err
	}
	maxSeconds := float64(s.cfg.Transcription.MaxChunkMinutes) * 60
	if maxSeconds <= 0 || duration <= maxSeconds {
		return []string{path}, nil
	}

	numParts := int(math.Ceil(duration / maxSeconds))
	chunkSeconds := duration / float64(numParts)
	s.logger.InfoContext(ctx, "splitting oversized audio file",
		logging.Float64("duration_seconds", duration), logging.Int("chunks", numParts))

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	chunks := make([]string, 0, numParts)
	for i := 0; i < numParts; i++ {
		chunkPath := fmt.Sprintf("%s_split_%03d%s", base, i+1, ext)
		args := []string{
			"-y",
			"-i", path,
			"-ss", fmt.Sprintf("%f", float64(i)*chunkSeconds),
			"-t", fmt.Sprintf("%f", chunkSeconds),
			"-c", "copy",
			"-loglevel", "error",
			chunkPath,
		}
		if _, err := s.run(ctx, s.cfg.FFmpegBinary(), args...); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunkPath)
	}

	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("remove original after split: %w", err)
	}
	return chunks, nil
}

// transcribeAll runs the engine over every file in order, offsetting each
// file's segment times by the cumulative duration of the files before it.
func (s *Service) transcribeAll(ctx context.Context, files []string, workDir string) ([]transcript.Segment, error) {
	var all []transcript.Segment
	cumulative := 0.0
	for idx, path := range files {
		duration, err := s.probeDuration(ctx, path)
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "transcribing audio file",
			logging.Int("part", idx+1), logging.Int("total", len(files)),
			logging.Float64("duration_seconds", duration))

		segments, err := s.transcribeFile(ctx, path, workDir)
		if err != nil {
			return nil, err
		}
		for _, seg := range segments {
			all = append(all, transcript.Segment{
				Start: seg.Start + cumulative,
				End:   seg.End + cumulative,
				Text:  strings.TrimSpace(seg.Text),
			})
		}
		cumulative += duration
	}
	return all, nil
}

func (s *Service) transcribeFile(ctx context.Context, path, workDir string) ([]transcript.Segment, error) {
	args := []string{
		path,
		"--model", s.cfg.Transcription.Model,
		"--output_format", "json",
		"--output_dir", workDir,
		"--beam_size", "1",
	}
	if s.cfg.Transcription.Language != "" {
		args = append(args, "--language", s.cfg.Transcription.Language)
	}
	if _, err := s.run(ctx, s.cfg.WhisperBinary(), args...); err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", filepath.Base(path), err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	resultPath := filepath.Join(workDir, base+".json")
	segments, err := loadEngineOutput(resultPath)
	if err != nil {
		return nil, fmt.Errorf("read engine output for %s: %w", filepath.Base(path), err)
	}
	return segments, nil
}

// probeDuration reads a file's duration in seconds via ffprobe.
func (s *Service) probeDuration(ctx context.Context, path string) (float64, error) {
	out, err := s.run(ctx, s.cfg.FFprobeBinary(),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", filepath.Base(path), err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", filepath.Base(path), err)
	}
	return duration, nil
}

// run executes a command, using the custom runner if set.
func (s *Service) run(ctx context.Context, name string, args ...string) (string, error) {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.Output()
	if err != nil {
		detail := ""
		if exitErr, ok := err.(*exec.ExitError); ok {
			detail = ": " + strings.TrimSpace(string(exitErr.Stderr))
		}
		return "", fmt.Errorf("%s: %w%s", name, err, detail)
	}
	return string(output), nil
}
