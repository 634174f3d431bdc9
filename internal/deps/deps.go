// Package deps reports availability of the external binaries the
// transcription pipeline shells out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"tandem/internal/config"
)

// Requirement names one external binary tandem invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status is the lookup result for one requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Tooling lists the binaries transcript preparation needs. Everything here
// is required only while preparing a mapping; an already-active mapping
// syncs without them.
func Tooling(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "ffmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "splits oversized audio files before transcription",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "measures audio durations",
		},
		{
			Name:        "whisper",
			Command:     cfg.WhisperBinary(),
			Description: "speech-to-text engine producing transcript segments",
		},
	}
}

// Check resolves each requirement on PATH.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{Requirement: req}
		command := strings.TrimSpace(req.Command)
		if command == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(command); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", command)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing filters statuses down to the unavailable ones.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available {
			missing = append(missing, status)
		}
	}
	return missing
}
