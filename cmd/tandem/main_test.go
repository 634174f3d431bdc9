package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tandem/internal/config"
	"tandem/internal/queue"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
books_dir = %q
log_dir = %q

[audiobookshelf]
url = "http://abs.test"
token = "test-token"

[kosync]
url = "http://kosync.test"
user = "reader"
key = "secret"
`, filepath.Join(base, "data"), filepath.Join(base, "books"), filepath.Join(base, "logs"))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func seedMapping(t *testing.T, configPath string, status queue.Status) *queue.Item {
	t.Helper()
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	item, err := store.NewMapping(ctx, "audio-1", "The Lighthouse", "/books/lighthouse.epub", "doc-1")
	if err != nil {
		t.Fatalf("NewMapping failed: %v", err)
	}
	if status != queue.StatusPending {
		item.Status = status
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	return item
}

func TestQueueListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	if !strings.Contains(out, "Queue is empty") {
		t.Fatalf("output = %q, want empty-queue notice", out)
	}
}

func TestQueueListShowsMappings(t *testing.T) {
	configPath := writeTestConfig(t)
	seedMapping(t, configPath, queue.StatusPending)

	out, err := runCommand(t, "--config", configPath, "queue", "list")
	if err != nil {
		t.Fatalf("queue list failed: %v", err)
	}
	if !strings.Contains(out, "The Lighthouse") || !strings.Contains(out, "pending") {
		t.Fatalf("output missing mapping details: %q", out)
	}

	out, err = runCommand(t, "--config", configPath, "queue", "list", "--json")
	if err != nil {
		t.Fatalf("queue list --json failed: %v", err)
	}
	if !strings.Contains(out, `"audio-1"`) {
		t.Fatalf("json output missing audio item id: %q", out)
	}
}

func TestQueueRetryRequeuesFailed(t *testing.T) {
	configPath := writeTestConfig(t)
	item := seedMapping(t, configPath, queue.StatusFailedRetryLater)

	out, err := runCommand(t, "--config", configPath, "queue", "retry", fmt.Sprint(item.ID))
	if err != nil {
		t.Fatalf("queue retry failed: %v", err)
	}
	if !strings.Contains(out, "Re-queued 1") {
		t.Fatalf("output = %q, want one re-queued mapping", out)
	}
}

func TestMatchRequeueRejectsHealthyMapping(t *testing.T) {
	configPath := writeTestConfig(t)
	seedMapping(t, configPath, queue.StatusPending)

	_, err := runCommand(t, "--config", configPath, "match", "--requeue", "audio-1")
	if err == nil || !strings.Contains(err.Error(), "only failed or crashed") {
		t.Fatalf("expected re-queue rejection, got %v", err)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "tandem.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("output = %q, want written path", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init without --overwrite to fail on existing file")
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	configPath := writeTestConfig(t)
	out, err := runCommand(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if strings.Contains(out, "test-token") || strings.Contains(out, "secret") {
		t.Fatalf("secrets leaked in output: %q", out)
	}
	if !strings.Contains(out, "http://abs.test") {
		t.Fatalf("output missing provider url: %q", out)
	}
}
