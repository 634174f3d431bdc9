package kosync

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tandem/internal/config"
	"tandem/internal/services"
)

// HTTPDoer describes the HTTP client used by the KoSync service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a KOReader position-sync server. The protocol
// authenticates every request with the username and the MD5 of the password,
// and addresses books by document digest rather than by title.
type Client struct {
	baseURL    string
	user       string
	authKey    string
	deviceName string
	deviceID   string
	client     HTTPDoer
}

// Progress is a reading position as the sync server stores it.
type Progress struct {
	Document   string  `json:"document"`
	Percentage float64 `json:"percentage"`
	Progress   string  `json:"progress"`
	Device     string  `json:"device"`
	DeviceID   string  `json:"device_id"`
	Timestamp  int64   `json:"timestamp"`
}

// New constructs a client from configuration.
func New(cfg *config.Config) *Client {
	return NewWithClient(cfg.KoSync.URL, cfg.KoSync.User, cfg.KoSync.Key, cfg.KoSync.DeviceName, &http.Client{
		Timeout: 30 * time.Second,
	})
}

// NewWithClient constructs a client with an explicit HTTP doer, mainly for
// tests.
func NewWithClient(baseURL, user, key, deviceName string, client HTTPDoer) *Client {
	sum := md5.Sum([]byte(key))
	// Stable per device name, so the server sees one consistent device
	// across restarts.
	deviceID := uuid.NewSHA1(uuid.NameSpaceURL, []byte("tandem:"+deviceName)).String()
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		user:       strings.TrimSpace(user),
		authKey:    hex.EncodeToString(sum[:]),
		deviceName: deviceName,
		deviceID:   deviceID,
		client:     client,
	}
}

// CheckConnection verifies the server is reachable. Servers without a
// healthcheck endpoint are probed through the progress route instead; any
// HTTP response counts as reachable there, since auth errors surface on the
// first real sync.
func (c *Client) CheckConnection(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthcheck", nil)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}

	resp, err = c.do(ctx, http.MethodGet, "/syncs/progress/test-connection", nil)
	if err != nil {
		return fmt.Errorf("%w: kosync: %v", services.ErrUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

// GetProgress returns the stored reading fraction for a document. Unknown
// documents read as zero.
func (c *Client) GetProgress(ctx context.Context, documentID string) (float64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/syncs/progress/"+documentID, nil)
	if err != nil {
		return 0, fmt.Errorf("fetch kosync progress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch kosync progress: status %d", resp.StatusCode)
	}

	var progress Progress
	if err := json.NewDecoder(resp.Body).Decode(&progress); err != nil {
		return 0, fmt.Errorf("decode kosync progress: %w", err)
	}
	return progress.Percentage, nil
}

// UpdateProgress pushes a reading fraction for a document. When a locator is
// provided it becomes the progress string readers display; otherwise a
// percentage string is sent.
func (c *Client) UpdateProgress(ctx context.Context, documentID string, fraction float64, locator string) error {
	progressValue := locator
	if progressValue == "" {
		progressValue = fmt.Sprintf("%.2f%%", fraction*100)
	}
	payload := Progress{
		Document:   documentID,
		Percentage: fraction,
		Progress:   progressValue,
		Device:     c.deviceName,
		DeviceID:   c.deviceID,
		Timestamp:  time.Now().Unix(),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal kosync progress: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/syncs/progress", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("update kosync progress: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("update kosync progress: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("x-auth-user", c.user)
	req.Header.Set("x-auth-key", c.authKey)
	req.Header.Set("accept", "application/vnd.koreader.v1+json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	return c.client.Do(req)
}
