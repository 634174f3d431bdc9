package audiobookshelf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tandem/internal/config"
	"tandem/internal/services"
)

// HTTPDoer describes the HTTP client used by the Audiobookshelf service.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to an Audiobookshelf server. All requests carry the API token
// and pass through a shared rate limiter so library scans cannot hammer the
// server.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
	limiter *rate.Limiter
}

// Item is one audiobook in a library.
type Item struct {
	ID     string
	Title  string
	Author string
}

// AudioPart is a streamable audio file of an audiobook.
type AudioPart struct {
	StreamURL string
	Ext       string
}

// EbookFile describes an e-book attached to a library item.
type EbookFile struct {
	Filename    string
	DownloadURL string
}

// New constructs a client from configuration.
func New(cfg *config.Config) *Client {
	return NewWithClient(cfg.Audiobookshelf.URL, cfg.Audiobookshelf.Token, &http.Client{
		Timeout: time.Duration(cfg.Audiobookshelf.RequestTimeout) * time.Second,
	})
}

// NewWithClient constructs a client with an explicit HTTP doer, mainly for
// tests.
func NewWithClient(baseURL, token string, client HTTPDoer) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
}

// CheckConnection verifies credentials and returns the authenticated
// username.
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	var me struct {
		Username string `json:"username"`
	}
	if err := c.get(ctx, "/api/me", nil, &me); err != nil {
		return "", fmt.Errorf("%w: audiobookshelf: %v", services.ErrUnavailable, err)
	}
	return me.Username, nil
}

// ListAudiobooks scans every library for audiobook items.
func (c *Client) ListAudiobooks(ctx context.Context) ([]Item, error) {
	var libs struct {
		Libraries []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"libraries"`
	}
	if err := c.get(ctx, "/api/libraries", nil, &libs); err != nil {
		return nil, fmt.Errorf("fetch libraries: %w", err)
	}

	var items []Item
	for _, lib := range libs.Libraries {
		var page struct {
			Results []struct {
				ID    string `json:"id"`
				Media struct {
					Metadata struct {
						Title      string `json:"title"`
						AuthorName string `json:"authorName"`
					} `json:"metadata"`
				} `json:"media"`
			} `json:"results"`
		}
		query := url.Values{"mediaType": {"audiobook"}}
		if err := c.get(ctx, "/api/libraries/"+lib.ID+"/items", query, &page); err != nil {
			return nil, fmt.Errorf("fetch items for library %s: %w", lib.Name, err)
		}
		for _, result := range page.Results {
			items = append(items, Item{
				ID:     result.ID,
				Title:  result.Media.Metadata.Title,
				Author: result.Media.Metadata.AuthorName,
			})
		}
	}
	return items, nil
}

// AudioParts returns tokenized stream URLs for every audio file of an item,
// in playback order.
func (c *Client) AudioParts(ctx context.Context, itemID string) ([]AudioPart, error) {
	item, err := c.itemDetail(ctx, itemID)
	if err != nil {
		return nil, err
	}

	parts := make([]AudioPart, 0, len(item.Media.AudioFiles))
	for _, af := range item.Media.AudioFiles {
		ext := af.Metadata.Ext
		if ext == "" {
			ext = ".mp3"
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		parts = append(parts, AudioPart{
			StreamURL: c.fileURL(itemID, af.Ino),
			Ext:       ext,
		})
	}
	return parts, nil
}

// EbookFile returns download info for the e-book attached to an item, or
// services.ErrNotFound when the item has none.
func (c *Client) EbookFile(ctx context.Context, itemID string) (*EbookFile, error) {
	item, err := c.itemDetail(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Media.EbookFile == nil {
		return nil, fmt.Errorf("%w: item %s has no ebook file", services.ErrNotFound, itemID)
	}

	filename := item.Media.EbookFile.Metadata.Filename
	if filename == "" {
		filename = "ebook.epub"
	}
	return &EbookFile{
		Filename:    filename,
		DownloadURL: c.fileURL(itemID, item.Media.EbookFile.Ino),
	}, nil
}

// DownloadEbook fetches the item's e-book into targetDir and returns the
// local path.
func (c *Client) DownloadEbook(ctx context.Context, itemID, targetDir string) (string, error) {
	info, err := c.EbookFile(ctx, itemID)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, info.DownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("build ebook download request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download ebook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download ebook: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create books dir: %w", err)
	}
	targetPath := filepath.Join(targetDir, info.Filename)
	f, err := os.Create(targetPath)
	if err != nil {
		return "", fmt.Errorf("create ebook file: %w", err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		_ = os.Remove(targetPath)
		return "", fmt.Errorf("write ebook file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close ebook file: %w", err)
	}
	return targetPath, nil
}

// Progress returns the current playback position in seconds. An item with
// no progress record reads as zero.
func (c *Client) Progress(ctx context.Context, itemID string) (float64, error) {
	var progress struct {
		CurrentTime float64 `json:"currentTime"`
	}
	err := c.get(ctx, "/api/me/progress/"+itemID, nil, &progress)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetch progress: %w", err)
	}
	return progress.CurrentTime, nil
}

// UpdateProgress pushes a playback position in seconds.
func (c *Client) UpdateProgress(ctx context.Context, itemID string, seconds float64) error {
	payload := map[string]any{
		"currentTime": seconds,
		"duration":    0,
		"isFinished":  false,
	}
	if err := c.send(ctx, http.MethodPatch, "/api/me/progress/"+itemID, payload); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

type itemDetail struct {
	Media struct {
		AudioFiles []struct {
			Ino      string `json:"ino"`
			Metadata struct {
				Ext string `json:"ext"`
			} `json:"metadata"`
		} `json:"audioFiles"`
		EbookFile *struct {
			Ino      string `json:"ino"`
			Metadata struct {
				Filename string `json:"filename"`
			} `json:"metadata"`
		} `json:"ebookFile"`
	} `json:"media"`
}

func (c *Client) itemDetail(ctx context.Context, itemID string) (*itemDetail, error) {
	var item itemDetail
	if err := c.get(ctx, "/api/items/"+itemID, nil, &item); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: item %s", services.ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("fetch item %s: %w", itemID, err)
	}
	return &item, nil
}

// fileURL builds a token-authenticated URL for direct file access; the
// audio pipeline and e-book download fetch these without custom headers.
func (c *Client) fileURL(itemID, ino string) string {
	return fmt.Sprintf("%s/api/items/%s/file/%s?token=%s", c.baseURL, itemID, ino, url.QueryEscape(c.token))
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

func isStatus(err error, status int) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == status
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	return c.request(ctx, http.MethodGet, path, query, nil, dest)
}

func (c *Client) send(ctx context.Context, method, path string, payload any) error {
	return c.request(ctx, method, path, nil, payload, nil)
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, payload, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
