package agentclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	databasePath = "/wp-json/wpm/v1/backup/database"
	filesPath    = "/wp-json/wpm/v1/backup/files"
)

// Client talks to the WordPress remote agent plugin on a managed site.
// Exports stream straight to disk; archives can be large.
type Client struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		logger: logger.With().Str("component", "agent-client").Logger(),
	}
}

// FetchDatabase downloads the site's database export to destPath.
func (c *Client) FetchDatabase(ctx context.Context, siteURL, apiKey, destPath string) error {
	return c.fetch(ctx, siteURL, databasePath, apiKey, destPath)
}

// FetchFiles downloads the site's file archive to destPath.
func (c *Client) FetchFiles(ctx context.Context, siteURL, apiKey, destPath string) error {
	return c.fetch(ctx, siteURL, filesPath, apiKey, destPath)
}

func (c *Client) fetch(ctx context.Context, siteURL, path, apiKey, destPath string) error {
	url := strings.TrimRight(siteURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("agent returned %d for %s: %s", resp.StatusCode, path, string(body))
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(destPath)
		return fmt.Errorf("download %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("close %s: %w", destPath, err)
	}

	c.logger.Debug().Str("url", url).Int64("bytes", n).Msg("agent export downloaded")
	return nil
}
