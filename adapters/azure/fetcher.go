// Package azure retrieves subscriptions, rate cards and usage aggregates from
// the Azure billing APIs. All requests go through a retry-aware fetcher that
// tolerates caller-declared failure statuses and can rewrite its own URL
// between attempts based on the failing response body.
package azure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"azure-costs/core/document"
	"azure-costs/internal/errors"
	"azure-costs/internal/logging"
)

const (
	// DefaultBaseURL is the management API endpoint.
	DefaultBaseURL = "https://management.azure.com"

	defaultRetries    = 10
	defaultRetryDelay = 2 * time.Second
)

// RecoverFunc inspects the raw body of a failed response and returns the URL
// to use for the next attempt.
type RecoverFunc func(rawBody string) string

// ClientConfig configures the API client.
type ClientConfig struct {
	// BaseURL of the management API
	BaseURL string

	// Token is the bearer token attached to GET requests
	Token string

	// Retries is the total number of attempts per logical request
	Retries int

	// RetryDelay is the fixed delay between attempts
	RetryDelay time.Duration

	// DebugDump persists request bodies to numbered files for offline
	// inspection
	DebugDump bool

	// DumpDir is where debug dumps are written
	DumpDir string

	// HTTPClient overrides the transport (tests)
	HTTPClient *http.Client
}

// Client is the retry-aware API client. It is not safe for concurrent use;
// the pipeline is strictly sequential.
type Client struct {
	http       *http.Client
	baseURL    string
	token      string
	retries    int
	retryDelay time.Duration
	debugDump  bool
	dumpDir    string

	parsedCount int
	failedCount int
}

// NewClient creates a client. Redirects are never followed: a 302 from the
// rate-card endpoint is a "no data" signal, not a redirect to chase.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	c := &Client{
		http:       httpClient,
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		debugDump:  cfg.DebugDump,
		dumpDir:    cfg.DumpDir,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.retries <= 0 {
		c.retries = defaultRetries
	}
	if c.retryDelay <= 0 {
		c.retryDelay = defaultRetryDelay
	}
	if c.dumpDir == "" {
		c.dumpDir = "."
	}
	return c
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// GetJSON fetches path (relative to the base URL) and parses the body as a
// JSON document. A response status in acceptable returns (nil, nil): the
// caller declared it a "no data here" signal. Transport, status and parse
// failures are retried up to the attempt ceiling with a fixed delay; when a
// recover function is supplied, it receives each failing raw body and
// rewrites the URL for the next attempt.
func (c *Client) GetJSON(ctx context.Context, path string, acceptable []int, recoverFn RecoverFunc) (document.Document, error) {
	retryURL := path

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		logging.Debug("getting url",
			zap.Int("attempt", attempt),
			zap.String("url", retryURL))

		body, err := c.get(ctx, retryURL, acceptable)
		if err == nil && body == nil {
			// Acceptable failure status: no data here.
			return nil, nil
		}
		if err == nil {
			doc, perr := document.Parse(body)
			if perr == nil {
				c.dumpParsed(doc)
				return doc, nil
			}
			err = perr
		}

		logging.Warn("request failed",
			zap.String("url", retryURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
			zap.String("body", string(body)))
		c.dumpFailing(string(body))

		if recoverFn != nil {
			retryURL = recoverFn(string(body))
		}

		lastErr = err
		if attempt == c.retries {
			break
		}

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, errors.Network(fmt.Sprintf("request failed after %d attempts: %s", c.retries, retryURL), lastErr)
}

// PostForm posts form-encoded data to an absolute URL and parses the JSON
// response, sharing the retry, parse and debug-dump behavior of GetJSON.
// There is no acceptable-status short-circuit and no recovery hook.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (document.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		body, err := c.post(ctx, rawURL, form)
		if err == nil {
			doc, perr := document.Parse(body)
			if perr == nil {
				c.dumpParsed(doc)
				return doc, nil
			}
			err = perr
		}

		logging.Warn("post failed",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		c.dumpFailing(string(body))

		lastErr = err
		if attempt == c.retries {
			break
		}

		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, errors.Network(fmt.Sprintf("post failed after %d attempts: %s", c.retries, rawURL), lastErr)
}

// get performs one GET attempt. It returns (nil, nil) for an acceptable
// status, the body for a successful status, and an error otherwise (with
// whatever body was read, for recovery and forensics).
func (c *Client) get(ctx context.Context, path string, acceptable []int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return body, err
	}

	for _, code := range acceptable {
		if resp.StatusCode == code {
			return nil, nil
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return body, fmt.Errorf("empty response body")
	}

	return body, nil
}

func (c *Client) post(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return body, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(body) == 0 {
		return body, fmt.Errorf("empty response body")
	}

	return body, nil
}

// dumpParsed persists a successfully parsed body to a numbered file.
func (c *Client) dumpParsed(doc document.Document) {
	if !c.debugDump {
		return
	}
	name := filepath.Join(c.dumpDir, fmt.Sprintf("result_%d.json", c.parsedCount))
	c.parsedCount++
	if err := os.WriteFile(name, []byte(doc.Get("@pretty").Raw), 0644); err != nil {
		logging.Warn("writing debug dump", zap.String("file", name), zap.Error(err))
	}
}

// dumpFailing persists a failing raw body with JSON-string escaping undone,
// so HTML error pages read as HTML.
func (c *Client) dumpFailing(body string) {
	if !c.debugDump || len(body) == 0 || body == `""` {
		return
	}
	name := filepath.Join(c.dumpDir, fmt.Sprintf("result_%d.html", c.failedCount))
	c.failedCount++

	content := body
	if len(content) >= 2 && strings.HasPrefix(content, `"`) && strings.HasSuffix(content, `"`) {
		content = content[1 : len(content)-1]
	}
	content = strings.ReplaceAll(content, `\r`, "\r")
	content = strings.ReplaceAll(content, `\n`, "\n")

	logging.Info("saving failing response", zap.String("file", name))
	if err := os.WriteFile(name, []byte(content), 0644); err != nil {
		logging.Warn("writing debug dump", zap.String("file", name), zap.Error(err))
	}
}
