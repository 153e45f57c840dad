package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/config"
)

// Client is the upstream market-data fetch boundary: given an endpoint
// and parameters it eventually yields raw JSON or fails. The provider is
// quota-constrained, so all calls go through the request scheduler.
type Client interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string) ([]byte, error)
}

// HTTPClient talks to the odds provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewHTTPClient creates a provider client from config.
func NewHTTPClient(cfg config.ProviderConfig, logger *logrus.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// Fetch performs a GET against the provider and returns the raw body.
func (c *HTTPClient) Fetch(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	if c.apiKey != "" {
		values.Set("apiKey", c.apiKey)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("Failed to close provider response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider returned status %d for %s", resp.StatusCode, endpoint)
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"bytes":    len(body),
	}).Debug("Fetched provider data")

	return body, nil
}
