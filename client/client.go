package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	scorer "github.com/totegamma/passport-scorer"
	"github.com/totegamma/passport-scorer/internal/domain"
)

const (
	defaultTimeout   = 3 * time.Second
	defaultUserAgent = "passport-scorer"
)

// Client talks to the passport data service.
type Client struct {
	client    *http.Client
	userAgent string
	endpoint  string
}

func New(endpoint string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		userAgent: defaultUserAgent,
		endpoint:  strings.TrimRight(endpoint, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// GetPassport fetches the credential set of address. It returns nil without
// error when the service has no passport for the address. A client error that
// carries a detail message is returned as a *domain.ValidationError.
func (c *Client) GetPassport(ctx context.Context, address string) (*scorer.PassportData, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("passport endpoint is not configured")
	}

	target := c.endpoint + "/stamps/" + url.PathEscape(address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var body struct {
			Detail string `json:"detail"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Detail != "" {
			return nil, &domain.ValidationError{Detail: body.Detail}
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data scorer.PassportData
	err = json.NewDecoder(resp.Body).Decode(&data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode passport: %v", err)
	}

	return &data, nil
}
