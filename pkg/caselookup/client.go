// Package caselookup talks to the external case-law verification service:
// given citation strings (plus locally extracted name/date hints), it
// returns canonical case data for the citations the service recognizes.
package caselookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.caselookup.dev"

	// MaxBatchSize is the service's per-call citation limit.
	MaxBatchSize = 50
)

// Client performs batched citation lookups.
type Client interface {
	// Lookup resolves up to MaxBatchSize citations. The response is
	// order-preserving: result i corresponds to request citation i.
	Lookup(ctx context.Context, req LookupRequest) (*LookupResponse, error)
}

// LookupRequest is the request body for POST /v1/citations/lookup.
// HintNames and HintDates are the locally extracted values, submitted to
// help the service disambiguate; both run parallel to Citations.
type LookupRequest struct {
	Citations []string `json:"citations"`
	HintNames []string `json:"hint_names,omitempty"`
	HintDates []string `json:"hint_dates,omitempty"`
}

// Result is the lookup outcome for one citation.
type Result struct {
	Verified      bool   `json:"verified"`
	CanonicalName string `json:"canonical_name,omitempty"`
	CanonicalDate string `json:"canonical_date,omitempty"`
	CanonicalURL  string `json:"canonical_url,omitempty"`
	Source        string `json:"source,omitempty"`
	Error         string `json:"error,omitempty"`
}

// LookupResponse carries one Result per requested citation, in order.
type LookupResponse struct {
	Results []Result `json:"results"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing lookup calls per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a verification client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Lookup(ctx context.Context, req LookupRequest) (*LookupResponse, error) {
	if len(req.Citations) == 0 {
		return &LookupResponse{}, nil
	}
	if len(req.Citations) > MaxBatchSize {
		return nil, eris.Errorf("caselookup: batch of %d exceeds limit %d", len(req.Citations), MaxBatchSize)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "caselookup: rate limiter wait")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "caselookup: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/citations/lookup", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "caselookup: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "caselookup: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "caselookup: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("caselookup: status %d: %s", resp.StatusCode, truncate(respBody, 200)))
	}

	var out LookupResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "caselookup: decode response")
	}

	if len(out.Results) != len(req.Citations) {
		return nil, eris.Errorf("caselookup: got %d results for %d citations", len(out.Results), len(req.Citations))
	}

	return &out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
