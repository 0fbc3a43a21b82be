// Package citetoken wraps the external citation-tokenizer service: given
// raw text, it returns spans that look like legal citations with structured
// reporter/volume/page metadata.
package citetoken

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "http://localhost:8090"

// Span is one tokenizer-identified citation span. Type distinguishes full
// citations from short-form references ("id", "supra") that cannot stand
// alone.
type Span struct {
	Text     string `json:"text"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Type     string `json:"type"`
	Reporter string `json:"reporter,omitempty"`
	Volume   string `json:"volume,omitempty"`
	Page     string `json:"page,omitempty"`
}

// Client tokenizes text into citation spans.
type Client interface {
	Tokenize(ctx context.Context, text string) ([]Span, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default service URL.
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

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a tokenizer client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type tokenizeRequest struct {
	Text string `json:"text"`
}

type tokenizeResponse struct {
	Spans []Span `json:"spans"`
}

func (c *httpClient) Tokenize(ctx context.Context, text string) ([]Span, error) {
	body, err := json.Marshal(tokenizeRequest{Text: text})
	if err != nil {
		return nil, eris.Wrap(err, "citetoken: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tokenize", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "citetoken: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "citetoken: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "citetoken: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.New(fmt.Sprintf("citetoken: status %d", resp.StatusCode))
	}

	var out tokenizeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "citetoken: decode response")
	}

	return out.Spans, nil
}
