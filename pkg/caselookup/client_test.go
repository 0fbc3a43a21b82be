package caselookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	var gotAuth string
	var gotReq LookupRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/citations/lookup", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := LookupResponse{Results: []Result{
			{Verified: true, CanonicalName: "State v. Smith", CanonicalDate: "2002-11-21", Source: "courtlistener"},
			{Verified: false, Error: "not found"},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000, 1000))

	resp, err := c.Lookup(context.Background(), LookupRequest{
		Citations: []string{"148 Wn.2d 224", "1 Fake 1"},
		HintNames: []string{"State v. Smith", "N/A"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, []string{"148 Wn.2d 224", "1 Fake 1"}, gotReq.Citations)

	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Verified)
	assert.Equal(t, "State v. Smith", resp.Results[0].CanonicalName)
	assert.False(t, resp.Results[1].Verified)
}

func TestLookupEmptyRequest(t *testing.T) {
	c := NewClient("k", WithBaseURL("http://invalid.test"))

	resp, err := c.Lookup(context.Background(), LookupRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestLookupRejectsOversizedBatch(t *testing.T) {
	c := NewClient("k")

	req := LookupRequest{Citations: make([]string, MaxBatchSize+1)}
	_, err := c.Lookup(context.Background(), req)
	assert.Error(t, err)
}

func TestLookupErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(1000, 1000))

	_, err := c.Lookup(context.Background(), LookupRequest{Citations: []string{"148 Wn.2d 224"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestLookupRejectsCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(LookupResponse{Results: []Result{{Verified: true}}})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(1000, 1000))

	_, err := c.Lookup(context.Background(), LookupRequest{Citations: []string{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 results for 2 citations")
}
