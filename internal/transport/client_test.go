package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antipasta/dispatch/internal/transport"
	"github.com/antipasta/dispatch/pkg/dispatch"
)

func TestClient_Send_GET(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/statuses/home_timeline.json", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("count"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 1}]`))
	}))
	defer server.Close()

	client := transport.New()

	headers := make(http.Header)
	headers.Set("User-Agent", "test-agent")

	resp, err := client.Send(context.Background(), &dispatch.Request{
		Method:  http.MethodGet,
		BaseURL: server.URL,
		Path:    "/statuses/home_timeline.json",
		Query:   url.Values{"count": []string{"10"}},
		Headers: headers,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id": 1}]`, string(resp.Body))
	assert.Equal(t, "application/json", resp.Headers.Get("Content-Type"))
}

func TestClient_Send_POSTForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "hello world", r.PostForm.Get("status"))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer server.Close()

	client := transport.New()

	resp, err := client.Send(context.Background(), &dispatch.Request{
		Method:  http.MethodPost,
		BaseURL: server.URL,
		Path:    "/statuses/update.json",
		Form:    url.Values{"status": []string{"hello world"}},
		Headers: make(http.Header),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestClient_Send_ErrorStatusIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"code":34,"message":"not here"}]}`))
	}))
	defer server.Close()

	client := transport.New()

	resp, err := client.Send(context.Background(), &dispatch.Request{
		Method:  http.MethodGet,
		BaseURL: server.URL,
		Path:    "/statuses/show/1.json",
		Headers: make(http.Header),
	})

	// Non-2xx exchanges still complete; classification is the engine's job.
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "not here")
}

func TestClient_Send_ConnectionError(t *testing.T) {
	client := transport.New(transport.WithHTTPTimeout(500 * time.Millisecond))

	_, err := client.Send(context.Background(), &dispatch.Request{
		Method:  http.MethodGet,
		BaseURL: "http://127.0.0.1:1",
		Path:    "/anything",
		Headers: make(http.Header),
	})
	require.Error(t, err)
}

func TestClient_Send_ContextCanceled(t *testing.T) {
	started := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := transport.New()

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-started
		cancel()
	}()

	_, err := client.Send(ctx, &dispatch.Request{
		Method:  http.MethodGet,
		BaseURL: server.URL,
		Path:    "/slow",
		Headers: make(http.Header),
	})
	require.Error(t, err)
}

func TestClient_Send_UserAgentFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fallback-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := transport.New(transport.WithUserAgent("fallback-agent"))

	_, err := client.Send(context.Background(), &dispatch.Request{
		Method:  http.MethodGet,
		BaseURL: server.URL,
		Path:    "/x",
		Headers: make(http.Header),
	})
	require.NoError(t, err)
}
