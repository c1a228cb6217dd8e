package dispatch_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antipasta/dispatch/pkg/dispatch"
)

var errInterceptorBoom = errors.New("boom")

func TestInterceptorChain_Request(t *testing.T) {
	t.Parallel()

	t.Run("runs in order", func(t *testing.T) {
		t.Parallel()

		chain := dispatch.NewInterceptorChain()

		var order []string

		chain.AddRequestInterceptor(func(ctx context.Context, req *dispatch.Request) error {
			order = append(order, "first")

			return nil
		})
		chain.AddRequestInterceptor(func(ctx context.Context, req *dispatch.Request) error {
			order = append(order, "second")

			return nil
		})

		err := chain.ExecuteRequestInterceptors(context.Background(), &dispatch.Request{})
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("failure stops the chain", func(t *testing.T) {
		t.Parallel()

		chain := dispatch.NewInterceptorChain()

		chain.AddRequestInterceptor(func(ctx context.Context, req *dispatch.Request) error {
			return errInterceptorBoom
		})

		called := false
		chain.AddRequestInterceptor(func(ctx context.Context, req *dispatch.Request) error {
			called = true

			return nil
		})

		err := chain.ExecuteRequestInterceptors(context.Background(), &dispatch.Request{})
		require.ErrorIs(t, err, errInterceptorBoom)
		assert.False(t, called)
	})
}

func TestInterceptorChain_Response(t *testing.T) {
	t.Parallel()

	chain := dispatch.NewInterceptorChain()

	var observed int

	chain.AddResponseInterceptor(func(ctx context.Context, req *dispatch.Request, resp *dispatch.Response) error {
		observed = resp.StatusCode

		return nil
	})

	err := chain.ExecuteResponseInterceptors(context.Background(), &dispatch.Request{}, &dispatch.Response{StatusCode: 200})
	require.NoError(t, err)
	assert.Equal(t, 200, observed)
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := dispatch.HeaderInterceptor(map[string]string{
		"X-Client":  "test",
		"X-Version": "1",
	})

	req := &dispatch.Request{Headers: make(http.Header)}
	require.NoError(t, interceptor(context.Background(), req))

	assert.Equal(t, "test", req.Headers.Get("X-Client"))
	assert.Equal(t, "1", req.Headers.Get("X-Version"))
}

func TestHeaderInterceptor_NilHeaders(t *testing.T) {
	t.Parallel()

	interceptor := dispatch.HeaderInterceptor(map[string]string{"X-Client": "test"})

	req := &dispatch.Request{}
	require.NoError(t, interceptor(context.Background(), req))
	assert.Equal(t, "test", req.Headers.Get("X-Client"))
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := dispatch.RateLimitInterceptor(100)

	// The bucket starts full, so the first requests pass immediately.
	for i := 0; i < 3; i++ {
		require.NoError(t, interceptor(context.Background(), &dispatch.Request{}))
	}
}

func TestRateLimitInterceptor_CanceledContext(t *testing.T) {
	t.Parallel()

	interceptor := dispatch.RateLimitInterceptor(1)

	// Drain the single token.
	require.NoError(t, interceptor(context.Background(), &dispatch.Request{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := interceptor(ctx, &dispatch.Request{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := dispatch.NewMetricsCollector()
	reqInterceptor := dispatch.MetricsRequestInterceptor(collector)
	respInterceptor := dispatch.MetricsResponseInterceptor(collector)

	ctx := context.Background()

	req := &dispatch.Request{Method: "GET", Path: "/statuses/home_timeline.json"}
	require.NoError(t, reqInterceptor(ctx, req))
	require.NoError(t, respInterceptor(ctx, req, &dispatch.Response{StatusCode: 200}))

	failedReq := &dispatch.Request{Method: "GET", Path: "/statuses/home_timeline.json"}
	require.NoError(t, reqInterceptor(ctx, failedReq))
	require.NoError(t, respInterceptor(ctx, failedReq, &dispatch.Response{StatusCode: 500}))

	metrics := collector.GetMetrics("GET /statuses/home_timeline.json")
	require.NotNil(t, metrics)
	assert.Equal(t, int64(2), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.False(t, metrics.LastRequestTime.IsZero())
}

func TestMetricsCollector_OnChange(t *testing.T) {
	t.Parallel()

	collector := dispatch.NewMetricsCollector()

	var notified string

	collector.SetOnChange(func(endpoint string, metrics *dispatch.Metrics) {
		notified = endpoint
	})

	respInterceptor := dispatch.MetricsResponseInterceptor(collector)
	req := &dispatch.Request{Method: "POST", Path: "/statuses/update.json"}
	require.NoError(t, respInterceptor(context.Background(), req, &dispatch.Response{StatusCode: 200}))

	assert.Equal(t, "POST /statuses/update.json", notified)
}

func TestMetricsCollector_UnknownEndpoint(t *testing.T) {
	t.Parallel()

	collector := dispatch.NewMetricsCollector()
	assert.Nil(t, collector.GetMetrics("GET /nowhere"))
}
