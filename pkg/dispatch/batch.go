package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/antipasta/dispatch/internal/constants"
)

// BatchCall is one logical call within a batch.
type BatchCall struct {
	// ID correlates the call with its result.
	ID string

	Method     string
	Positional []interface{}
	Named      Args

	// Callback, when set, is invoked with the result as soon as the call
	// completes.
	Callback func(result *BatchResult)
}

// BatchResult is the outcome of one batched call.
type BatchResult struct {
	ID       string
	Payload  interface{}
	Err      error
	Duration time.Duration
}

// BatchInvoker executes many logical calls concurrently against one client.
//
// Batching requires the throwing error policy: the wrapping policy's
// last-error record is a single unsynchronized slot and concurrent calls
// would overwrite each other's failures.
type BatchInvoker struct {
	client      *Client
	concurrency int
	timeout     time.Duration
}

// NewBatchInvoker creates a batch invoker with the given concurrency cap.
func NewBatchInvoker(client *Client, concurrency int) (*BatchInvoker, error) {
	if _, wrapping := client.policy.(*WrappingPolicy); wrapping {
		return nil, ErrWrapPolicyBatch
	}

	if concurrency <= 0 {
		concurrency = constants.DefaultConcurrencyLimit
	}

	return &BatchInvoker{
		client:      client,
		concurrency: concurrency,
		timeout:     constants.DefaultHTTPTimeout,
	}, nil
}

// SetTimeout sets the per-call timeout.
func (b *BatchInvoker) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs a batch of calls, at most the configured number in flight at
// once. Results are returned in call order regardless of completion order.
func (b *BatchInvoker) Execute(ctx context.Context, calls []BatchCall) []BatchResult {
	results := make([]BatchResult, len(calls))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, call := range calls {
		waitGroup.Add(1)

		go func(index int, call BatchCall) {
			defer waitGroup.Done()

			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			callCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			start := time.Now()
			result := b.executeCall(callCtx, call)
			result.Duration = time.Since(start)
			results[index] = *result

			if call.Callback != nil {
				call.Callback(result)
			}
		}(index, call)
	}

	waitGroup.Wait()

	return results
}

// executeCall runs a single batched call.
func (b *BatchInvoker) executeCall(ctx context.Context, call BatchCall) *BatchResult {
	args := make([]interface{}, 0, len(call.Positional)+1)
	args = append(args, call.Positional...)

	if call.Named != nil {
		args = append(args, call.Named)
	}

	payload, err := b.client.Invoke(ctx, call.Method, args...)

	return &BatchResult{
		ID:      call.ID,
		Payload: payload,
		Err:     err,
	}
}
