package batch

import (
	"context"
	"sync"
)

// ResultDelivery is a one-shot handoff of the batch result to a
// presentation surface. Publish never blocks; Await succeeds even when
// the subscriber arrives after the result was published.
type ResultDelivery struct {
	mu     sync.Mutex
	result *BatchExecutionResult
	ready  chan struct{}
}

// NewResultDelivery creates an empty delivery channel.
func NewResultDelivery() *ResultDelivery {
	return &ResultDelivery{
		ready: make(chan struct{}),
	}
}

// Publish stores the result and releases any waiting subscriber. Only
// the first publish takes effect.
func (d *ResultDelivery) Publish(result *BatchExecutionResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.result != nil {
		return
	}
	d.result = result
	close(d.ready)
}

// Await blocks until a result is published or the context ends.
func (d *ResultDelivery) Await(ctx context.Context) (*BatchExecutionResult, error) {
	d.mu.Lock()
	if d.result != nil {
		result := d.result
		d.mu.Unlock()
		return result, nil
	}
	d.mu.Unlock()

	select {
	case <-d.ready:
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
