package space

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ConnectFunc establishes a new client handle.
type ConnectFunc func(ctx context.Context) (*Client, error)

// ClientCache memoizes one connected Client. Concurrent callers that find
// the cache empty share a single connection attempt. Callers that see a
// failure through a handle must Invalidate it so the next Get reconnects.
type ClientCache struct {
	connect ConnectFunc
	timeout time.Duration

	mu     sync.RWMutex
	client *Client

	group    singleflight.Group
	connects atomic.Int64
}

// NewClientCache wraps connect. Each connection attempt is bounded by
// timeout when it is positive.
func NewClientCache(connect ConnectFunc, timeout time.Duration) *ClientCache {
	return &ClientCache{connect: connect, timeout: timeout}
}

// Get returns the cached handle, connecting first if needed. The shared
// connection attempt runs detached from any one caller's cancellation;
// a caller whose ctx ends stops waiting without failing the others.
func (c *ClientCache) Get(ctx context.Context) (*Client, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	ch := c.group.DoChan("connect", func() (any, error) {
		c.mu.RLock()
		existing := c.client
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		connectCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			connectCtx, cancel = context.WithTimeout(connectCtx, c.timeout)
			defer cancel()
		}
		c.connects.Add(1)
		fresh, err := c.connect(connectCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.client = fresh
		c.mu.Unlock()
		return fresh, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("space: connect: %w", res.Err)
		}
		return res.Val.(*Client), nil
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
}

// Invalidate drops handle if it is still the cached one. A nil handle clears
// the cache unconditionally.
func (c *ClientCache) Invalidate(handle *Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if handle == nil || c.client == handle {
		c.client = nil
	}
}

// Connects reports how many connection attempts were made.
func (c *ClientCache) Connects() int64 {
	return c.connects.Load()
}
