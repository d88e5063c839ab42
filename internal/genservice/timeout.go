package genservice

import (
	"context"
	"time"
)

// WithTimeout caps every call on the wrapped client. A non-positive
// duration returns the client unchanged.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		return c
	}
	return &timeoutClient{inner: c, d: d}
}

type timeoutClient struct {
	inner Client
	d     time.Duration
}

func (t *timeoutClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Complete(ctx, prompt)
}

func (t *timeoutClient) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.CompleteWithSystem(ctx, system, prompt)
}
