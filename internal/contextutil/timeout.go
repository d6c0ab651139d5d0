package contextutil

import (
	"context"
	"time"
)

// WithTimeout bounds parent by d. A non-positive d leaves parent unbounded, and a nil
// parent is treated as context.Background().
func WithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if d <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, d)
}
