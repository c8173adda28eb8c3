// ABOUTME: Rate limited sender wrapper
// ABOUTME: Spaces out sends to stay under provider quotas
package delivery

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled waits on a token bucket before each send.
type Throttled struct {
	next    Sender
	limiter *rate.Limiter
}

// Throttle limits next to perSecond sends with the given burst. A
// non-positive rate returns an unlimited wrapper.
func Throttle(next Sender, perSecond float64, burst int) *Throttled {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) Send(ctx context.Context, msg Message) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limit wait: %w", ErrDelivery, err)
	}
	return t.next.Send(ctx, msg)
}
