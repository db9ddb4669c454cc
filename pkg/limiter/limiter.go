package limiter

import (
	"context"
	"sync/atomic"
)

// ConcurrencyLimiter bounds how many functions run at once.
type ConcurrencyLimiter struct {
	name       string
	tickets    chan int
	inProgress atomic.Int32
}

// NewConcurrencyLimiter allocates a new ConcurrencyLimiter with limit tickets.
// It is used to cap how many inbound events are handled at the same time.
func NewConcurrencyLimiter(name string, limit int) *ConcurrencyLimiter {
	limit = max(limit, 1)

	c := &ConcurrencyLimiter{
		name:    name,
		tickets: make(chan int, limit),
	}

	for i := 0; i < limit; i++ {
		c.tickets <- i
	}

	return c
}

func (c *ConcurrencyLimiter) Name() string {
	return c.name
}

// Wait waits for a free ticket. Callers must FreeTicket the ticket they get.
func (c *ConcurrencyLimiter) Wait(ctx context.Context) (ticket int, err error) {
	select {
	case ticket = <-c.tickets:
		c.inProgress.Add(1)

		return ticket, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// FreeTicket adds the ticket back into the queue.
func (c *ConcurrencyLimiter) FreeTicket(ticket int) {
	c.inProgress.Add(-1)
	c.tickets <- ticket
}

// InProgress returns how many tickets are being used
func (c *ConcurrencyLimiter) InProgress() int32 {
	return c.inProgress.Load()
}

// Limit returns how many tickets the limiter holds
func (c *ConcurrencyLimiter) Limit() int {
	return cap(c.tickets)
}
