package accumulator

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Accumulator counts events and stores the running total as a sample once
// every interval, keeping at most limit samples.
type Accumulator struct {
	mu sync.RWMutex

	label   string
	samples []Sample
	acc     int64

	limit    int
	interval time.Duration
}

// Sample is the count collected during one interval, stored at StoredAt.
type Sample struct {
	Value    int64     `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// New creates an accumulator. Call Run, or Sample on your own schedule.
func New(label string, limit int, interval time.Duration) *Accumulator {
	limit = max(limit, 1)

	return &Accumulator{
		label:    label,
		samples:  make([]Sample, 0, limit),
		limit:    limit,
		interval: interval,
	}
}

func (a *Accumulator) Label() string {
	return a.label
}

func (a *Accumulator) Increment() {
	a.Add(1)
}

func (a *Accumulator) Add(n int64) {
	a.mu.Lock()
	a.acc += n
	a.mu.Unlock()
}

// Sample stores the current count and resets it.
func (a *Accumulator) Sample(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.samples = append(a.samples, Sample{Value: a.acc, StoredAt: at})
	a.acc = 0

	if len(a.samples) > a.limit {
		a.samples = slices.Delete(a.samples, 0, len(a.samples)-a.limit)
	}
}

// Samples returns every stored sample, oldest first.
func (a *Accumulator) Samples() []Sample {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return slices.Clone(a.samples)
}

// Since returns the samples stored after t.
func (a *Accumulator) Since(t time.Time) []Sample {
	a.mu.RLock()
	defer a.mu.RUnlock()

	index, _ := slices.BinarySearchFunc(a.samples, t, func(sample Sample, t time.Time) int {
		if sample.StoredAt.After(t) {
			return 1
		}

		return -1
	})

	return slices.Clone(a.samples[index:])
}

// Sum adds up samples.
func Sum(samples []Sample) int64 {
	var sum int64

	for _, sample := range samples {
		sum += sample.Value
	}

	return sum
}

// Run samples every interval until ctx is done.
func (a *Accumulator) Run(ctx context.Context, now func() time.Time) {
	t := time.NewTicker(a.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}

		a.Sample(now())
	}
}
