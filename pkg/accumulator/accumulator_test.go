package accumulator_test

import (
	"testing"
	"time"

	"github.com/WelcomerTeam/Raid-Daemon/pkg/accumulator"
	"github.com/stretchr/testify/assert"
)

func TestAccumulator(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	acc := accumulator.New("reactions", 3, time.Minute)

	for minute := 0; minute < 5; minute++ {
		for i := 0; i <= minute; i++ {
			acc.Increment()
		}

		acc.Sample(start.Add(time.Duration(minute) * time.Minute))
	}

	samples := acc.Samples()
	assert.Len(t, samples, 3, "oldest samples are dropped")
	assert.Equal(t, int64(3), samples[0].Value)
	assert.Equal(t, int64(5), samples[2].Value)
	assert.Equal(t, int64(12), accumulator.Sum(samples))

	since := acc.Since(start.Add(3 * time.Minute))
	assert.Len(t, since, 1)
	assert.Equal(t, int64(5), since[0].Value)

	assert.Len(t, acc.Since(start), 3)
	assert.Empty(t, acc.Since(start.Add(time.Hour)))
	assert.Equal(t, "reactions", acc.Label())
}

func TestAccumulatorAdd(t *testing.T) {
	t.Parallel()

	acc := accumulator.New("events", 0, time.Second)

	acc.Add(4)
	acc.Sample(time.Unix(0, 0))
	acc.Sample(time.Unix(1, 0))

	samples := acc.Samples()
	assert.Len(t, samples, 1)
	assert.Equal(t, int64(0), samples[0].Value)
}
