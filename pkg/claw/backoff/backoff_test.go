package backoff

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(v float64) func() float64 { return func() float64 { return v } }

func TestDefaults(t *testing.T) {
	b := New()
	assert.Equal(t, 0, b.Attempt())
	d := b.NextDelayMs()
	assert.GreaterOrEqual(t, d, int64(DefaultBaseMs))
	assert.LessOrEqual(t, d, int64(DefaultBaseMs*(1+DefaultJitter)))
	assert.Equal(t, 1, b.Attempt())
}

func TestClampsInvalidBaseAndMax(t *testing.T) {
	b := New(WithBase(math.NaN()), WithMax(math.Inf(1)), WithFactor(2), WithJitter(0))

	assert.Equal(t, int64(50), b.NextDelayMs())
	assert.Equal(t, 1, b.Attempt())
	// max clamps to base, so the schedule is flat
	assert.Equal(t, int64(50), b.NextDelayMs())
	assert.Equal(t, 2, b.Attempt())

	b.Reset()
	assert.Equal(t, 0, b.Attempt())
}

func TestPositiveJitterOnly(t *testing.T) {
	b := New(WithBase(1000), WithFactor(2), WithMax(2000), WithJitter(0.2), WithRandom(fixed(0.5)))

	assert.Equal(t, int64(1100), b.NextDelayMs())
	assert.Equal(t, int64(2000), b.NextDelayMs())
}

func TestNegativeJitterIsZero(t *testing.T) {
	b := New(WithBase(100), WithFactor(2), WithMax(1000), WithJitter(-1), WithRandom(fixed(0.999)))
	assert.Equal(t, int64(100), b.NextDelayMs())
}

func TestExponentialGrowthCapped(t *testing.T) {
	b := New(WithBase(100), WithFactor(3), WithMax(1000), WithJitter(0))

	var got []int64
	for range 5 {
		got = append(got, b.NextDelayMs())
	}
	assert.Equal(t, []int64{100, 300, 900, 1000, 1000}, got)
}

func TestInvalidFactorAndSmallMax(t *testing.T) {
	b := New(WithBase(200), WithFactor(0.5), WithMax(10), WithJitter(0))
	assert.Equal(t, int64(200), b.NextDelayMs())
	assert.Equal(t, int64(200), b.NextDelayMs())

	b = New(WithBase(100), WithFactor(math.NaN()), WithMax(10000), WithJitter(0))
	b.NextDelayMs()
	assert.Equal(t, 200*time.Millisecond, b.Next())
}

var errTransient = errors.New("transient")

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), New(WithBase(50), WithMax(50), WithJitter(0)), 3,
		func(error) bool { return true },
		func(context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")
	err := Retry(context.Background(), New(), 5,
		func(err error) bool { return !errors.Is(err, permanent) },
		func(context.Context) error {
			calls++
			return permanent
		})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), New(WithBase(50), WithMax(50), WithJitter(0)), 2, nil,
		func(context.Context) error {
			calls++
			return errTransient
		})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	err := Retry(ctx, New(WithBase(10000), WithJitter(0)), 5, nil,
		func(context.Context) error {
			calls++
			cancel()
			return errTransient
		})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 5*time.Second)
}
