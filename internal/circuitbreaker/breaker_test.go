package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail() error    { return errBoom }
func succeed() error { return nil }

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New(3, 1, time.Minute)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(fail), errBoom)
	}
	assert.Equal(t, StateOpen, b.State())

	// Calls are rejected without running fn.
	ran := false
	err := b.Do(func() error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, ran)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := New(3, 1, time.Minute)

	require.Error(t, b.Do(fail))
	require.Error(t, b.Do(fail))
	require.NoError(t, b.Do(succeed))
	require.Error(t, b.Do(fail))
	require.Error(t, b.Do(fail))

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenProbeRecovery(t *testing.T) {
	b := New(1, 2, 30*time.Second)
	now := time.Now()
	b.SetNowFunc(func() time.Time { return now })

	require.Error(t, b.Do(fail))
	assert.Equal(t, StateOpen, b.State())

	now = now.Add(31 * time.Second)
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(succeed))
	assert.Equal(t, StateHalfOpen, b.State(), "one probe is not enough")
	require.NoError(t, b.Do(succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := New(1, 2, 30*time.Second)
	now := time.Now()
	b.SetNowFunc(func() time.Time { return now })

	require.Error(t, b.Do(fail))
	now = now.Add(31 * time.Second)
	require.Error(t, b.Do(fail)) // probe fails

	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Do(succeed), ErrOpen)
}
