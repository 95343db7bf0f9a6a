package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb := New()
	assert.Equal(t, Closed, cb.GetState())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewWithSettings(3, time.Minute, 1)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, Closed, cb.GetState(), "below threshold stays closed")

	cb.RecordFailure()
	assert.Equal(t, Open, cb.GetState())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_SuccessResetsFailureStreak(t *testing.T) {
	cb := NewWithSettings(3, time.Minute, 1)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, Closed, cb.GetState(), "streak was broken by a success")
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewWithSettings(1, 10*time.Millisecond, 1)

	cb.RecordFailure()
	assert.Equal(t, Open, cb.GetState())
	assert.False(t, cb.Allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow(), "expired open timeout should allow a probe")
	assert.Equal(t, HalfOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewWithSettings(1, 10*time.Millisecond, 1)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow())

	cb.RecordFailure()
	assert.Equal(t, Open, cb.GetState())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenSuccessesClose(t *testing.T) {
	cb := NewWithSettings(1, 10*time.Millisecond, 2)

	cb.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.Allow())

	cb.RecordSuccess()
	assert.Equal(t, HalfOpen, cb.GetState(), "one probe success is not enough")
	cb.RecordSuccess()
	assert.Equal(t, Closed, cb.GetState())
}
