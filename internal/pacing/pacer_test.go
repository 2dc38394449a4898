package pacing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_DelayGrowsWithFailures(t *testing.T) {
	p := NewPacer(Config{})

	assert.Equal(t, 500*time.Millisecond, p.Delay())

	p.RecordFailure()
	assert.Equal(t, 750*time.Millisecond, p.Delay())

	p.RecordFailure()
	assert.Equal(t, 1125*time.Millisecond, p.Delay())
}

func TestPacer_DelayCappedAtMax(t *testing.T) {
	p := NewPacer(Config{})

	for i := 0; i < 20; i++ {
		p.RecordFailure()
	}

	assert.Equal(t, 5*time.Second, p.Delay())
}

func TestPacer_SuccessDecaysTowardBase(t *testing.T) {
	p := NewPacer(Config{})

	p.RecordFailure()
	p.RecordFailure()
	p.RecordSuccess()
	assert.Equal(t, 1, p.Failures())
	assert.Equal(t, 750*time.Millisecond, p.Delay())

	p.RecordSuccess()
	assert.Equal(t, 500*time.Millisecond, p.Delay())
}

func TestPacer_SuccessFloorsAtZero(t *testing.T) {
	p := NewPacer(Config{})

	for i := 0; i < 5; i++ {
		p.RecordSuccess()
	}

	assert.Equal(t, 0, p.Failures())
	assert.Equal(t, 500*time.Millisecond, p.Delay())
}

func TestPacer_FirstWaitDoesNotBlock(t *testing.T) {
	p := NewPacer(Config{BaseDelay: time.Second})

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_SecondWaitEnforcesGap(t *testing.T) {
	p := NewPacer(Config{BaseDelay: 50 * time.Millisecond})

	require.NoError(t, p.Wait(context.Background()))

	start := time.Now()
	require.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPacer_WaitRespectsContext(t *testing.T) {
	p := NewPacer(Config{BaseDelay: 5 * time.Second})

	require.NoError(t, p.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
