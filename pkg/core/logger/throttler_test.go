package logger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogThrottler_DefaultInterval(t *testing.T) {
	// When: creating throttler with zero interval
	throttler := NewLogThrottler(zap.NewNop(), 0)

	// Then: interval defaults to one minute
	require.NotNil(t, throttler)
	assert.Equal(t, time.Minute, throttler.interval)
}

func TestLogThrottler_Warn_SubsequentCallsLogDebug(t *testing.T) {
	// Given: a throttler with a long interval
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: multiple calls with the same key
	throttler.Warn("k", "first", zap.String("field", "value"))
	throttler.Warn("k", "second")
	throttler.Warn("k", "third")

	// Then: first is WARN, rest are DEBUG and counted
	require.Equal(t, 3, logs.Len())
	assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	assert.Equal(t, "value", logs.All()[0].ContextMap()["field"])
	assert.Equal(t, zapcore.DebugLevel, logs.All()[1].Level)
	assert.Equal(t, zapcore.DebugLevel, logs.All()[2].Level)
	assert.Equal(t, int64(2), throttler.Suppressed("k"))
}

func TestLogThrottler_Warn_ReportsSuppressedCount(t *testing.T) {
	// Given: a throttler with a short interval
	core, logs := observer.New(zapcore.WarnLevel)
	throttler := NewLogThrottler(zap.New(core), 20*time.Millisecond)

	// When: entries are demoted, then the interval elapses
	throttler.Warn("k", "msg")
	throttler.Warn("k", "msg")
	throttler.Warn("k", "msg")
	time.Sleep(40 * time.Millisecond)
	throttler.Warn("k", "msg")

	// Then: the second WARN carries the suppressed count and resets it
	require.Equal(t, 2, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "suppressed")
	assert.Equal(t, int64(2), logs.All()[1].ContextMap()["suppressed"])
	assert.Zero(t, throttler.Suppressed("k"))
}

func TestLogThrottler_Warn_MixedKeys(t *testing.T) {
	// Given: a throttler
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: interleaved calls with different keys
	throttler.Warn("key-a", "first A")
	throttler.Warn("key-b", "first B")
	throttler.Warn("key-a", "second A")
	throttler.Warn("key-c", "first C")

	// Then: each key has its own limiter
	expected := []struct {
		level   zapcore.Level
		message string
	}{
		{zapcore.WarnLevel, "first A"},
		{zapcore.WarnLevel, "first B"},
		{zapcore.DebugLevel, "second A"},
		{zapcore.WarnLevel, "first C"},
	}
	require.Equal(t, len(expected), logs.Len())
	for i, exp := range expected {
		assert.Equal(t, exp.level, logs.All()[i].Level, "Entry %d level mismatch", i)
		assert.Equal(t, exp.message, logs.All()[i].Message, "Entry %d message mismatch", i)
	}
	assert.Zero(t, throttler.Suppressed("unknown"))
}

func TestLogThrottler_ConcurrentAccess(t *testing.T) {
	// Given: a throttler
	core, logs := observer.New(zapcore.DebugLevel)
	throttler := NewLogThrottler(zap.New(core), time.Hour)

	// When: concurrent access from multiple goroutines
	var wg sync.WaitGroup
	numGoroutines := 50
	numCalls := 10
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numCalls; j++ {
				throttler.Warn("shared-key", "concurrent message", zap.Int("goroutine", id))
			}
		}(i)
	}
	wg.Wait()

	// Then: exactly one WARN
	total := numGoroutines * numCalls
	assert.Equal(t, total, logs.Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, int64(total-1), throttler.Suppressed("shared-key"))
}

func TestLogThrottler_StateIsShared(t *testing.T) {
	throttler := NewLogThrottler(zap.NewNop(), time.Minute)

	assert.Same(t, throttler.state("k"), throttler.state("k"))
	assert.NotSame(t, throttler.state("k"), throttler.state("other"))
}
