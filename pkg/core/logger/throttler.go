package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LogThrottler rate-limits repeated warnings by key. Each instance keeps its
// own limiters, so components throttle independently.
type LogThrottler struct {
	log      *zap.Logger
	limiters sync.Map // map[string]*throttleState
	interval time.Duration
}

type throttleState struct {
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewLogThrottler creates a LogThrottler that allows one WARN per key per interval.
// A zero interval defaults to one minute.
func NewLogThrottler(log *zap.Logger, interval time.Duration) *LogThrottler {
	if interval == 0 {
		interval = time.Minute
	}
	return &LogThrottler{
		log:      log,
		interval: interval,
	}
}

// Warn logs as WARN once per interval per key and as DEBUG otherwise.
// The WARN entry carries the number of entries suppressed since the last one.
func (t *LogThrottler) Warn(key string, msg string, fields ...zap.Field) {
	state := t.state(key)

	if !state.limiter.Allow() {
		state.suppressed.Add(1)
		t.log.Debug(msg, fields...)
		return
	}

	if n := state.suppressed.Swap(0); n > 0 {
		fields = append(fields, zap.Int64("suppressed", n))
	}
	t.log.Warn(msg, fields...)
}

// Suppressed returns how many entries for key were demoted since the last WARN.
func (t *LogThrottler) Suppressed(key string) int64 {
	if s, ok := t.limiters.Load(key); ok {
		return s.(*throttleState).suppressed.Load()
	}
	return 0
}

func (t *LogThrottler) state(key string) *throttleState {
	if s, ok := t.limiters.Load(key); ok {
		return s.(*throttleState)
	}

	s := &throttleState{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
	actual, _ := t.limiters.LoadOrStore(key, s)
	return actual.(*throttleState)
}
