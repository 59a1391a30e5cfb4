package stats

import (
	"time"
)

// StatsTicker is the part of time.Ticker the latching receiver needs.
type StatsTicker interface {
	C() <-chan time.Time
	Stop()
}

// StatsTime is the clock used for latencies and latching. Tests replace the
// package level Time with NewTestTime.
type StatsTime interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) StatsTicker
}

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

type wallTime struct{}

func (wallTime) Now() time.Time                        { return time.Now() }
func (wallTime) Since(t time.Time) time.Duration       { return time.Since(t) }
func (wallTime) NewTicker(d time.Duration) StatsTicker { return wallTicker{time.NewTicker(d)} }

func DefaultStatsTime() StatsTime { return wallTime{} }

// fixedTime always reports the same instant and elapsed duration, and ticks
// only when the test sends on its channel.
type fixedTime struct {
	now   time.Time
	since time.Duration
	ticks <-chan time.Time
}

type fixedTicker struct {
	ticks <-chan time.Time
}

func (f fixedTime) Now() time.Time                      { return f.now }
func (f fixedTime) Since(time.Time) time.Duration       { return f.since }
func (f fixedTime) NewTicker(time.Duration) StatsTicker { return fixedTicker{f.ticks} }
func (f fixedTicker) C() <-chan time.Time               { return f.ticks }
func (f fixedTicker) Stop()                             {}

func DefaultTestTime() StatsTime {
	return NewTestTime(time.Unix(0, 0), 0, make(chan time.Time))
}

func NewTestTime(now time.Time, since time.Duration, ticks <-chan time.Time) StatsTime {
	return fixedTime{now: now, since: since, ticks: ticks}
}
