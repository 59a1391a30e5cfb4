// Package stats is a scoped layer over go-metrics. Components take a
// StatsReceiver, scope it to their own name and record counters, gauges and
// latencies. Binaries render the whole registry as flat, finagle style JSON
// where latencies expand into avg, count, min, max, sum and percentiles.
package stats

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"
)

// Time is the clock behind every Latency. Tests swap it.
var Time StatsTime = DefaultStatsTime()

// StatsRegistry is the subset of metrics.Registry the receivers use.
type StatsRegistry interface {
	// GetOrRegister returns the metric registered under name, registering
	// metric first if there is none. metric may be a constructor func.
	GetOrRegister(name string, metric interface{}) interface{}
	Unregister(name string)
	Each(func(name string, metric interface{}))
}

// StatsReceiver hands out named instruments. Names are joined with '/'
// under the receiver's scope; a '/' inside a name element is replaced by
// "_SLASH_".
type StatsReceiver interface {
	Scope(scope ...string) StatsReceiver
	// Precision sets the unit latencies render in. Below 1ns means 1ns.
	Precision(time.Duration) StatsReceiver
	Counter(name ...string) Counter
	Gauge(name ...string) Gauge
	Latency(name ...string) Latency
	// Render marshals the registry to JSON. Without latching, rendering also
	// resets counters and latencies.
	Render(pretty bool) []byte
}

// DefaultStatsReceiver renders through plain go-metrics JSON.
func DefaultStatsReceiver() StatsReceiver {
	stat, _ := NewCustomStatsReceiver(nil, 0)
	return stat
}

func NewFinagleStatsReceiver() StatsReceiver {
	stat, _ := NewCustomStatsReceiver(NewFinagleStatsRegistry, 0)
	return stat
}

// NewCustomStatsReceiver records into makeRegistry(). With latched > 0 a
// copy of the registry is taken and the live one reset every latched
// interval, and Render shows the last copy until cancelFn is called.
func NewCustomStatsReceiver(makeRegistry func() StatsRegistry, latched time.Duration) (stat StatsReceiver, cancelFn func()) {
	if makeRegistry == nil {
		makeRegistry = func() StatsRegistry { return metrics.NewRegistry() }
	}
	shared := &registryState{makeRegistry: makeRegistry, live: makeRegistry()}
	cancelFn = func() {}
	if latched > 0 {
		shared.latched = copyRegistry(shared.live, makeRegistry())
		var ctx context.Context
		ctx, cancelFn = context.WithCancel(context.Background())
		go shared.latchEvery(ctx, Time.NewTicker(latched))
	}
	return &defaultStatsReceiver{state: shared, precision: time.Millisecond}, cancelFn
}

type registryState struct {
	makeRegistry func() StatsRegistry
	live         StatsRegistry

	mu sync.Mutex
	// Nil unless latching.
	latched StatsRegistry
}

func (r *registryState) latchEvery(ctx context.Context, ticker StatsTicker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			captured := copyRegistry(r.live, r.makeRegistry())
			reset(r.live)
			r.mu.Lock()
			r.latched = captured
			r.mu.Unlock()
		}
	}
}

func (r *registryState) renderable() (reg StatsRegistry, latching bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latched != nil {
		return r.latched, true
	}
	return r.live, false
}

func copyRegistry(src, dst StatsRegistry) StatsRegistry {
	src.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case Counter:
			dst.GetOrRegister(name, m.Capture())
		case Gauge:
			dst.GetOrRegister(name, m.Capture())
		case Latency:
			dst.GetOrRegister(name, m.Capture())
		default:
			log.Infof("Not copying unknown instrument %s: %T", name, i)
		}
	})
	return dst
}

// reset zeroes counters and latencies. Gauges keep their value.
func reset(reg StatsRegistry) {
	reg.Each(func(_ string, i interface{}) {
		switch m := i.(type) {
		case metrics.Counter:
			m.Clear()
		case metrics.Histogram:
			m.Clear()
		}
	})
}

type defaultStatsReceiver struct {
	state     *registryState
	precision time.Duration
	scope     []string
}

func (s *defaultStatsReceiver) Scope(scope ...string) StatsReceiver {
	return &defaultStatsReceiver{state: s.state, precision: s.precision, scope: s.scoped(scope...)}
}

func (s *defaultStatsReceiver) Precision(precision time.Duration) StatsReceiver {
	if precision < time.Nanosecond {
		precision = time.Nanosecond
	}
	return &defaultStatsReceiver{state: s.state, precision: precision, scope: s.scope}
}

func (s *defaultStatsReceiver) Counter(name ...string) Counter {
	return s.state.live.GetOrRegister(s.scopedName(name...), newCounter).(Counter)
}

func (s *defaultStatsReceiver) Gauge(name ...string) Gauge {
	return s.state.live.GetOrRegister(s.scopedName(name...), newGauge).(Gauge)
}

// Latency registers an instance rather than a constructor: metrics.Registry
// can't type its constructor's result as a Latency.
func (s *defaultStatsReceiver) Latency(name ...string) Latency {
	return s.state.live.GetOrRegister(s.scopedName(name...), newLatency(s.precision)).(Latency)
}

func (s *defaultStatsReceiver) Render(pretty bool) []byte {
	reg, latching := s.state.renderable()
	var data []byte
	var err error
	if mp, ok := reg.(MarshalerPretty); ok && pretty {
		data, err = mp.MarshalJSONPretty()
	} else {
		data, err = json.Marshal(reg)
	}
	if err != nil {
		log.Errorf("Couldn't render stats: %v", err)
		return []byte{}
	}
	if !latching {
		reset(s.state.live)
	}
	return data
}

func (s *defaultStatsReceiver) scoped(scope ...string) []string {
	out := make([]string, 0, len(s.scope)+len(scope))
	out = append(out, s.scope...)
	for _, sc := range scope {
		out = append(out, strings.ReplaceAll(sc, "/", "_SLASH_"))
	}
	return out
}

func (s *defaultStatsReceiver) scopedName(name ...string) string {
	return strings.Join(s.scoped(name...), "/")
}

// NilStatsReceiver drops everything.
func NilStatsReceiver() StatsReceiver {
	return nilStatsReceiver{}
}

type nilStatsReceiver struct{}

func (n nilStatsReceiver) Scope(...string) StatsReceiver         { return n }
func (n nilStatsReceiver) Precision(time.Duration) StatsReceiver { return n }
func (nilStatsReceiver) Counter(...string) Counter               { return &counter{metrics.NilCounter{}} }
func (nilStatsReceiver) Gauge(...string) Gauge                   { return &gauge{metrics.NilGauge{}} }
func (nilStatsReceiver) Latency(...string) Latency               { return nilLatency{} }
func (nilStatsReceiver) Render(bool) []byte                      { return []byte{} }

type Counter interface {
	Capture() Counter
	Clear()
	Count() int64
	Inc(int64)
}

type counter struct{ metrics.Counter }

func (c *counter) Capture() Counter { return &counter{c.Snapshot()} }
func newCounter() Counter           { return &counter{metrics.NewCounter()} }

type Gauge interface {
	Capture() Gauge
	Update(int64)
	Value() int64
}

type gauge struct{ metrics.Gauge }

func (g *gauge) Capture() Gauge { return &gauge{g.Snapshot()} }
func newGauge() Gauge           { return &gauge{metrics.NewGauge()} }

// Latency samples durations into a histogram. Typical use:
//
//	defer stat.Latency(name).Time().Stop()
type Latency interface {
	Capture() Latency
	// Time starts a measurement and returns the receiver.
	Time() Latency
	Stop()
	GetPrecision() time.Duration
}

// sampledDurations is what rendering reads from a Latency.
type sampledDurations interface {
	Mean() float64
	Count() int64
	Max() int64
	Min() int64
	Sum() int64
	Percentiles(ps []float64) []float64
}

type latency struct {
	metrics.Histogram
	start     time.Time
	precision time.Duration
}

func newLatency(precision time.Duration) Latency {
	return &latency{Histogram: metrics.NewHistogram(metrics.NewUniformSample(1000)), precision: precision}
}

func (l *latency) Time() Latency               { l.start = Time.Now(); return l }
func (l *latency) Stop()                       { l.Update(Time.Since(l.start).Nanoseconds()) }
func (l *latency) GetPrecision() time.Duration { return l.precision }
func (l *latency) Capture() Latency {
	return &latency{Histogram: l.Histogram.Snapshot(), start: l.start, precision: l.precision}
}

type nilLatency struct{}

func (n nilLatency) Time() Latency             { return n }
func (nilLatency) Stop()                       {}
func (n nilLatency) Capture() Latency          { return n }
func (nilLatency) GetPrecision() time.Duration { return 0 }

// MarshalerPretty is implemented by registries that can indent their JSON.
type MarshalerPretty interface {
	MarshalJSONPretty() ([]byte, error)
}

type finagleStatsRegistry struct {
	metrics.Registry
}

func NewFinagleStatsRegistry() StatsRegistry {
	return &finagleStatsRegistry{metrics.NewRegistry()}
}

type jsonMap map[string]interface{}

func (r *finagleStatsRegistry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.MarshalAll())
}

func (r *finagleStatsRegistry) MarshalJSONPretty() ([]byte, error) {
	return json.MarshalIndent(r.MarshalAll(), "", "  ")
}

// MarshalAll flattens every instrument into name keyed values.
func (r *finagleStatsRegistry) MarshalAll() jsonMap {
	data := jsonMap{}
	r.Each(func(name string, i interface{}) {
		switch m := i.(type) {
		case Counter:
			data[name] = m.Count()
		case Gauge:
			data[name] = m.Value()
		case Latency:
			captured := m.Capture()
			addDurations(data, name, captured.(sampledDurations), captured.GetPrecision())
		default:
			log.Infof("Not rendering unknown instrument %s: %T", name, i)
		}
	})
	return data
}

var percentiles = []struct {
	p     float64
	label string
}{
	{0.5, "p50"}, {0.9, "p90"}, {0.95, "p95"}, {0.99, "p99"}, {0.999, "p999"}, {0.9999, "p9999"},
}

func addDurations(data jsonMap, name string, d sampledDurations, unit time.Duration) {
	data[name+".avg"] = d.Mean() / float64(unit)
	data[name+".count"] = d.Count()
	data[name+".max"] = d.Max() / int64(unit)
	data[name+".min"] = d.Min() / int64(unit)
	data[name+".sum"] = d.Sum() / int64(unit)
	ps := make([]float64, len(percentiles))
	for i, p := range percentiles {
		ps[i] = p.p
	}
	for i, v := range d.Percentiles(ps) {
		data[name+"."+percentiles[i].label] = v / float64(unit)
	}
}
