package cache

import (
	"bytes"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/common/stats"
)

// A remembered lookup, holding its own copy of the value. present is false for keys the persistent cache is
// known not to hold.
type entry struct {
	value   []byte
	present bool
}

// InMemoryDecorator keeps a bounded LRU of recently used entries in front of
// each persistent cache. Register it as an AccessListener on the store so
// that writes by other processes drop everything held in memory.
type InMemoryDecorator struct {
	mu         sync.Mutex
	caches     map[string]*memoryCache
	capacities map[string]int
	lastToken  int64
	hasToken   bool
	stat       stats.StatsReceiver
}

func NewInMemoryDecorator(capacities map[string]int, stat stats.StatsReceiver) *InMemoryDecorator {
	if capacities == nil {
		capacities = DefaultCapacities()
	}
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &InMemoryDecorator{
		caches:     map[string]*memoryCache{},
		capacities: capacities,
		stat:       stat.Scope("decorator"),
	}
}

// Decorate wraps backing with the in-memory layer for the named cache.
// Decorating the same name twice shares one LRU.
func (d *InMemoryDecorator) Decorate(name string, backing IndexedCache) IndexedCache {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.caches[name]
	if !ok {
		capacity, ok := d.capacities[name]
		if !ok {
			log.Debugf("No in-memory capacity configured for %s, using %d", name, DefaultInMemoryCapacity)
			capacity = DefaultInMemoryCapacity
		}
		if capacity < 1 {
			capacity = 1
		}
		m = &memoryCache{
			decorator: d,
			name:      name,
			capacity:  capacity,
			hits:      d.stat.Scope(name).Counter(stats.DecoratorHitCounter),
			misses:    d.stat.Scope(name).Counter(stats.DecoratorMissCounter),
			evictions: d.stat.Scope(name).Counter(stats.DecoratorEvictionCounter),
		}
		m.reset()
		d.caches[name] = m
	}
	return &decoratedCache{memory: m, backing: backing}
}

func (d *InMemoryDecorator) OnStartWork(state LockState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hasToken && d.lastToken == state.Token() {
		return
	}
	if d.hasToken {
		log.Infof("Store changed since last use (token %d, now %d), invalidating in-memory caches", d.lastToken, state.Token())
		d.stat.Counter(stats.DecoratorInvalidateCounter).Inc(1)
	}
	for _, m := range d.caches {
		m.reset()
	}
}

func (d *InMemoryDecorator) OnEndWork(state LockState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastToken = state.Token()
	d.hasToken = true
}

// Len returns the number of entries held in memory for the named cache.
func (d *InMemoryDecorator) Len(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.caches[name]; ok {
		return m.entries.Len()
	}
	return 0
}

// Guarded by decorator.mu.
type memoryCache struct {
	decorator *InMemoryDecorator
	name      string
	capacity  int
	entries   *lru.Cache[string, entry]
	hits      stats.Counter
	misses    stats.Counter
	evictions stats.Counter
}

func (m *memoryCache) reset() {
	m.entries, _ = lru.NewWithEvict(m.capacity, func(string, entry) {
		m.evictions.Inc(1)
	})
}

type decoratedCache struct {
	memory  *memoryCache
	backing IndexedCache
}

func (c *decoratedCache) Get(key []byte) ([]byte, bool, error) {
	m := c.memory
	m.decorator.mu.Lock()
	defer m.decorator.mu.Unlock()
	if e, ok := m.entries.Get(string(key)); ok {
		m.hits.Inc(1)
		return bytes.Clone(e.value), e.present, nil
	}
	m.misses.Inc(1)
	value, ok, err := c.backing.Get(key)
	if err != nil {
		return nil, false, err
	}
	m.entries.Add(string(key), entry{value: bytes.Clone(value), present: ok})
	return value, ok, nil
}

func (c *decoratedCache) Put(key, value []byte) error {
	m := c.memory
	m.decorator.mu.Lock()
	defer m.decorator.mu.Unlock()
	if err := c.backing.Put(key, value); err != nil {
		m.entries.Remove(string(key))
		return err
	}
	m.entries.Add(string(key), entry{value: bytes.Clone(value), present: true})
	return nil
}

func (c *decoratedCache) Remove(key []byte) error {
	m := c.memory
	m.decorator.mu.Lock()
	defer m.decorator.mu.Unlock()
	if err := c.backing.Remove(key); err != nil {
		m.entries.Remove(string(key))
		return err
	}
	m.entries.Add(string(key), entry{})
	return nil
}
