package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/mattn/go-sqlite3"
	uuid "github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/common/stats"
)

const (
	dbFileName   = "caches.db"
	lockFileName = "caches.lock"

	DefaultLockPollInterval = 50 * time.Millisecond
)

var cacheNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

var errWouldBlock = errors.New("lock held by another process")

// Store is a directory of named persistent caches backed by a single SQLite
// database, plus a lock file that serializes batches across processes.
type Store struct {
	dir      string
	db       *sql.DB
	lockFile *os.File
	owner    string
	poll     time.Duration
	stat     stats.StatsReceiver

	// Held for the whole of a batch, together with the flock on lockFile.
	mu           sync.Mutex
	held         atomic.Bool
	state        LockState
	wroteInBatch bool

	listenersMu sync.Mutex
	listeners   []AccessListener
}

// Open creates the store directory if needed and opens the database and lock
// file inside it. Nothing is locked until UseCache.
func Open(dir string, pollInterval time.Duration, stat stats.StatsReceiver) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "couldn't create store dir %s", dir)
	}
	lockFile, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't open lock file in %s", dir)
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", filepath.Join(dir, dbFileName))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		lockFile.Close()
		return nil, errors.Wrapf(err, "couldn't open database in %s", dir)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sequences (name TEXT PRIMARY KEY, value INTEGER NOT NULL)`); err != nil {
		db.Close()
		lockFile.Close()
		return nil, errors.Wrapf(err, "couldn't initialize database in %s", dir)
	}
	owner, err := uuid.NewV4()
	if err != nil {
		db.Close()
		lockFile.Close()
		return nil, errors.Wrap(err, "couldn't generate store owner id")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultLockPollInterval
	}
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	log.Debugf("Opened store %s as %s", dir, owner)
	return &Store{
		dir:      dir,
		db:       db,
		lockFile: lockFile,
		owner:    owner.String(),
		poll:     pollInterval,
		stat:     stat.Scope("store"),
	}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Owner is the id this store writes into the lock state.
func (s *Store) Owner() string {
	return s.owner
}

func (s *Store) Close() error {
	dbErr := s.db.Close()
	lockErr := s.lockFile.Close()
	if dbErr != nil {
		return errors.Wrapf(dbErr, "couldn't close database in %s", s.dir)
	}
	if lockErr != nil {
		return errors.Wrapf(lockErr, "couldn't close lock file in %s", s.dir)
	}
	return nil
}

// AddAccessListener registers l for start/end work notifications on every
// batch and around every long running operation.
func (s *Store) AddAccessListener(l AccessListener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Cache returns the named persistent cache, creating its table if needed.
func (s *Store) Cache(name string) (IndexedCache, error) {
	if !cacheNameRe.MatchString(name) {
		return nil, fmt.Errorf("invalid cache name %q", name)
	}
	table := "cache_" + name
	if _, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (k BLOB PRIMARY KEY, v BLOB NOT NULL)`, table)); err != nil {
		return nil, errors.Wrapf(err, "couldn't create cache %s", name)
	}
	return &persistentCache{
		store:     s,
		name:      name,
		getQuery:  fmt.Sprintf(`SELECT v FROM %s WHERE k = ?`, table),
		putQuery:  fmt.Sprintf(`INSERT OR REPLACE INTO %s (k, v) VALUES (?, ?)`, table),
		rmQuery:   fmt.Sprintf(`DELETE FROM %s WHERE k = ?`, table),
		readStat:  s.stat.Scope(name).Counter(stats.StoreReadCounter),
		writeStat: s.stat.Scope(name).Counter(stats.StoreWriteCounter),
		rmStat:    s.stat.Scope(name).Counter(stats.StoreRemoveCounter),
	}, nil
}

// DecoratedCache returns the named persistent cache wrapped by d, or the
// bare persistent cache when d is nil.
func (s *Store) DecoratedCache(name string, d *InMemoryDecorator) (IndexedCache, error) {
	c, err := s.Cache(name)
	if err != nil || d == nil {
		return c, err
	}
	return d.Decorate(name, c), nil
}

// NextID returns the next value of a durable, monotonically increasing
// sequence. The first value of a sequence is 1.
func (s *Store) NextID(sequence string) (int64, error) {
	if err := s.beforeWrite(); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRow(
		`INSERT INTO sequences (name, value) VALUES (?, 1) ON CONFLICT(name) DO UPDATE SET value = value + 1 RETURNING value`,
		sequence).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "couldn't advance sequence %s", sequence)
	}
	return id, nil
}

// Session is handed to the function run by UseCache.
type Session struct {
	store *Store
	name  string
	held  bool
}

func (sess *Session) Name() string {
	return sess.name
}

// LongRunningOperation gives up exclusive access to the store while fn runs,
// so other processes can use it, and takes it back afterwards. Listeners see
// an end-work and a fresh start-work notification.
func (sess *Session) LongRunningOperation(name string, fn func() error) error {
	s := sess.store
	s.stat.Counter(stats.StoreLongRunningOperationCounter).Inc(1)
	log.Debugf("Releasing %s for long running operation %q in %q", s.dir, name, sess.name)
	relErr := s.release()
	sess.held = false
	var fnErr error
	if relErr == nil {
		fnErr = fn()
	}
	if err := s.acquire(); err != nil {
		return err
	}
	sess.held = true
	if relErr != nil {
		return relErr
	}
	return fnErr
}

// UseCache runs fn with exclusive access to the store. Waits, without a
// deadline, for other processes holding the lock.
func (s *Store) UseCache(name string, fn func(*Session) error) (err error) {
	if err := s.acquire(); err != nil {
		return err
	}
	s.stat.Counter(stats.StoreUseCacheCounter).Inc(1)
	sess := &Session{store: s, name: name, held: true}
	defer func() {
		if !sess.held {
			return
		}
		if relErr := s.release(); relErr != nil && err == nil {
			err = relErr
		}
	}()
	return fn(sess)
}

func (s *Store) acquire() error {
	defer s.stat.Latency(stats.StoreLockAcquireLatency_ms).Time().Stop()
	s.mu.Lock()
	if err := s.lockFileExclusive(); err != nil {
		s.mu.Unlock()
		return err
	}
	state, err := readLockState(s.lockFile)
	if err != nil {
		unlock(s.lockFile)
		s.mu.Unlock()
		return err
	}
	if state.Dirty {
		log.Warnf("Store %s was not released cleanly by %s", s.dir, state.Owner)
	}
	s.state = state
	s.wroteInBatch = false
	s.held.Store(true)

	for _, l := range s.snapshotListeners() {
		l.OnStartWork(state)
	}
	return nil
}

func (s *Store) release() error {
	var err error
	if s.wroteInBatch {
		s.state.Dirty = false
		err = writeLockState(s.lockFile, s.state)
	}
	s.held.Store(false)
	for _, l := range s.snapshotListeners() {
		l.OnEndWork(s.state)
	}
	if unlockErr := unlock(s.lockFile); unlockErr != nil && err == nil {
		err = unlockErr
	}
	s.mu.Unlock()
	return err
}

// Polls for the flock since blocking in flock can't be interrupted.
func (s *Store) lockFileExclusive() error {
	var lockErr error
	contended := false
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.poll
	b.MaxInterval = 10 * s.poll
	b.MaxElapsedTime = 0
	backoff.Retry(func() error {
		err := tryLock(s.lockFile)
		if err == errWouldBlock {
			if !contended {
				contended = true
				s.stat.Counter(stats.StoreLockContendedCounter).Inc(1)
				log.Infof("Waiting for lock on %s", s.dir)
			}
			return err
		}
		lockErr = err
		return nil
	}, b)
	return lockErr
}

// The first write of a batch marks the store dirty and bumps its sequence.
func (s *Store) beforeWrite() error {
	if !s.held.Load() {
		return ErrNotLocked
	}
	if s.wroteInBatch {
		return nil
	}
	next := s.state
	next.Dirty = true
	next.Sequence++
	next.Owner = s.owner
	if err := writeLockState(s.lockFile, next); err != nil {
		return err
	}
	s.state = next
	s.wroteInBatch = true
	return nil
}

func (s *Store) snapshotListeners() []AccessListener {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	return append([]AccessListener(nil), s.listeners...)
}

type persistentCache struct {
	store     *Store
	name      string
	getQuery  string
	putQuery  string
	rmQuery   string
	readStat  stats.Counter
	writeStat stats.Counter
	rmStat    stats.Counter
}

func (c *persistentCache) Get(key []byte) ([]byte, bool, error) {
	if !c.store.held.Load() {
		return nil, false, ErrNotLocked
	}
	c.readStat.Inc(1)
	var value []byte
	err := c.store.db.QueryRow(c.getQuery, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "couldn't read from cache %s", c.name)
	}
	return value, true, nil
}

func (c *persistentCache) Put(key, value []byte) error {
	if err := c.store.beforeWrite(); err != nil {
		return err
	}
	c.writeStat.Inc(1)
	if value == nil {
		value = []byte{}
	}
	if _, err := c.store.db.Exec(c.putQuery, key, value); err != nil {
		return errors.Wrapf(err, "couldn't write to cache %s", c.name)
	}
	return nil
}

func (c *persistentCache) Remove(key []byte) error {
	if err := c.store.beforeWrite(); err != nil {
		return err
	}
	c.rmStat.Inc(1)
	if _, err := c.store.db.Exec(c.rmQuery, key); err != nil {
		return errors.Wrapf(err, "couldn't remove from cache %s", c.name)
	}
	return nil
}
