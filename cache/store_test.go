package cache

import (
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitter/taskstate/os/temp"
)

func openTestStore(t *testing.T, dir string) *Store {
	s, err := Open(dir, time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDir(t *testing.T) string {
	tmp, err := temp.TempDirDefault()
	require.NoError(t, err)
	t.Cleanup(func() { tmp.RemoveAll() })
	return tmp.Dir
}

func TestStorePutGetRemove(t *testing.T) {
	dir := testDir(t)
	s := openTestStore(t, dir)
	c, err := s.Cache(FileSnapshotsCache)
	require.NoError(t, err)

	err = s.UseCache("put", func(*Session) error {
		_, ok, err := c.Get([]byte("k"))
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, c.Put([]byte("k"), []byte("v")))
		require.NoError(t, c.Put([]byte("empty"), nil))
		v, ok, err := c.Get([]byte("k"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), v)

		v, ok, err = c.Get([]byte("empty"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, v)
		return nil
	})
	require.NoError(t, err)

	// Values survive reopening the store.
	reopened := openTestStore(t, dir)
	rc, err := reopened.Cache(FileSnapshotsCache)
	require.NoError(t, err)
	err = reopened.UseCache("get", func(*Session) error {
		v, ok, err := rc.Get([]byte("k"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("v"), v)

		require.NoError(t, rc.Remove([]byte("k")))
		_, ok, err = rc.Get([]byte("k"))
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestStoreRequiresUseCache(t *testing.T) {
	s := openTestStore(t, testDir(t))
	c, err := s.Cache(TaskHistoryCache)
	require.NoError(t, err)

	_, _, err = c.Get([]byte("k"))
	assert.Equal(t, ErrNotLocked, err)
	assert.Equal(t, ErrNotLocked, c.Put([]byte("k"), []byte("v")))
	_, err = s.NextID(FileSnapshotsCache)
	assert.Equal(t, ErrNotLocked, err)
}

func TestStoreInvalidCacheName(t *testing.T) {
	s := openTestStore(t, testDir(t))
	_, err := s.Cache("x; DROP TABLE sequences")
	assert.Error(t, err)
}

func TestNextID(t *testing.T) {
	dir := testDir(t)
	s := openTestStore(t, dir)
	var ids []int64
	err := s.UseCache("ids", func(*Session) error {
		for i := 0; i < 3; i++ {
			id, err := s.NextID("a")
			require.NoError(t, err)
			ids = append(ids, id)
		}
		id, err := s.NextID("b")
		require.NoError(t, err)
		ids = append(ids, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 1}, ids)

	other := openTestStore(t, dir)
	err = other.UseCache("ids", func(*Session) error {
		id, err := other.NextID("a")
		require.NoError(t, err)
		assert.Equal(t, int64(4), id)
		return nil
	})
	require.NoError(t, err)
}

func TestLockStateAcrossBatches(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	s := openTestStore(t, testDir(t))
	c, err := s.Cache(OutputFileStatesCache)
	require.NoError(t, err)
	listener := NewMockAccessListener(mockCtrl)
	s.AddAccessListener(listener)

	written := LockState{Version: lockStateVersion, Sequence: 1, Owner: s.Owner()}
	gomock.InOrder(
		listener.EXPECT().OnStartWork(LockState{Version: lockStateVersion}),
		listener.EXPECT().OnEndWork(written),
		listener.EXPECT().OnStartWork(written),
		listener.EXPECT().OnEndWork(written),
	)

	// Two writes in one batch bump the sequence once.
	require.NoError(t, s.UseCache("write", func(*Session) error {
		require.NoError(t, c.Put([]byte("a"), []byte("1")))
		return c.Put([]byte("b"), []byte("2"))
	}))
	// Reads don't.
	require.NoError(t, s.UseCache("read", func(*Session) error {
		_, _, err := c.Get([]byte("a"))
		return err
	}))
}

func TestLongRunningOperationReleasesLock(t *testing.T) {
	dir := testDir(t)
	s1 := openTestStore(t, dir)
	s2 := openTestStore(t, dir)
	c1, err := s1.Cache(TaskHistoryCache)
	require.NoError(t, err)
	c2, err := s2.Cache(TaskHistoryCache)
	require.NoError(t, err)

	err = s1.UseCache("task", func(sess *Session) error {
		require.NoError(t, c1.Put([]byte("k"), []byte("before")))
		err := sess.LongRunningOperation("execute", func() error {
			return s2.UseCache("other", func(*Session) error {
				return c2.Put([]byte("k"), []byte("during"))
			})
		})
		require.NoError(t, err)
		v, _, err := c1.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("during"), v)
		return c1.Put([]byte("k"), []byte("after"))
	})
	require.NoError(t, err)
}

func TestUseCacheBlocksOtherProcess(t *testing.T) {
	dir := testDir(t)
	s1 := openTestStore(t, dir)
	s2 := openTestStore(t, dir)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- s1.UseCache("holder", func(*Session) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	acquired := make(chan struct{})
	go func() {
		s2.UseCache("waiter", func(*Session) error {
			close(acquired)
			return nil
		})
	}()

	select {
	case <-acquired:
		t.Fatal("Second store acquired the lock while the first held it")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-done)
	select {
	case <-acquired:
	case <-time.After(5 * time.Second):
		t.Fatal("Second store never acquired the lock")
	}
}
