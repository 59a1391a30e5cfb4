package snapshot

import (
	"crypto/sha256"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/hashing"
	"github.com/twitter/taskstate/os/temp"
	"github.com/twitter/taskstate/tree"
)

func tempDir(t *testing.T) *temp.TempDir {
	tmp, err := temp.TempDirDefault()
	require.NoError(t, err)
	t.Cleanup(func() { tmp.RemoveAll() })
	return tmp
}

func newSnapshotter(t *testing.T) *Snapshotter {
	visitor, err := tree.NewCachingVisitor(10, nil)
	require.NoError(t, err)
	return NewSnapshotter(visitor, hashing.NewSHA256Hasher(nil), nil)
}

func TestSnapshotDetectsEditedFile(t *testing.T) {
	tmp := tempDir(t)
	src := tmp.Path("proj/src")
	a, err := tmp.WriteFile("proj/src/A.txt", "x")
	require.NoError(t, err)

	s := newSnapshotter(t)
	s1, err := s.SnapshotPaths([]string{src}, true)
	require.NoError(t, err)
	sum := sha256.Sum256([]byte("x"))
	assert.Equal(t, []string{src, a}, s1.Paths())
	dir, _ := s1.Get(src)
	assert.Equal(t, DirectoryType, dir.Type)
	file, _ := s1.Get(a)
	assert.Equal(t, sum[:], file.Hash)
	assert.NotNil(t, file.ModTime)

	require.NoError(t, os.WriteFile(a, []byte("y"), 0666))
	s2, err := s.SnapshotPaths([]string{src}, true)
	require.NoError(t, err)
	assert.Equal(t, []Change{{a, Changed}}, AllChanges(s2.ChangesSince(s1)))
}

func TestSnapshotMissingAndDuplicateRoots(t *testing.T) {
	tmp := tempDir(t)
	a, err := tmp.WriteFile("A.txt", "a")
	require.NoError(t, err)

	s := newSnapshotter(t)
	snap, err := s.Snapshot([]tree.Tree{{Root: a}, {Root: tmp.Path("nope")}, {Root: tmp.Dir}}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{tmp.Dir, a, tmp.Path("nope")}, snap.Paths())
	missing, _ := snap.Get(tmp.Path("nope"))
	assert.Equal(t, Missing(), missing)

	empty, err := s.Snapshot(nil, true)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestSnapshotFiltered(t *testing.T) {
	tmp := tempDir(t)
	_, err := tmp.WriteFile("src/A.java", "a")
	require.NoError(t, err)
	_, err = tmp.WriteFile("src/B.txt", "b")
	require.NoError(t, err)

	s := newSnapshotter(t)
	snap, err := s.Snapshot([]tree.Tree{{Root: tmp.Path("src"), Include: []string{"*.java"}}}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{tmp.Path("src"), tmp.Path("src/A.java")}, snap.Paths())
}

func TestSnapshotHashFailureFailsSnapshot(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	tmp := tempDir(t)
	a, err := tmp.WriteFile("A.txt", "a")
	require.NoError(t, err)
	hasher := hashing.NewMockHasher(mockCtrl)
	hasher.EXPECT().Hash(a).Return(nil, os.ErrPermission)

	visitor, err := tree.NewCachingVisitor(10, nil)
	require.NoError(t, err)
	s := NewSnapshotter(visitor, hasher, nil)
	_, err = s.SnapshotPaths([]string{a}, true)
	assert.Equal(t, os.ErrPermission, err)
}

func TestOutputFilesSnapshotter(t *testing.T) {
	tmp := tempDir(t)
	store, err := cache.Open(tmp.Path("store"), time.Millisecond, nil)
	require.NoError(t, err)
	defer store.Close()
	ids, err := store.Cache(cache.OutputFileStatesCache)
	require.NoError(t, err)
	out := tmp.Path("build")
	o := NewOutputFilesSnapshotter(newSnapshotter(t), ids, store, nil)

	require.NoError(t, store.UseCache("outputs", func(*cache.Session) error {
		missing, err := o.Snapshot([]string{out})
		require.NoError(t, err)
		id, ok := missing.RootID(out)
		assert.True(t, ok)
		assert.Nil(t, id)

		_, err = tmp.WriteFile("build/a.class", "a")
		require.NoError(t, err)
		first, err := o.Snapshot([]string{out})
		require.NoError(t, err)
		firstID, _ := first.RootID(out)
		require.NotNil(t, firstID)
		// A root getting its first id isn't a root change. The root itself
		// went from missing to a directory.
		assert.Equal(t, []Change{{out, Changed}}, AllChanges(first.ChangesSince(missing)))

		_, err = tmp.WriteFile("build/b.class", "b")
		require.NoError(t, err)
		second, err := o.Snapshot([]string{out})
		require.NoError(t, err)
		secondID, _ := second.RootID(out)
		assert.Equal(t, *firstID, *secondID)
		assert.Empty(t, AllChanges(second.ChangesSince(first)))

		// Delete and recreate: same contents, new identity.
		require.NoError(t, os.RemoveAll(out))
		gone, err := o.Snapshot([]string{out})
		require.NoError(t, err)
		goneID, _ := gone.RootID(out)
		assert.Nil(t, goneID)

		_, err = tmp.WriteFile("build/a.class", "a")
		require.NoError(t, err)
		_, err = tmp.WriteFile("build/b.class", "b")
		require.NoError(t, err)
		recreated, err := o.Snapshot([]string{out})
		require.NoError(t, err)
		recreatedID, _ := recreated.RootID(out)
		require.NotNil(t, recreatedID)
		assert.NotEqual(t, *firstID, *recreatedID)
		assert.Equal(t, []Change{{out, Changed}}, AllChanges(recreated.ChangesSince(second)))
		return nil
	}))
}

func TestSnapshotSymlinkedDirectory(t *testing.T) {
	tmp := tempDir(t)
	_, err := tmp.WriteFile("shared/S.txt", "s")
	require.NoError(t, err)
	a, err := tmp.WriteFile("src/A.txt", "a")
	require.NoError(t, err)
	lib := tmp.Path("src/lib")
	require.NoError(t, os.Symlink("../shared", lib))

	snap, err := newSnapshotter(t).SnapshotPaths([]string{tmp.Path("src")}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{tmp.Path("src"), a, lib}, snap.Paths())
	f, _ := snap.Get(lib)
	assert.Equal(t, DirectoryType, f.Type)
}
