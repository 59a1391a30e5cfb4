package history

import (
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/common/stats"
	"github.com/twitter/taskstate/os/temp"
	"github.com/twitter/taskstate/snapshot"
)

type fakeTask struct {
	path    string
	typ     string
	outputs []string
	props   map[string]interface{}
}

func (t *fakeTask) Path() string                            { return t.path }
func (t *fakeTask) TypeName() string                        { return t.typ }
func (t *fakeTask) DeclaredOutputs() []string               { return t.outputs }
func (t *fakeTask) InputProperties() map[string]interface{} { return t.props }
func (t *fakeTask) ValueCodec() ValueCodec                  { return nil }

// memCache is an IndexedCache that needs no store.
type memCache map[string][]byte

func (m memCache) Get(key []byte) ([]byte, bool, error) {
	v, ok := m[string(key)]
	return v, ok, nil
}

func (m memCache) Put(key, value []byte) error {
	m[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m memCache) Remove(key []byte) error {
	delete(m, string(key))
	return nil
}

func record(t *testing.T, repo *CacheBackedTaskHistoryRepository, task Task) *TaskExecution {
	h, err := repo.GetHistory(task)
	require.NoError(t, err)
	h.CurrentExecution().SetInputFilesSnapshot(snapshot.EmptySnapshot())
	h.CurrentExecution().SetOutputFilesSnapshot(snapshot.EmptySnapshot())
	h.CurrentExecution().Successful = true
	require.NoError(t, h.Update())
	return h.CurrentExecution()
}

func TestBestMatchPrefersLargestOverlap(t *testing.T) {
	current := &TaskExecution{DeclaredOutputs: []string{"A", "B", "C"}}
	ab := &TaskExecution{DeclaredOutputs: []string{"A", "B"}}
	a := &TaskExecution{DeclaredOutputs: []string{"A"}}
	none := &TaskExecution{}
	assert.Same(t, ab, bestMatch(current, []*TaskExecution{ab, a, none}))
	assert.Same(t, ab, bestMatch(current, []*TaskExecution{none, a, ab}))
	assert.Nil(t, bestMatch(current, []*TaskExecution{none}))
}

func TestBestMatchTieGoesToNewest(t *testing.T) {
	current := &TaskExecution{DeclaredOutputs: []string{"A", "B"}}
	newer := &TaskExecution{DeclaredOutputs: []string{"A", "X"}}
	older := &TaskExecution{DeclaredOutputs: []string{"A", "Y"}}
	assert.Same(t, newer, bestMatch(current, []*TaskExecution{newer, older}))

	perfect := &TaskExecution{DeclaredOutputs: []string{"A", "B"}}
	superset := &TaskExecution{DeclaredOutputs: []string{"A", "B", "C"}}
	assert.Same(t, perfect, bestMatch(current, []*TaskExecution{perfect, superset}))
}

func TestBestMatchWithoutOutputs(t *testing.T) {
	current := &TaskExecution{}
	withOutputs := &TaskExecution{DeclaredOutputs: []string{"A"}}
	none := &TaskExecution{}
	assert.Same(t, none, bestMatch(current, []*TaskExecution{withOutputs, none}))
	assert.Nil(t, bestMatch(current, []*TaskExecution{withOutputs}))
}

func TestGetHistorySelectsPreviousExecution(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	snapshots := NewMockFileSnapshotRepository(mockCtrl)
	ids := int64(0)
	snapshots.EXPECT().Add(gomock.Any()).DoAndReturn(func(snapshot.Snapshot) (int64, error) {
		ids++
		return ids, nil
	}).AnyTimes()

	repo := NewTaskHistoryRepository(memCache{}, snapshots, nil)
	task := &fakeTask{path: ":compile", typ: "Compile"}
	h, err := repo.GetHistory(task)
	require.NoError(t, err)
	assert.Nil(t, h.PreviousExecution())

	for _, outputs := range [][]string{{}, {"A"}, {"A", "B"}} {
		task.outputs = outputs
		record(t, repo, task)
	}

	task.outputs = []string{"C", "B", "A"}
	h, err = repo.GetHistory(task)
	require.NoError(t, err)
	require.NotNil(t, h.PreviousExecution())
	assert.Equal(t, []string{"A", "B"}, h.PreviousExecution().DeclaredOutputs)
	assert.Equal(t, []string{"A", "B", "C"}, h.CurrentExecution().DeclaredOutputs)
	assert.Equal(t, []int64{5, 6}, h.PreviousExecution().SnapshotIDs())
}

func TestUpdateEvictsOldestExecutions(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	snapshots := NewMockFileSnapshotRepository(mockCtrl)
	ids := int64(0)
	snapshots.EXPECT().Add(gomock.Any()).DoAndReturn(func(snapshot.Snapshot) (int64, error) {
		ids++
		return ids, nil
	}).Times(10)
	for _, id := range []int64{1, 2, 3, 4} {
		snapshots.EXPECT().Remove(id).Return(nil)
	}

	reg := stats.NewFinagleStatsRegistry()
	stat, _ := stats.NewCustomStatsReceiver(func() stats.StatsRegistry { return reg }, 0)
	c := memCache{}
	repo := NewTaskHistoryRepository(c, snapshots, stat)
	task := &fakeTask{path: ":jar", typ: "Jar", outputs: []string{"out"}}
	for i := 0; i < 5; i++ {
		record(t, repo, task)
	}

	executions, ok, err := repo.executions.Get(":jar")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, executions, MaxExecutions, spew.Sdump(executions))
	assert.Equal(t, []int64{9, 10}, executions[0].SnapshotIDs())
	assert.Equal(t, []int64{5, 6}, executions[2].SnapshotIDs())

	stats.VerifyStats("", reg, t, map[string]stats.Rule{
		"history/" + stats.HistoryLoadCounter:    {Checker: stats.Int64EqTest, Value: 5},
		"history/" + stats.HistoryEvictedCounter: {Checker: stats.Int64EqTest, Value: 2},
	})
}

func TestHistoryIsolatedPerTask(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	snapshots := NewMockFileSnapshotRepository(mockCtrl)
	snapshots.EXPECT().Add(gomock.Any()).Return(int64(1), nil).AnyTimes()

	repo := NewTaskHistoryRepository(memCache{}, snapshots, nil)
	record(t, repo, &fakeTask{path: ":a", typ: "A"})
	h, err := repo.GetHistory(&fakeTask{path: ":b", typ: "B"})
	require.NoError(t, err)
	assert.Nil(t, h.PreviousExecution())
}

func TestInputPropertiesRoundTrip(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	snapshots := NewMockFileSnapshotRepository(mockCtrl)
	snapshots.EXPECT().Add(gomock.Any()).Return(int64(1), nil).AnyTimes()

	repo := NewTaskHistoryRepository(memCache{}, snapshots, nil)
	task := &fakeTask{path: ":p", typ: "P", props: map[string]interface{}{
		"level": 3,
		"name":  "release",
		"flags": []string{"-O2", "-g"},
	}}
	record(t, repo, task)

	h, err := repo.GetHistory(task)
	require.NoError(t, err)
	prev := h.PreviousExecution()
	require.NotNil(t, prev)
	assert.Equal(t, "P", prev.TaskType)
	assert.True(t, prev.Successful)
	values, err := prev.InputPropertyValues(task.ValueCodec())
	require.NoError(t, err)
	assert.Equal(t, task.props, values)
}

func TestSnapshotsLoadLazily(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	snapshots := NewMockFileSnapshotRepository(mockCtrl)
	snapshots.EXPECT().Add(gomock.Any()).Return(int64(7), nil).Times(2)

	repo := NewTaskHistoryRepository(memCache{}, snapshots, nil)
	task := &fakeTask{path: ":lazy", typ: "Lazy"}
	record(t, repo, task)

	h, err := repo.GetHistory(task)
	require.NoError(t, err)
	stored := snapshot.NewFileCollectionSnapshot(map[string]snapshot.FileSnapshot{"/f": snapshot.Missing()})
	snapshots.EXPECT().Get(int64(7)).Return(stored, nil).Times(1)

	for i := 0; i < 2; i++ {
		s, err := h.PreviousExecution().InputFilesSnapshot()
		require.NoError(t, err)
		assert.Same(t, stored, s)
	}
	s, err := h.CurrentExecution().InputFilesSnapshot()
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSnapshotRepository(t *testing.T) {
	tmp, err := temp.TempDirDefault()
	require.NoError(t, err)
	defer tmp.RemoveAll()
	store, err := cache.Open(tmp.Dir, time.Millisecond, nil)
	require.NoError(t, err)
	defer store.Close()
	c, err := store.Cache(cache.FileSnapshotsCache)
	require.NoError(t, err)
	repo := NewSnapshotRepository(c, store)

	s := snapshot.NewFileCollectionSnapshot(map[string]snapshot.FileSnapshot{"/d": snapshot.Directory()})
	require.NoError(t, store.UseCache("snapshots", func(*cache.Session) error {
		id1, err := repo.Add(s)
		require.NoError(t, err)
		id2, err := repo.Add(snapshot.EmptySnapshot())
		require.NoError(t, err)
		assert.NotEqual(t, id1, id2)

		got, err := repo.Get(id1)
		require.NoError(t, err)
		assert.Equal(t, []string{"/d"}, got.Files().Paths())

		require.NoError(t, repo.Remove(id1))
		_, err = repo.Get(id1)
		assert.Error(t, err)

		key, err := cache.Int64Serializer{}.Encode(id2)
		require.NoError(t, err)
		require.NoError(t, c.Put(key, []byte{0, 0, 0, 9}))
		_, err = repo.Get(id2)
		assert.Equal(t, snapshot.ErrUnknownTag, errors.Cause(err))
		return nil
	}))
}

func TestExecutionsSerializer(t *testing.T) {
	in := int64(4)
	e := &TaskExecution{
		TaskPath:        ":x",
		TaskType:        "X",
		Successful:      true,
		DeclaredOutputs: []string{"a", "b"},
		InputProperties: map[string][]byte{"p": {1, 2}, "q": {}},
		inputFiles:      SnapshotRef{id: &in},
	}
	data, err := executionsSerializer{}.Encode([]*TaskExecution{e, {TaskPath: ":x"}})
	require.NoError(t, err)
	got, err := executionsSerializer{}.Decode(data)
	require.NoError(t, err)
	require.Len(t, got, 2, spew.Sdump(got))
	assert.Equal(t, e.TaskPath, got[0].TaskPath)
	assert.Equal(t, e.TaskType, got[0].TaskType)
	assert.True(t, got[0].Successful)
	assert.Equal(t, e.DeclaredOutputs, got[0].DeclaredOutputs)
	assert.Equal(t, e.InputProperties, got[0].InputProperties)
	assert.Equal(t, []int64{4}, got[0].SnapshotIDs())
	assert.Empty(t, got[1].SnapshotIDs())
	assert.False(t, got[1].Successful)

	_, err = executionsSerializer{}.Decode(append(data, 0))
	assert.Error(t, err)
	_, err = executionsSerializer{}.Decode(data[:len(data)-3])
	assert.Error(t, err)
}
