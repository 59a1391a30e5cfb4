package history

import (
	log "github.com/sirupsen/logrus"

	"github.com/twitter/taskstate/cache"
	"github.com/twitter/taskstate/common/stats"
)

// MaxExecutions is how many executions are kept per task.
const MaxExecutions = 3

type TaskHistoryRepository interface {
	GetHistory(task Task) (*History, error)
}

// CacheBackedTaskHistoryRepository keeps each task's executions in the
// taskHistory cache keyed by task path. Must be used inside a Store.UseCache
// batch.
type CacheBackedTaskHistoryRepository struct {
	executions *cache.TypedCache[string, []*TaskExecution]
	snapshots  FileSnapshotRepository
	stat       stats.StatsReceiver
}

func NewTaskHistoryRepository(c cache.IndexedCache, snapshots FileSnapshotRepository, stat stats.StatsReceiver) *CacheBackedTaskHistoryRepository {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	return &CacheBackedTaskHistoryRepository{
		executions: cache.NewTypedCache[string, []*TaskExecution](c, cache.StringSerializer{}, executionsSerializer{}),
		snapshots:  snapshots,
		stat:       stat.Scope("history"),
	}
}

func (r *CacheBackedTaskHistoryRepository) GetHistory(task Task) (*History, error) {
	r.stat.Counter(stats.HistoryLoadCounter).Inc(1)
	executions, err := r.Executions(task.Path())
	if err != nil {
		return nil, err
	}
	current, err := NewTaskExecution(task)
	if err != nil {
		return nil, err
	}
	current.repo = r.snapshots
	return &History{
		repo:       r,
		path:       task.Path(),
		executions: executions,
		previous:   bestMatch(current, executions),
		current:    current,
	}, nil
}

// History is the remembered executions of one task plus the one about to run.
type History struct {
	repo       *CacheBackedTaskHistoryRepository
	path       string
	executions []*TaskExecution
	previous   *TaskExecution
	current    *TaskExecution
}

// PreviousExecution is the stored execution whose declared outputs overlap
// most with the current one, or nil.
func (h *History) PreviousExecution() *TaskExecution {
	return h.previous
}

func (h *History) CurrentExecution() *TaskExecution {
	return h.current
}

// Update stores the current execution's snapshots and records it as the
// newest execution, dropping the oldest ones beyond MaxExecutions.
func (h *History) Update() error {
	snapshots := h.repo.snapshots
	if err := h.current.inputFiles.store(snapshots); err != nil {
		return err
	}
	if err := h.current.outputFiles.store(snapshots); err != nil {
		return err
	}
	executions := append([]*TaskExecution{h.current}, h.executions...)
	for len(executions) > MaxExecutions {
		evicted := executions[len(executions)-1]
		executions = executions[:len(executions)-1]
		for _, id := range evicted.SnapshotIDs() {
			if err := snapshots.Remove(id); err != nil {
				return err
			}
		}
		h.repo.stat.Counter(stats.HistoryEvictedCounter).Inc(1)
		log.Debugf("Evicted %v from history of %s", evicted, h.path)
	}
	if err := h.repo.executions.Put(h.path, executions); err != nil {
		return err
	}
	h.executions = executions
	return nil
}

// bestMatch scans newest first for the execution sharing the most declared
// outputs with current. A current execution without declared outputs matches
// the first stored execution that has none either.
func bestMatch(current *TaskExecution, executions []*TaskExecution) *TaskExecution {
	if len(current.DeclaredOutputs) == 0 {
		for _, e := range executions {
			if len(e.DeclaredOutputs) == 0 {
				return e
			}
		}
		return nil
	}
	wanted := make(map[string]bool, len(current.DeclaredOutputs))
	for _, o := range current.DeclaredOutputs {
		wanted[o] = true
	}
	var best *TaskExecution
	bestOverlap := 0
	for _, e := range executions {
		overlap := 0
		for _, o := range e.DeclaredOutputs {
			if wanted[o] {
				overlap++
			}
		}
		if overlap > bestOverlap {
			best, bestOverlap = e, overlap
			if overlap == len(wanted) {
				break
			}
		}
	}
	return best
}

// Executions returns the stored executions of the task at path, newest first.
func (r *CacheBackedTaskHistoryRepository) Executions(path string) ([]*TaskExecution, error) {
	executions, _, err := r.executions.Get(path)
	if err != nil {
		return nil, err
	}
	for _, e := range executions {
		e.repo = r.snapshots
	}
	return executions, nil
}
