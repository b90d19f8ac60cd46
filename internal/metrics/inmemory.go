package metrics

import (
	"sync"
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TaskListsCreated uint64
	TaskListsUpdated uint64
	TaskListsDeleted uint64
	TasksCreated     uint64
	TasksUpdated     uint64
	TasksDeleted     uint64
	SharesGranted    uint64
	SharesRevoked    uint64
	AccessDenied     map[string]uint64
	AuthFailures     map[string]uint64
	TokenUsage       map[string]uint64
	UsageQueueDepth  int64
}

// InMemoryRecorder stores metrics in memory for tests and the metrics endpoint.
type InMemoryRecorder struct {
	taskListsCreated uint64
	taskListsUpdated uint64
	taskListsDeleted uint64
	tasksCreated     uint64
	tasksUpdated     uint64
	tasksDeleted     uint64
	sharesGranted    uint64
	sharesRevoked    uint64
	usageQueueDepth  int64

	mu           sync.Mutex
	accessDenied map[string]uint64
	authFailures map[string]uint64
	tokenUsage   map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		accessDenied: make(map[string]uint64),
		authFailures: make(map[string]uint64),
		tokenUsage:   make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	denied := make(map[string]uint64, len(m.accessDenied))
	for k, v := range m.accessDenied {
		denied[k] = v
	}
	failures := make(map[string]uint64, len(m.authFailures))
	for k, v := range m.authFailures {
		failures[k] = v
	}
	usage := make(map[string]uint64, len(m.tokenUsage))
	for k, v := range m.tokenUsage {
		usage[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		TaskListsCreated: atomic.LoadUint64(&m.taskListsCreated),
		TaskListsUpdated: atomic.LoadUint64(&m.taskListsUpdated),
		TaskListsDeleted: atomic.LoadUint64(&m.taskListsDeleted),
		TasksCreated:     atomic.LoadUint64(&m.tasksCreated),
		TasksUpdated:     atomic.LoadUint64(&m.tasksUpdated),
		TasksDeleted:     atomic.LoadUint64(&m.tasksDeleted),
		SharesGranted:    atomic.LoadUint64(&m.sharesGranted),
		SharesRevoked:    atomic.LoadUint64(&m.sharesRevoked),
		AccessDenied:     denied,
		AuthFailures:     failures,
		TokenUsage:       usage,
		UsageQueueDepth:  atomic.LoadInt64(&m.usageQueueDepth),
	}
}

func (m *InMemoryRecorder) IncTaskListCreated() { atomic.AddUint64(&m.taskListsCreated, 1) }
func (m *InMemoryRecorder) IncTaskListUpdated() { atomic.AddUint64(&m.taskListsUpdated, 1) }
func (m *InMemoryRecorder) IncTaskListDeleted() { atomic.AddUint64(&m.taskListsDeleted, 1) }
func (m *InMemoryRecorder) IncTaskCreated()     { atomic.AddUint64(&m.tasksCreated, 1) }
func (m *InMemoryRecorder) IncTaskUpdated()     { atomic.AddUint64(&m.tasksUpdated, 1) }
func (m *InMemoryRecorder) IncTaskDeleted()     { atomic.AddUint64(&m.tasksDeleted, 1) }
func (m *InMemoryRecorder) IncShareGranted()    { atomic.AddUint64(&m.sharesGranted, 1) }
func (m *InMemoryRecorder) IncShareRevoked()    { atomic.AddUint64(&m.sharesRevoked, 1) }

// IncAccessDenied increments the denial counter for action.
func (m *InMemoryRecorder) IncAccessDenied(action string) {
	m.mu.Lock()
	m.accessDenied[action]++
	m.mu.Unlock()
}

// IncAuthFailure increments the auth failure counter for reason.
func (m *InMemoryRecorder) IncAuthFailure(reason string) {
	m.mu.Lock()
	m.authFailures[reason]++
	m.mu.Unlock()
}

// IncTokenUsage increments the token usage counter for outcome.
func (m *InMemoryRecorder) IncTokenUsage(outcome string) {
	m.mu.Lock()
	m.tokenUsage[outcome]++
	m.mu.Unlock()
}

// SetTokenUsageQueueDepth records the current usage backlog.
func (m *InMemoryRecorder) SetTokenUsageQueueDepth(depth int64) {
	atomic.StoreInt64(&m.usageQueueDepth, depth)
}
