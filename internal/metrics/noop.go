package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncTaskListCreated()    {}
func (n *NoopRecorder) IncTaskListUpdated()    {}
func (n *NoopRecorder) IncTaskListDeleted()    {}
func (n *NoopRecorder) IncTaskCreated()        {}
func (n *NoopRecorder) IncTaskUpdated()        {}
func (n *NoopRecorder) IncTaskDeleted()        {}
func (n *NoopRecorder) IncShareGranted()       {}
func (n *NoopRecorder) IncShareRevoked()       {}
func (n *NoopRecorder) IncAccessDenied(string) {}
func (n *NoopRecorder) IncAuthFailure(string)  {}

func (n *NoopRecorder) IncTokenUsage(string)          {}
func (n *NoopRecorder) SetTokenUsageQueueDepth(int64) {}
