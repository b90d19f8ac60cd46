// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures domain events of the service.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Task list lifecycle
	IncTaskListCreated()
	IncTaskListUpdated()
	IncTaskListDeleted()

	// Task lifecycle
	IncTaskCreated()
	IncTaskUpdated()
	IncTaskDeleted()

	// Sharing
	IncShareGranted()
	IncShareRevoked()

	// IncAccessDenied counts authorization refusals; action is "view",
	// "edit" or "share".
	IncAccessDenied(action string)
	// IncAuthFailure counts rejected logins and bearer tokens; reason is
	// "credentials", "token" or "expired".
	IncAuthFailure(reason string)

	// IncTokenUsage counts token use events by outcome: "published",
	// "dropped", "applied", "dead_lettered" or "failed".
	IncTokenUsage(outcome string)
	// SetTokenUsageQueueDepth reports unprocessed token use events.
	SetTokenUsageQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
