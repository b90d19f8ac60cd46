package handler

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/taskshare/taskshare/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "taskshare_task_lists_created_total %d\n", snap.TaskListsCreated)
	writeMetric(w, "taskshare_task_lists_updated_total %d\n", snap.TaskListsUpdated)
	writeMetric(w, "taskshare_task_lists_deleted_total %d\n", snap.TaskListsDeleted)

	writeMetric(w, "taskshare_tasks_created_total %d\n", snap.TasksCreated)
	writeMetric(w, "taskshare_tasks_updated_total %d\n", snap.TasksUpdated)
	writeMetric(w, "taskshare_tasks_deleted_total %d\n", snap.TasksDeleted)

	writeMetric(w, "taskshare_shares_granted_total %d\n", snap.SharesGranted)
	writeMetric(w, "taskshare_shares_revoked_total %d\n", snap.SharesRevoked)

	writeLabeled(w, "taskshare_access_denied_total", "action", snap.AccessDenied)
	writeLabeled(w, "taskshare_auth_failures_total", "reason", snap.AuthFailures)

	writeLabeled(w, "taskshare_token_usage_events_total", "outcome", snap.TokenUsage)
	writeMetric(w, "taskshare_token_usage_queue_depth %d\n", snap.UsageQueueDepth)
}

func writeLabeled(w http.ResponseWriter, name, label string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
