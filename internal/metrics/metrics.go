// Package metrics provides Prometheus metrics for panel commands and the task runner.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coolledctl"

var (
	commandsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "serial",
		Name:      "commands_sent_total",
		Help:      "Commands written to the light source",
	}, []string{"command"})

	writeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "serial",
		Name:      "write_failures_total",
		Help:      "Command writes that failed",
	})

	taskSignals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "task",
		Name:      "signals_total",
		Help:      "Signals emitted by background tasks",
	}, []string{"task", "signal"})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "task",
		Name:      "queue_depth",
		Help:      "Tasks waiting for a worker",
	})

	// Local copy for the JSON status endpoint.
	stats   = Stats{CommandsSent: make(map[string]uint64)}
	statsMu sync.RWMutex
)

// Stats holds current metric values.
type Stats struct {
	CommandsSent  map[string]uint64
	WriteFailures uint64
	TaskFailures  uint64
	QueueDepth    int
}

// RecordCommand counts one successful command write.
func RecordCommand(command string) {
	commandsSent.WithLabelValues(command).Inc()
	statsMu.Lock()
	stats.CommandsSent[command]++
	statsMu.Unlock()
}

// RecordWriteFailure counts one failed command write.
func RecordWriteFailure() {
	writeFailures.Inc()
	statsMu.Lock()
	stats.WriteFailures++
	statsMu.Unlock()
}

// RecordTaskSignal counts a task signal. Error signals also count as task failures.
func RecordTaskSignal(task, signal string) {
	taskSignals.WithLabelValues(task, signal).Inc()
	if signal != "error" {
		return
	}
	statsMu.Lock()
	stats.TaskFailures++
	statsMu.Unlock()
}

// SetQueueDepth records the number of queued tasks.
func SetQueueDepth(depth int) {
	queueDepth.Set(float64(depth))
	statsMu.Lock()
	stats.QueueDepth = depth
	statsMu.Unlock()
}

// Snapshot returns a copy of the current values.
func Snapshot() Stats {
	statsMu.RLock()
	defer statsMu.RUnlock()

	out := stats
	out.CommandsSent = make(map[string]uint64, len(stats.CommandsSent))
	for k, v := range stats.CommandsSent {
		out.CommandsSent[k] = v
	}
	return out
}

// Handler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func Handler() http.Handler {
	return promhttp.Handler()
}
