// Package metrics collects Prometheus metrics for groups and uploads.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services
type Recorder interface {
	RecordGroupCreated()
	RecordJoinCodeCollision()
	RecordJoinAttempt(result string)
	RecordUploadOutcome(state string)
	RecordOrphanedObject()
}

// Collector records metrics into a Prometheus registry
type Collector struct {
	groupsCreated   prometheus.Counter
	codeCollisions  prometheus.Counter
	joinAttempts    *prometheus.CounterVec
	uploadOutcomes  *prometheus.CounterVec
	orphanedObjects prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		groupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groupsnap_groups_created_total",
			Help: "Number of groups created",
		}),
		codeCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groupsnap_join_code_collisions_total",
			Help: "Generated join codes rejected because they were already taken",
		}),
		joinAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupsnap_join_attempts_total",
			Help: "Join attempts by result",
		}, []string{"result"}),
		uploadOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "groupsnap_upload_outcomes_total",
			Help: "Upload attempts by terminal state",
		}, []string{"state"}),
		orphanedObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "groupsnap_orphaned_objects_total",
			Help: "Stored objects left without metadata after a failed cleanup",
		}),
	}

	reg.MustRegister(
		c.groupsCreated,
		c.codeCollisions,
		c.joinAttempts,
		c.uploadOutcomes,
		c.orphanedObjects,
	)

	return c
}

func (c *Collector) RecordGroupCreated() {
	c.groupsCreated.Inc()
}

func (c *Collector) RecordJoinCodeCollision() {
	c.codeCollisions.Inc()
}

// RecordJoinAttempt counts a join attempt; result is "joined" or an error code
func (c *Collector) RecordJoinAttempt(result string) {
	c.joinAttempts.WithLabelValues(result).Inc()
}

func (c *Collector) RecordUploadOutcome(state string) {
	c.uploadOutcomes.WithLabelValues(state).Inc()
}

func (c *Collector) RecordOrphanedObject() {
	c.orphanedObjects.Inc()
}

// Handler serves the metrics in gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
