// Package metrics defines the Prometheus collectors for the glue layer: peer failure counters, lookup
// outcomes, and bucket evictions. Counters are registered at package scope via promauto, the same
// pattern the netlink polling pipeline uses for its own collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PeerFailures counts crypto/decode failures attributed to a peer, labeled by the error taxonomy
	// kind (bad_signature, decrypt_failure, malformed_key).
	PeerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_peer_failures_total",
			Help: "count of crypto/decode failures attributed to a peer, by kind",
		},
		[]string{"kind"})

	// PeerSuspectEvents counts peers crossing the failure threshold and being marked suspect.
	PeerSuspectEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_peer_suspect_total",
			Help: "count of peers marked suspect after repeated failures",
		})

	// LookupOutcomes counts completed lookups by terminal state (fulfilled, expired).
	LookupOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overlay_lookup_outcomes_total",
			Help: "count of lookups reaching a terminal state, by outcome",
		},
		[]string{"outcome"})

	// LookupRounds tracks how many rounds a lookup needed before resolving.
	LookupRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "overlay_lookup_rounds",
			Help:    "rounds performed by a lookup before it resolved",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		})

	// BucketEvictions counts peers evicted from a k-bucket after failing a liveness ping.
	BucketEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "overlay_bucket_evictions_total",
			Help: "count of peers evicted from a k-bucket after failing a liveness ping",
		})
)
