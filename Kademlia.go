/*
File Name:  Kademlia.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package core

import (
	"math/rand"
	"strings"
	"time"

	"github.com/kadmesh/overlay/dht"
	"github.com/kadmesh/overlay/metrics"
)

// randomByte is used by bucket refresh to fill the low-order bytes of a randomized target id.
func randomByte() byte {
	return byte(rand.Intn(256))
}

func (backend *Backend) initKademlia() {
	localID := dht.NodeIdFromUUID(backend.Identity.ID())

	bucketSize := backend.Config.BucketSize
	if bucketSize == 0 {
		bucketSize = dht.DefaultBucketSize
	}

	backend.RoutingTable = dht.NewRoutingTable(localID, bucketSize)
	backend.RoutingTable.Ping = backend.pingPeer
	backend.RoutingTable.OnEvict = func(p *dht.Peer) {
		metrics.BucketEvictions.Inc()
		backend.Filters.BucketEviction(p)
	}

	backend.Engine = dht.NewEngine(backend.RoutingTable)
	backend.Engine.K = bucketSize
	if backend.Config.Alpha > 0 {
		backend.Engine.Alpha = backend.Config.Alpha
	}
	if backend.Config.LookupPerQueryTimeoutMs > 0 {
		backend.Engine.PerQueryTimeout = time.Duration(backend.Config.LookupPerQueryTimeoutMs) * time.Millisecond
	}
	backend.Engine.Send = backend.sendFindNode
	backend.Engine.OnResolved = func(rounds int, outcome dht.LookupStateKind) {
		metrics.LookupOutcomes.WithLabelValues(strings.ToLower(outcome.String())).Inc()
		metrics.LookupRounds.Observe(float64(rounds))
	}
}

// autoBucketRefresh periodically looks up a random id in any under-populated bucket, keeping the
// routing table populated under churn. Ported from the DHT's RefreshBuckets maintenance routine.
func (backend *Backend) autoBucketRefresh() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		for _, idx := range backend.RoutingTable.UnderPopulated(backend.Engine.K) {
			target := backend.RoutingTable.RandomIDInBucket(idx, randomByte)

			backend.Engine.NewLookup(target).
				Recursive(true).
				OnFailure(func() {}).
				OnSuccess(func(*dht.Peer) {}).
				Commit()
		}
	}
}
