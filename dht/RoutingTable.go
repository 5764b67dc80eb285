/*
File Name:  RoutingTable.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

RoutingTable holds the 128 k-buckets and the id index used for O(1) direct lookup. Each bucket has its
own lock (kBucket.mutex); a table-level lock guards only the id→bucket index, so concurrent announces to
distinct buckets don't contend. The layout and the announce/evict policy are adapted from hashTable in
the original implementation; get_closest_nodes is adapted from hashTable.getClosestContacts.
*/

package dht

import (
	"sort"
	"sync"
	"time"
)

// NumBuckets is the number of distance values a 128-bit id space admits: [1, 128].
const NumBuckets = 128

// PingFunc attempts to contact a peer and reports whether it is still alive. It is supplied by the
// caller (the transport/glue layer); the routing table never dials a socket itself.
type PingFunc func(p *Peer) (alive bool)

// RoutingTable is the local node's view of the network, organized by XOR distance.
type RoutingTable struct {
	localID NodeId
	buckets [NumBuckets]*kBucket

	indexMutex sync.RWMutex
	index      map[NodeId]int // peer id -> bucket index, for O(1) GetNode

	// Ping is used during bucket eviction to decide whether the least-recently-seen peer is still
	// alive. Must be set before Announce is called with a full bucket.
	Ping PingFunc

	// OnEvict, if set, is called whenever a peer is evicted from a bucket (replaced by a newer one
	// after failing its liveness ping).
	OnEvict func(p *Peer)
}

// NewRoutingTable creates an empty routing table for the given local identity.
func NewRoutingTable(localID NodeId, bucketSize int) *RoutingTable {
	if bucketSize <= 0 {
		bucketSize = DefaultBucketSize
	}
	rt := &RoutingTable{
		localID: localID,
		index:   make(map[NodeId]int),
	}
	for i := range rt.buckets {
		rt.buckets[i] = newKBucket(bucketSize)
	}
	return rt
}

// LocalID returns the id this table is organized around.
func (rt *RoutingTable) LocalID() NodeId { return rt.localID }

// Announce records an observation of peer: a fresh sighting (announcement, lookup response, or inbound
// packet). addr, if non-empty, is a newly disclosed reachable address.
func (rt *RoutingTable) Announce(peer *Peer, addr string) {
	if peer.ID == rt.localID {
		return
	}

	d := Distance(rt.localID, peer.ID)
	idx := bucketIndex(d)
	bucket := rt.buckets[idx]

	bucket.mutex.Lock()
	if existing := bucket.findLocked(peer.ID); existing != nil {
		bucket.touchLocked(existing, addr)
		bucket.mutex.Unlock()
		return
	}

	if len(bucket.peers) < bucket.size {
		peer.touch(addr)
		bucket.peers = append(bucket.peers, peer)
		bucket.mutex.Unlock()
		rt.indexMutex.Lock()
		rt.index[peer.ID] = idx
		rt.indexMutex.Unlock()
		return
	}

	head := bucket.peers[0]
	bucket.mutex.Unlock()

	// BucketError::Full: ping the head outside the bucket lock (it may block on network I/O).
	if rt.Ping != nil && rt.Ping(head) {
		bucket.mutex.Lock()
		bucket.promoteHeadLocked()
		bucket.mutex.Unlock()
		return
	}

	peer.touch(addr)
	bucket.mutex.Lock()
	bucket.evictHeadLocked(peer)
	bucket.mutex.Unlock()

	rt.indexMutex.Lock()
	delete(rt.index, head.ID)
	rt.index[peer.ID] = idx
	rt.indexMutex.Unlock()

	head.demote()
	if rt.OnEvict != nil {
		rt.OnEvict(head)
	}
}

// GetNode performs an O(1) direct lookup by id across all buckets.
func (rt *RoutingTable) GetNode(id NodeId) *Peer {
	rt.indexMutex.RLock()
	idx, ok := rt.index[id]
	rt.indexMutex.RUnlock()
	if !ok {
		return nil
	}
	return rt.buckets[idx].find(id)
}

// GetNodes returns the peers at exactly the given distance, least-recently-seen first.
func (rt *RoutingTable) GetNodes(distance int) []*Peer {
	if distance < 1 || distance > NumBuckets {
		return nil
	}
	return rt.buckets[bucketIndex(distance)].snapshot()
}

// GetClosestNodes gathers peers from buckets near Distance(local, target), walking outward until it has
// at least alphaK candidates or has exhausted every bucket, then returns the k closest to target.
func (rt *RoutingTable) GetClosestNodes(target NodeId, k, alphaK int) []*Peer {
	centerDist := Distance(rt.localID, target)
	centerIdx := bucketIndex(centerDist)

	order := make([]int, 0, NumBuckets)
	order = append(order, centerIdx)
	for i, j := centerIdx-1, centerIdx+1; len(order) < NumBuckets; i, j = i-1, j+1 {
		added := false
		if j < NumBuckets {
			order = append(order, j)
			added = true
		}
		if i >= 0 {
			order = append(order, i)
			added = true
		}
		if !added {
			break
		}
	}

	candidates := make([]*Peer, 0, alphaK)
	for _, idx := range order {
		for _, p := range rt.buckets[idx].snapshot() {
			candidates = append(candidates, p)
			if len(candidates) >= alphaK {
				break
			}
		}
		if len(candidates) >= alphaK {
			break
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		di := Distance(candidates[i].ID, target)
		dj := Distance(candidates[j].ID, target)
		if di != dj {
			return di < dj
		}
		return less(candidates[i].ID, candidates[j].ID)
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// less provides the numeric-id tie-break the lookup engine and GetClosestNodes use when two candidates
// are equidistant.
func less(a, b NodeId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Count returns the total number of peers across all buckets.
func (rt *RoutingTable) Count() int {
	total := 0
	for _, b := range rt.buckets {
		total += b.len()
	}
	return total
}

// RandomIDInBucket returns an id that would land in the given bucket index (0-based), used by bucket
// refresh to seed a lookup when a bucket is under-populated. Ported from getRandomIDFromBucket.
func (rt *RoutingTable) RandomIDInBucket(idx int, randByte func() byte) NodeId {
	var id NodeId
	distance := idx + 1
	byteIndex := (128 - distance) / 8
	bitInByte := (128 - distance) % 8

	copy(id[:byteIndex], rt.localID[:byteIndex])

	var b byte
	for i := uint(0); i < 8; i++ {
		var bit bool
		if int(i) < bitInByte {
			bit = hasBit(rt.localID[byteIndex], i)
		} else if int(i) == bitInByte {
			bit = !hasBit(rt.localID[byteIndex], i)
		} else {
			bit = randByte()&1 == 1
		}
		if bit {
			b |= 1 << (7 - i)
		}
	}
	id[byteIndex] = b

	for i := byteIndex + 1; i < len(id); i++ {
		id[i] = randByte()
	}
	return id
}

// AllPeers returns every peer across all buckets.
func (rt *RoutingTable) AllPeers() []*Peer {
	var out []*Peer
	for _, b := range rt.buckets {
		out = append(out, b.snapshot()...)
	}
	return out
}

// LastSeenBefore returns every peer across all buckets not seen since cutoff.
func (rt *RoutingTable) LastSeenBefore(cutoff time.Time) []*Peer {
	var out []*Peer
	for _, b := range rt.buckets {
		for _, p := range b.snapshot() {
			if p.LastSeen.Before(cutoff) {
				out = append(out, p)
			}
		}
	}
	return out
}

// UnderPopulated reports the index of every bucket holding fewer than target peers (a target of 0 or
// less reports no bucket).
func (rt *RoutingTable) UnderPopulated(target int) []int {
	var out []int
	for i, b := range rt.buckets {
		if b.len() < target {
			out = append(out, i)
		}
	}
	return out
}
