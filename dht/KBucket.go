/*
File Name:  KBucket.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

A k-bucket is an ordered list of at most k peers at a fixed distance, least-recently-seen at the head.
The replacement policy (ping the head on a full bucket, evict only if it doesn't answer) favors
long-lived peers and is adapted from the insertNode/markNodeAsSeen pair in the original hash table.
*/

package dht

import "sync"

// DefaultBucketSize is k, the bucket capacity and replication parameter.
const DefaultBucketSize = 20

// kBucket holds peers at one distance value, ordered least-recently-seen first (index 0) to
// most-recently-seen last.
type kBucket struct {
	mutex sync.Mutex
	size  int
	peers []*Peer
}

func newKBucket(size int) *kBucket {
	return &kBucket{size: size}
}

// find returns the peer with the given id, or nil.
func (b *kBucket) find(id NodeId) *Peer {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.findLocked(id)
}

func (b *kBucket) findLocked(id NodeId) *Peer {
	for _, p := range b.peers {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// touchLocked moves an existing peer to the tail (most-recently-seen), updating liveness/address.
func (b *kBucket) touchLocked(p *Peer, addr string) {
	for i, existing := range b.peers {
		if existing.ID == p.ID {
			b.peers = append(b.peers[:i], b.peers[i+1:]...)
			break
		}
	}
	p.touch(addr)
	b.peers = append(b.peers, p)
}

// head returns the least-recently-seen peer, or nil if the bucket is empty.
func (b *kBucket) head() *Peer {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if len(b.peers) == 0 {
		return nil
	}
	return b.peers[0]
}

// evictHeadLocked removes the head (the caller has already established it failed to respond to a ping)
// and appends replacement at the tail.
func (b *kBucket) evictHeadLocked(replacement *Peer) {
	if len(b.peers) > 0 {
		b.peers = b.peers[1:]
	}
	b.peers = append(b.peers, replacement)
}

// promoteHeadLocked moves the head to the tail (it responded to the ping) and discards the candidate.
func (b *kBucket) promoteHeadLocked() {
	if len(b.peers) == 0 {
		return
	}
	head := b.peers[0]
	b.peers = append(b.peers[1:], head)
}

func (b *kBucket) len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.peers)
}

// snapshot returns a copy of the bucket's peers, safe for the caller to read without further locking.
func (b *kBucket) snapshot() []*Peer {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	out := make([]*Peer, len(b.peers))
	copy(out, b.peers)
	return out
}

// removeLocked drops a peer by id, e.g. after it is replaced during eviction ping handling elsewhere.
func (b *kBucket) removeLocked(id NodeId) {
	for i, p := range b.peers {
		if p.ID == id {
			b.peers = append(b.peers[:i], b.peers[i+1:]...)
			return
		}
	}
}
