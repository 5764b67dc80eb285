package dht

import "testing"

func TestRoutingTableAnnounceBucketsByDistance(t *testing.T) {
	var local NodeId // all-zero
	rt := NewRoutingTable(local, 20)

	p1 := peerWithID(idFromByte(1)) // distance 1
	p2 := peerWithID(idFromByte(2)) // distance 2
	rt.Announce(p1, "addr1")
	rt.Announce(p2, "addr2")

	if got := rt.GetNode(p1.ID); got != p1 {
		t.Fatalf("GetNode(p1) = %v, want %v", got, p1)
	}
	nodesAtD1 := rt.GetNodes(1)
	if len(nodesAtD1) != 1 || nodesAtD1[0] != p1 {
		t.Errorf("GetNodes(1) = %v, want [p1]", nodesAtD1)
	}
	nodesAtD2 := rt.GetNodes(2)
	if len(nodesAtD2) != 1 || nodesAtD2[0] != p2 {
		t.Errorf("GetNodes(2) = %v, want [p2]", nodesAtD2)
	}
	if rt.Count() != 2 {
		t.Errorf("Count() = %d, want 2", rt.Count())
	}
}

func TestRoutingTableRejectsLocalID(t *testing.T) {
	var local NodeId
	rt := NewRoutingTable(local, 20)
	rt.Announce(peerWithID(local), "self")
	if rt.Count() != 0 {
		t.Errorf("Announce(localID) inserted a peer; Count() = %d, want 0", rt.Count())
	}
}

func TestRoutingTableReAnnounceTouchesNotDuplicates(t *testing.T) {
	var local NodeId
	rt := NewRoutingTable(local, 20)
	p1 := peerWithID(idFromByte(1))
	rt.Announce(p1, "addr1")
	rt.Announce(p1, "addr1-new")

	if rt.Count() != 1 {
		t.Fatalf("Count() after re-announce = %d, want 1", rt.Count())
	}
	if p1.Address != "addr1-new" {
		t.Errorf("re-announce did not update address: got %q", p1.Address)
	}
}

// sameBucketPair returns two distinct ids that both land at the given distance from an all-zero local
// id: they share the same highest set bit (which determines the bucket) and differ only below it.
func sameBucketPair() (a, b NodeId) {
	a[15] = 0x80 // highest bit of the last byte set: distance 8 from an all-zero id
	b[15] = 0x81
	return a, b
}

func TestRoutingTableFullBucketPingSurvivesDiscardsCandidate(t *testing.T) {
	// spec §8 scenario 4: bucket full, head answers the liveness ping -> candidate is discarded.
	var local NodeId
	rt := NewRoutingTable(local, 2)
	rt.Ping = func(p *Peer) bool { return true }

	idA, idB := sameBucketPair()
	pa, pb := peerWithID(idA), peerWithID(idB)
	rt.Announce(pa, "a")
	rt.Announce(pb, "b")
	if rt.Count() != 2 {
		t.Fatalf("setup: Count() = %d, want 2", rt.Count())
	}

	candidate := peerWithID(NodeId{15: 0x83})
	rt.Announce(candidate, "c")

	if rt.Count() != 2 {
		t.Fatalf("Count() after full-bucket announce with live head = %d, want 2 (candidate discarded)", rt.Count())
	}
	if rt.GetNode(candidate.ID) != nil {
		t.Error("discarded candidate was inserted into the table")
	}
	if rt.GetNode(pa.ID) == nil {
		t.Error("live head was evicted despite answering the ping")
	}
}

func TestRoutingTableFullBucketPingFailsEvictsHead(t *testing.T) {
	var local NodeId
	rt := NewRoutingTable(local, 1)
	rt.Ping = func(p *Peer) bool { return false }

	var evicted *Peer
	rt.OnEvict = func(p *Peer) { evicted = p }

	idA, idB := sameBucketPair()
	head := peerWithID(idA)
	rt.Announce(head, "head-addr")

	replacement := peerWithID(idB)
	rt.Announce(replacement, "replacement-addr")

	if rt.Count() != 1 {
		t.Fatalf("Count() after eviction = %d, want 1", rt.Count())
	}
	if rt.GetNode(head.ID) != nil {
		t.Error("head was not evicted despite failing the ping")
	}
	if rt.GetNode(replacement.ID) == nil {
		t.Error("replacement was not inserted after evicting the unresponsive head")
	}
	if evicted != head {
		t.Errorf("OnEvict fired with %v, want head %v", evicted, head)
	}
	if head.DirectlyConnected {
		t.Error("evicted head was not demoted")
	}
}

func TestRoutingTableGetClosestNodesOrdersByDistance(t *testing.T) {
	var local NodeId
	rt := NewRoutingTable(local, 20)

	target := NodeId{15: 0x0F}
	near := peerWithID(NodeId{15: 0x0E}) // XOR with target = 0x01 -> distance 1
	mid := peerWithID(NodeId{15: 0x08})  // XOR = 0x07 -> distance 3
	far := peerWithID(NodeId{15: 0xF0})  // XOR = 0xFF -> distance 8
	rt.Announce(far, "far")
	rt.Announce(mid, "mid")
	rt.Announce(near, "near")

	closest := rt.GetClosestNodes(target, 3, 20)
	if len(closest) != 3 {
		t.Fatalf("GetClosestNodes returned %d peers, want 3", len(closest))
	}
	if closest[0] != near || closest[1] != mid || closest[2] != far {
		t.Errorf("GetClosestNodes order = [%v, %v, %v], want [near, mid, far]",
			closest[0].ID, closest[1].ID, closest[2].ID)
	}
}

func TestRoutingTableGetClosestNodesTieBreaksByID(t *testing.T) {
	var local NodeId
	rt := NewRoutingTable(local, 20)

	target := NodeId{}
	// Both ids share the same highest differing bit against target, so both are at equal distance.
	a := peerWithID(NodeId{15: 0x05})
	b := peerWithID(NodeId{15: 0x06})
	rt.Announce(b, "b")
	rt.Announce(a, "a")

	closest := rt.GetClosestNodes(target, 2, 20)
	if len(closest) != 2 {
		t.Fatalf("GetClosestNodes returned %d peers, want 2", len(closest))
	}
	if Distance(closest[0].ID, target) != Distance(closest[1].ID, target) {
		t.Fatalf("test setup: candidates are not equidistant from target")
	}
	if closest[0] != a || closest[1] != b {
		t.Errorf("equidistant candidates not tie-broken by ascending numeric id: got [%v, %v], want [a, b]",
			closest[0].ID, closest[1].ID)
	}
}

func TestRoutingTableNoBucketContainsLocalID(t *testing.T) {
	var local NodeId
	rt := NewRoutingTable(local, 20)
	rt.Announce(peerWithID(local), "self")
	for i, b := range rt.buckets {
		for _, p := range b.snapshot() {
			if p.ID == local {
				t.Fatalf("bucket %d contains the local id", i)
			}
		}
	}
}

func TestRoutingTableUnderPopulated(t *testing.T) {
	var local NodeId
	rt := NewRoutingTable(local, 20)
	rt.Announce(peerWithID(idFromByte(1)), "a")

	under := rt.UnderPopulated(1)
	if len(under) != NumBuckets-1 {
		t.Errorf("UnderPopulated(1) returned %d buckets, want %d (all but the populated one)",
			len(under), NumBuckets-1)
	}
}
