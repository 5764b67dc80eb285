/*
File Name:  Broadcast.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Broadcast fan-out: TTL decrement plus a bounded LRU of recently seen packet UUIDs to suppress
re-delivery loops, per the open broadcast de-duplication question this design resolves explicitly.
*/

package core

import (
	"github.com/google/uuid"
	"github.com/kadmesh/overlay/protocol"
)

// Broadcast originates a new broadcast packet wrapping an inner kind/payload and fans it out to every
// directly connected peer with the default TTL.
func (backend *Backend) Broadcast(innerKind string, innerPayload []byte) {
	id := uuid.New()
	backend.broadcastSeen.Add(id, struct{}{})

	payload, err := protocol.EncodeBroadcast(protocol.Broadcast{InnerKind: innerKind, InnerPayload: innerPayload})
	if err != nil {
		backend.Filters.LogError("Broadcast", "encode: %s", err.Error())
		return
	}

	backend.fanOut(id, protocol.DefaultBroadcastTTL, payload)
}

// handleBroadcast processes an inbound broadcast: deduplicates by packet id, decrements TTL, and
// forwards to other directly connected peers if the TTL budget allows it.
func (backend *Backend) handleBroadcast(id uuid.UUID, ttl uint16, b protocol.Broadcast) {
	if _, seen := backend.broadcastSeen.Get(id); seen {
		return
	}
	backend.broadcastSeen.Add(id, struct{}{})

	if ttl == 0 {
		return
	}
	ttl--
	if ttl == 0 {
		return
	}

	payload, err := protocol.EncodeBroadcast(b)
	if err != nil {
		backend.Filters.LogError("handleBroadcast", "re-encode: %s", err.Error())
		return
	}
	backend.fanOut(id, ttl, payload)
}

func (backend *Backend) fanOut(id uuid.UUID, ttl uint16, payload []byte) {
	body, err := protocol.EncodePacket(protocol.KindBroadcast, id, ttl, payload)
	if err != nil {
		backend.Filters.LogError("fanOut", "encode: %s", err.Error())
		return
	}
	frame := protocol.EncodeFrame(body.Bytes())

	for _, p := range backend.RoutingTable.AllPeers() {
		if !p.DirectlyConnected || p.Address == "" {
			continue
		}
		if err := backend.Transport.Send(p.Address, frame); err != nil {
			backend.Filters.LogError("fanOut", "send to %s: %s", p.Address, err.Error())
		}
	}
}
