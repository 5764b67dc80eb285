/*
File Name:  Transport.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

The transport binding itself (UDP sockets, epoll) is out of scope; this file is the seam between an
external transport and the core: Send/Receive hand raw datagram bytes across, and HandleDatagram is the
entry point that frames, decodes, and dispatches them.
*/

package core

import (
	"github.com/google/uuid"
	"github.com/kadmesh/overlay/dht"
	"github.com/kadmesh/overlay/metrics"
	"github.com/kadmesh/overlay/protocol"
)

// Transport is the external collaborator responsible for actually moving bytes. A caller wires its own
// implementation (UDP socket, in-memory test harness, ...) into Backend.Transport before calling Connect.
type Transport interface {
	Send(address string, frame []byte) error
}

// noopTransport is used when the caller hasn't wired one in yet (e.g. routing-table-only unit tests).
type noopTransport struct{}

func (noopTransport) Send(address string, frame []byte) error { return nil }

// HandleDatagram is the receive-path entry point: addr identifies the sender (for address disclosure),
// data is the raw bytes received from the wire. A datagram may contain more than one frame.
func (backend *Backend) HandleDatagram(addr string, data []byte) {
	buf := protocol.WrapBuffer(data)

	for {
		body, ok := protocol.ExtractFrame(buf)
		if !ok {
			return
		}
		backend.handlePacket(addr, protocol.WrapBuffer(body))
	}
}

func (backend *Backend) handlePacket(addr string, body *protocol.Buffer) {
	packet, err := protocol.DecodePacket(backend.Registry, body)
	if err != nil {
		// DecodeError::ShortRead / VarintOverflow / UnknownPacket: drop the frame, don't disconnect.
		backend.Filters.LogError("handlePacket", "decode from %s: %s", addr, err.Error())
		return
	}

	backend.Filters.PacketIn(packet.Kind, dht.NodeId{})

	switch payload := packet.Payload.(type) {
	case protocol.Handshake:
		backend.Filters.LogError("handlePacket", "handshake from %s: version %s, fingerprint %s", addr, payload.ProtocolVersion, payload.Fingerprint)

	case protocol.Announcement:
		backend.handleAnnouncement(addr, payload)

	case protocol.FindNodeRequest:
		backend.handleFindNodeRequest(addr, packet.ID, payload)

	case protocol.FindNodeResponse:
		backend.handleFindNodeResponse(packet.ID, payload)

	case protocol.Broadcast:
		backend.handleBroadcast(packet.ID, packet.TTL, payload)

	case protocol.Challenge:
		backend.handleChallenge(addr, packet.ID, payload)

	case protocol.ChallengeResponse:
		backend.handleChallengeResponse(packet.ID, payload)
	}
}

func (backend *Backend) handleAnnouncement(addr string, a protocol.Announcement) {
	peer, err := dht.NewPeer(a.PublicKeyX509, addr)
	if err != nil {
		// DecodeError::MalformedKey: drop the frame, mark peer suspect is moot (we have no prior record).
		backend.Filters.LogError("handleAnnouncement", "from %s: %s", addr, err.Error())
		return
	}
	if backend.RoutingTable.GetNode(peer.ID) != nil {
		// Already known: Announce refreshes the existing record, which keeps its Verified state.
		backend.RoutingTable.Announce(peer, addr)
		return
	}
	backend.RoutingTable.Announce(peer, addr)
	if backend.RoutingTable.GetNode(peer.ID) != peer {
		return // discarded by the full-bucket replacement policy
	}
	backend.Filters.NewPeer(peer)
	go backend.ChallengePeer(peer)
}

func (backend *Backend) handleFindNodeRequest(addr string, lookupID uuid.UUID, req protocol.FindNodeRequest) {
	target := dht.NodeId(req.Target)
	closest := backend.RoutingTable.GetClosestNodes(target, backend.Engine.K, backend.Engine.Alpha*backend.Engine.K)

	resp := protocol.FindNodeResponse{Peers: make([]protocol.PeerInfo, 0, len(closest))}
	for _, p := range closest {
		resp.Peers = append(resp.Peers, protocol.PeerInfo{
			ID:            uuid.UUID(p.ID),
			PublicKeyX509: p.PublicKeyX509,
			Address:       p.Address,
		})
	}

	payload, err := protocol.EncodeFindNodeResponse(resp)
	if err != nil {
		backend.Filters.LogError("handleFindNodeRequest", "encode response: %s", err.Error())
		return
	}

	backend.sendPacket(addr, protocol.KindFindNodeResp, lookupID, payload)
}

func (backend *Backend) handleFindNodeResponse(lookupID uuid.UUID, resp protocol.FindNodeResponse) {
	peers := make([]*dht.Peer, 0, len(resp.Peers))
	for _, info := range resp.Peers {
		p, err := dht.NewPeer(info.PublicKeyX509, info.Address)
		if err != nil {
			continue
		}
		if uuid.UUID(p.ID) != info.ID {
			continue // claimed id doesn't match the key that supposedly produced it
		}
		peers = append(peers, p)
	}

	var from dht.NodeId
	backend.Engine.HandleResponse(lookupID, from, peers)
}

// sendFindNode is wired into dht.Engine.Send: it serializes and transmits a FindNode request.
func (backend *Backend) sendFindNode(peer *dht.Peer, target dht.NodeId, lookupID uuid.UUID) {
	payload, err := protocol.EncodeFindNodeRequest(protocol.FindNodeRequest{Target: uuid.UUID(target)})
	if err != nil {
		backend.Filters.LogError("sendFindNode", "encode: %s", err.Error())
		return
	}
	backend.sendPacket(peer.Address, protocol.KindFindNodeReq, lookupID, payload)
}

// sendPacket frames and transmits a single packet over the configured Transport.
func (backend *Backend) sendPacket(addr, kind string, id uuid.UUID, payload []byte) {
	if addr == "" {
		return
	}
	body, err := protocol.EncodePacket(kind, id, protocol.DefaultBroadcastTTL, payload)
	if err != nil {
		backend.Filters.LogError("sendPacket", "encode %s: %s", kind, err.Error())
		return
	}
	frame := protocol.EncodeFrame(body.Bytes())
	if err := backend.Transport.Send(addr, frame); err != nil {
		backend.Filters.LogError("sendPacket", "send %s to %s: %s", kind, addr, err.Error())
	}
}

// pingPeer is wired into dht.RoutingTable.Ping: it attempts to confirm liveness of a candidate-for-
// eviction peer. Without a real transport round trip wired up, the routing table treats a peer with no
// known address as unreachable; callers with a live transport should override this via Backend.PingFunc.
func (backend *Backend) pingPeer(peer *dht.Peer) bool {
	if backend.PingFunc != nil {
		return backend.PingFunc(peer)
	}
	return peer.Address != ""
}

// recordFailure attributes a crypto/decode failure to peer and fires PeerSuspect once the configured
// threshold is crossed.
func (backend *Backend) recordFailure(peer *dht.Peer, kind string) {
	metrics.PeerFailures.WithLabelValues(kind).Inc()
	peer.Failures++
	threshold := backend.Config.PeerFailureThreshold
	if threshold > 0 && peer.Failures == threshold {
		metrics.PeerSuspectEvents.Inc()
		backend.Filters.PeerSuspect(peer)
	}
}
