/*
File Name:  Packets.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

The packet kinds exchanged between peers: Handshake and Announcement (first contact), FindNode
request/response (the wire side of the iterative lookup engine), and the Broadcast envelope (TTL-limited
fan-out of an arbitrary inner packet).
*/

package protocol

import (
	"github.com/google/uuid"
)

// Handshake is the first packet exchanged on contact: protocol version plus a display fingerprint of the
// sender's public key. The full key follows separately in an Announcement.
type Handshake struct {
	ProtocolVersion Version
	Fingerprint     string
}

// EncodeHandshake serializes a Handshake payload.
func EncodeHandshake(h Handshake) ([]byte, error) {
	buf := NewBuffer(16)
	if err := h.ProtocolVersion.WriteTo(buf); err != nil {
		return nil, err
	}
	if err := WriteString(buf, h.Fingerprint); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeHandshake is the Decoder registered under KindHandshake.
func DecodeHandshake(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
	var h Handshake
	if err := h.ProtocolVersion.ReadFrom(buf); err != nil {
		return nil, err
	}
	fp, err := ReadString(buf)
	if err != nil {
		return nil, err
	}
	h.Fingerprint = fp
	return h, nil
}

// Announcement conveys the sender's full public key, from which the receiver derives and verifies the
// sender's claimed node id.
type Announcement struct {
	ProtocolVersion Version
	PublicKeyX509   []byte
}

// EncodeAnnouncement serializes an Announcement payload.
func EncodeAnnouncement(a Announcement) ([]byte, error) {
	buf := NewBuffer(16 + len(a.PublicKeyX509))
	if err := a.ProtocolVersion.WriteTo(buf); err != nil {
		return nil, err
	}
	if err := WritePublicKey(buf, a.PublicKeyX509); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeAnnouncement is the Decoder registered under KindAnnouncement.
func DecodeAnnouncement(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
	var a Announcement
	if err := a.ProtocolVersion.ReadFrom(buf); err != nil {
		return nil, err
	}
	key, err := ReadPublicKey(buf)
	if err != nil {
		return nil, err
	}
	a.PublicKeyX509 = key
	return a, nil
}

// FindNodeRequest asks the receiver for the peers it knows closest to Target. The packet's own UUID
// (the envelope id) doubles as the LookupId used to correlate the eventual response.
type FindNodeRequest struct {
	Target uuid.UUID
}

// EncodeFindNodeRequest serializes a FindNodeRequest payload.
func EncodeFindNodeRequest(r FindNodeRequest) ([]byte, error) {
	buf := NewBuffer(16)
	if err := WriteUUID(buf, r.Target); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeFindNodeRequest is the Decoder registered under KindFindNodeReq.
func DecodeFindNodeRequest(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
	target, err := ReadUUID(buf)
	if err != nil {
		return nil, err
	}
	return FindNodeRequest{Target: target}, nil
}

// PeerInfo is the wire representation of a single peer returned in a FindNodeResponse: just enough to
// reach and identify it, not the full Peer bookkeeping record kept in the routing table.
type PeerInfo struct {
	ID            uuid.UUID
	PublicKeyX509 []byte
	Address       string // empty if the responder doesn't know a reachable address
}

// FindNodeResponse carries up to k peers the responder believes are closest to the requested target.
type FindNodeResponse struct {
	Peers []PeerInfo
}

// EncodeFindNodeResponse serializes a FindNodeResponse payload.
func EncodeFindNodeResponse(r FindNodeResponse) ([]byte, error) {
	buf := NewBuffer(64 * (len(r.Peers) + 1))
	if err := WriteUint64(buf, uint64(len(r.Peers))); err != nil {
		return nil, err
	}
	for _, p := range r.Peers {
		if err := WriteUUID(buf, p.ID); err != nil {
			return nil, err
		}
		if err := WritePublicKey(buf, p.PublicKeyX509); err != nil {
			return nil, err
		}
		if err := WriteString(buf, p.Address); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeFindNodeResponse is the Decoder registered under KindFindNodeResp.
func DecodeFindNodeResponse(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
	count, err := ReadUint64(buf)
	if err != nil {
		return nil, err
	}
	if count > MaxByteArrayLen {
		return nil, ErrByteArrayTooLong
	}
	peers := make([]PeerInfo, 0, count)
	for i := uint64(0); i < count; i++ {
		pid, err := ReadUUID(buf)
		if err != nil {
			return nil, err
		}
		key, err := ReadPublicKey(buf)
		if err != nil {
			return nil, err
		}
		addr, err := ReadString(buf)
		if err != nil {
			return nil, err
		}
		peers = append(peers, PeerInfo{ID: pid, PublicKeyX509: key, Address: addr})
	}
	return FindNodeResponse{Peers: peers}, nil
}

// Broadcast wraps an arbitrary inner packet kind for TTL-limited fan-out. The envelope TTL (read
// generically by DecodePacket because KindBroadcast.IsBroadcastKind) governs how many more hops the
// packet may travel.
type Broadcast struct {
	InnerKind    string
	InnerPayload []byte
}

// EncodeBroadcast serializes a Broadcast payload.
func EncodeBroadcast(b Broadcast) ([]byte, error) {
	buf := NewBuffer(16 + len(b.InnerPayload))
	if err := WriteString(buf, b.InnerKind); err != nil {
		return nil, err
	}
	if err := WriteByteArray(buf, b.InnerPayload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBroadcast is the Decoder registered under KindBroadcast.
func DecodeBroadcast(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
	kind, err := ReadString(buf)
	if err != nil {
		return nil, err
	}
	payload, err := ReadByteArray(buf)
	if err != nil {
		return nil, err
	}
	return Broadcast{InnerKind: kind, InnerPayload: payload}, nil
}

// Challenge seals a nonce to the claimed owner of a public key, per spec's out-of-band impersonation
// check: only the holder of the matching private key can decrypt Nonce and sign it back.
type Challenge struct {
	Nonce []byte // ciphertext, sealed to the claimed peer's public key
}

// EncodeChallenge serializes a Challenge payload.
func EncodeChallenge(c Challenge) ([]byte, error) {
	buf := NewBuffer(16 + len(c.Nonce))
	if err := WriteByteArray(buf, c.Nonce); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeChallenge is the Decoder registered under KindChallenge.
func DecodeChallenge(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
	nonce, err := ReadByteArray(buf)
	if err != nil {
		return nil, err
	}
	return Challenge{Nonce: nonce}, nil
}

// ChallengeResponse proves possession of the private key matching a Challenge: the decrypted nonce, and
// a signature over it produced with the same key.
type ChallengeResponse struct {
	Nonce     []byte
	Signature []byte
}

// EncodeChallengeResponse serializes a ChallengeResponse payload.
func EncodeChallengeResponse(r ChallengeResponse) ([]byte, error) {
	buf := NewBuffer(16 + len(r.Nonce) + len(r.Signature))
	if err := WriteByteArray(buf, r.Nonce); err != nil {
		return nil, err
	}
	if err := WriteByteArray(buf, r.Signature); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeChallengeResponse is the Decoder registered under KindChallengeResp.
func DecodeChallengeResponse(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
	nonce, err := ReadByteArray(buf)
	if err != nil {
		return nil, err
	}
	sig, err := ReadByteArray(buf)
	if err != nil {
		return nil, err
	}
	return ChallengeResponse{Nonce: nonce, Signature: sig}, nil
}

// DecodePing and DecodePong decode the empty-payload keep-alive packets.
func DecodePing(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error)  { return struct{}{}, nil }
func DecodePong(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error)  { return struct{}{}, nil }

// DefaultRegistry builds the registry every interoperating node must agree on for the handshake-related
// kinds; callers may extend it with additional application-specific kinds before first use.
func DefaultRegistry() (*Registry, error) {
	return NewBuilder().
		Register(KindHandshake, DecodeHandshake).
		Register(KindAnnouncement, DecodeAnnouncement).
		Register(KindPing, DecodePing).
		Register(KindPong, DecodePong).
		Register(KindFindNodeReq, DecodeFindNodeRequest).
		Register(KindFindNodeResp, DecodeFindNodeResponse).
		Register(KindBroadcast, DecodeBroadcast).
		Register(KindChallenge, DecodeChallenge).
		Register(KindChallengeResp, DecodeChallengeResponse).
		Build()
}
