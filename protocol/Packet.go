/*
File Name:  Packet.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Frame codec and packet codec (C2). Framing is length-delimited: varint(payload length) + payload. The
packet codec sits above it: identifier string, packet UUID, an optional broadcast TTL, then the
kind-specific payload.
*/

package protocol

import (
	"github.com/google/uuid"
)

// DefaultBroadcastTTL is the TTL a freshly constructed broadcast packet carries.
const DefaultBroadcastTTL = 8

// MaxAcceptedTTL clamps an inbound broadcast TTL so a malicious or buggy sender cannot make a packet
// propagate further than the network intends.
const MaxAcceptedTTL = 8

// Packet is the decoded envelope common to every wire message: its kind, its deduplication/correlation
// id, and the kind-specific payload the registry already decoded.
type Packet struct {
	Kind    string
	ID      uuid.UUID
	TTL     uint16 // meaningful only when IsBroadcastKind(Kind)
	Payload interface{}
}

// EncodePacket writes the common envelope and the caller-supplied encoded payload into a single frame
// body: string(identifier) || uuid || [short(ttl) if broadcast] || payload.
func EncodePacket(kind string, id uuid.UUID, ttl uint16, payload []byte) (*Buffer, error) {
	buf := NewBuffer(16 + len(payload))
	if err := WriteString(buf, kind); err != nil {
		return nil, err
	}
	if err := WriteUUID(buf, id); err != nil {
		return nil, err
	}
	if IsBroadcastKind(kind) {
		if err := WriteShort(buf, ttl); err != nil {
			return nil, err
		}
	}
	if _, err := buf.Write(payload); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodePacket reads the common envelope from buf, looks the kind up in registry, and delegates the
// payload tail to the registered decoder. Per the error taxonomy, an unregistered kind surfaces
// ErrUnknownPacket: the caller drops the frame without treating it as a protocol violation.
func DecodePacket(registry *Registry, buf *Buffer) (*Packet, error) {
	kind, err := ReadString(buf)
	if err != nil {
		return nil, err
	}

	decode, err := registry.Lookup(kind)
	if err != nil {
		return nil, err
	}

	id, err := ReadUUID(buf)
	if err != nil {
		return nil, err
	}

	var ttl uint16
	if IsBroadcastKind(kind) {
		ttl, err = ReadShort(buf)
		if err != nil {
			return nil, err
		}
		if ttl > MaxAcceptedTTL {
			ttl = MaxAcceptedTTL
		}
	}

	var idArr [16]byte
	copy(idArr[:], id[:])

	payload, err := decode(idArr, ttl, buf)
	if err != nil {
		return nil, err
	}

	return &Packet{Kind: kind, ID: id, TTL: ttl, Payload: payload}, nil
}

// EncodeFrame prefixes body with its varint length, producing a complete frame ready to send.
func EncodeFrame(body []byte) []byte {
	out := PutUvarint(make([]byte, 0, MaxVarintLen64+len(body)), uint64(len(body)))
	return append(out, body...)
}

// ExtractFrame attempts to pull one complete frame off the head of buf without blocking for more data.
// It returns the frame's payload and true if a full frame was available; otherwise ok is false and buf
// is left untouched (the reader index is preserved) so more bytes can be appended and extraction retried.
func ExtractFrame(buf *Buffer) (payload []byte, ok bool) {
	buf.MarkReader()

	lenFieldSize := PeekVarintLen(buf.Bytes(), MaxVarintLen64)
	if lenFieldSize == 0 {
		buf.ResetReader()
		return nil, false
	}

	length, _, err := Uvarint(buf.Bytes(), MaxVarintLen64)
	if err != nil {
		buf.ResetReader()
		return nil, false
	}

	lenPrefix := make([]byte, lenFieldSize)
	if _, err := buf.Read(lenPrefix); err != nil {
		buf.ResetReader()
		return nil, false
	}

	if uint64(buf.Len()) < length {
		buf.ResetReader()
		return nil, false
	}

	out := make([]byte, length)
	if _, err := buf.Read(out); err != nil {
		buf.ResetReader()
		return nil, false
	}

	return out, true
}
