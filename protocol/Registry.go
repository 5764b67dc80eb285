/*
File Name:  Registry.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

The packet registry maps a wire identifier string to a decoder factory. It replaces the reflective,
constructor-based decoding of the original implementation with an explicit table built once at startup:
registration is the single point of validation, decode is a direct map lookup.
*/

package protocol

import "fmt"

// Decoder builds a concrete packet from its framed body. id is the packet's UUID (already consumed from
// the body by the caller); ttl is non-zero-valued only when the kind IsBroadcastKind; buf holds the
// remaining kind-specific payload.
type Decoder func(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error)

// registration is the validated, immutable entry stored in a Registry.
type registration struct {
	kind   string
	decode Decoder
}

// Registry maps packet kind identifiers to decoder factories. It is safe for concurrent reads; it is
// never mutated after Builder.Build() returns it - a new Registry replaces the old one.
type Registry struct {
	byKind map[string]registration
}

// ErrUnknownPacket is returned by Lookup when no kind is registered under the given identifier. Per the
// error taxonomy this is a DecodeError::UnknownPacket: drop the frame, do not disconnect.
var ErrUnknownPacket = fmt.Errorf("protocol: unknown packet kind")

// Lookup returns the decoder registered for kind, or ErrUnknownPacket.
func (r *Registry) Lookup(kind string) (Decoder, error) {
	if r == nil {
		return nil, ErrUnknownPacket
	}
	reg, ok := r.byKind[kind]
	if !ok {
		return nil, ErrUnknownPacket
	}
	return reg.decode, nil
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind string) bool {
	if r == nil {
		return false
	}
	_, ok := r.byKind[kind]
	return ok
}

// Builder accumulates registrations before producing an immutable Registry. A Builder is not safe for
// concurrent use; build the full registry during startup from a single goroutine.
type Builder struct {
	entries map[string]registration
	err     error
}

// NewBuilder starts an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]registration)}
}

// Register adds kind with its decoder. Chainable; the first error encountered is sticky and surfaces
// from Build().
func (b *Builder) Register(kind string, decode Decoder) *Builder {
	if b.err != nil {
		return b
	}
	if decode == nil {
		b.err = fmt.Errorf("protocol: kind %q registered with nil decoder", kind)
		return b
	}
	if _, exists := b.entries[kind]; exists {
		b.err = fmt.Errorf("protocol: kind %q already registered", kind)
		return b
	}
	b.entries[kind] = registration{kind: kind, decode: decode}
	return b
}

// Build validates and produces the immutable Registry, or returns the first registration error.
func (b *Builder) Build() (*Registry, error) {
	if b.err != nil {
		return nil, b.err
	}
	out := make(map[string]registration, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return &Registry{byKind: out}, nil
}
