/*
File Name:  Peer.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner
*/

package dht

import (
	"crypto/rsa"
	"time"

	"github.com/kadmesh/overlay/protocol"
)

// Peer is a remote node known to the local routing table.
type Peer struct {
	ID                NodeId
	PublicKey         *rsa.PublicKey
	PublicKeyX509     []byte
	Address           string // empty if not directly reachable
	LastSeen          time.Time
	DirectlyConnected bool

	// Failures counts crypto/decode failures attributed to this peer (spec error taxonomy:
	// CryptoError::BadSignature increments it); it is never reset. Filters.PeerSuspect fires once it
	// reaches a configured threshold; the actual administrative response stays out of scope.
	Failures uint32

	// Verified is set once this peer has proven possession of the private key matching its claimed
	// public key by answering a Challenge (spec 4.3's out-of-band impersonation check).
	Verified bool

	crypto *protocol.PeerCrypto
}

// NewPeer validates an X.509-encoded public key and derives the peer record's identity from it.
func NewPeer(publicKeyX509 []byte, address string) (*Peer, error) {
	pc, err := protocol.NewPeerCrypto(publicKeyX509)
	if err != nil {
		return nil, err
	}
	return &Peer{
		ID:            NodeIdFromUUID(protocol.DeriveNodeID(publicKeyX509)),
		PublicKey:     pc.PublicKey,
		PublicKeyX509: publicKeyX509,
		Address:       address,
		LastSeen:      time.Now(),
		crypto:        pc,
	}, nil
}

// Encrypt seals a short payload to this peer. See protocol.PeerCrypto.Encrypt.
func (p *Peer) Encrypt(plaintext []byte) ([]byte, error) {
	return p.crypto.Encrypt(plaintext)
}

// Verify checks a signature this peer is claimed to have produced.
func (p *Peer) Verify(data, signature []byte) error {
	return p.crypto.Verify(data, signature)
}

// touch refreshes last-seen and, if addr is non-empty, records newly disclosed reachability.
func (p *Peer) touch(addr string) {
	p.LastSeen = time.Now()
	if addr != "" {
		p.Address = addr
		p.DirectlyConnected = true
	}
}

// demote clears reachability after a peer fails to respond to a liveness ping.
func (p *Peer) demote() {
	p.DirectlyConnected = false
	p.Address = ""
}
