/*
File Name:  Challenge.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

The out-of-band impersonation check spec 4.3 calls for: a node id is only a hash of a claimed public
key, so a freshly announced peer is challenged to prove it holds the matching private key before it is
trusted any further than "known". This exercises the full asymmetric envelope: Encrypt/Decrypt seal the
nonce, Sign/Verify prove possession of it.
*/

package core

import (
	"bytes"
	"crypto/rand"

	"github.com/google/uuid"
	"github.com/kadmesh/overlay/dht"
	"github.com/kadmesh/overlay/protocol"
)

// pendingChallenge tracks a nonce this node sealed to a peer, awaiting ChallengeResponse.
type pendingChallenge struct {
	peer  *dht.Peer
	nonce []byte
}

// ChallengePeer issues a fresh Challenge to peer: a random nonce sealed to its claimed public key. A
// correct ChallengeResponse marks the peer Verified; a wrong or missing one never upgrades it, but
// nothing else about the peer's standing in the routing table is affected (the challenge is advisory,
// per spec 4.3 - "detected out-of-band").
func (backend *Backend) ChallengePeer(peer *dht.Peer) {
	if peer.Address == "" {
		return
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		backend.Filters.LogError("ChallengePeer", "generating nonce: %s", err.Error())
		return
	}

	ciphertext, err := peer.Encrypt(nonce)
	if err != nil {
		backend.Filters.LogError("ChallengePeer", "sealing nonce to %s: %s", peer.Address, err.Error())
		return
	}

	payload, err := protocol.EncodeChallenge(protocol.Challenge{Nonce: ciphertext})
	if err != nil {
		backend.Filters.LogError("ChallengePeer", "encode: %s", err.Error())
		return
	}

	id := uuid.New()
	backend.challengeMu.Lock()
	backend.pendingChallenges[id] = pendingChallenge{peer: peer, nonce: nonce}
	backend.challengeMu.Unlock()

	backend.sendPacket(peer.Address, protocol.KindChallenge, id, payload)
}

// handleChallenge answers an inbound Challenge: decrypt the sealed nonce with our own private key and
// sign it back so the challenger can verify we hold the key our announced id is derived from.
func (backend *Backend) handleChallenge(addr string, id uuid.UUID, c protocol.Challenge) {
	nonce, err := backend.Identity.Decrypt(c.Nonce)
	if err != nil {
		// CryptoError::DecryptFailure: drop packet.
		backend.Filters.LogError("handleChallenge", "decrypt from %s: %s", addr, err.Error())
		return
	}

	sig, err := backend.Identity.Sign(nonce)
	if err != nil {
		backend.Filters.LogError("handleChallenge", "sign: %s", err.Error())
		return
	}

	payload, err := protocol.EncodeChallengeResponse(protocol.ChallengeResponse{Nonce: nonce, Signature: sig})
	if err != nil {
		backend.Filters.LogError("handleChallenge", "encode response: %s", err.Error())
		return
	}
	backend.sendPacket(addr, protocol.KindChallengeResp, id, payload)
}

// handleChallengeResponse completes a ChallengePeer round trip: a matching nonce and valid signature
// marks the peer Verified; anything else attributes a failure to the peer (CryptoError::BadSignature).
func (backend *Backend) handleChallengeResponse(id uuid.UUID, resp protocol.ChallengeResponse) {
	backend.challengeMu.Lock()
	pc, ok := backend.pendingChallenges[id]
	if ok {
		delete(backend.pendingChallenges, id)
	}
	backend.challengeMu.Unlock()

	if !ok {
		return // unknown, already-resolved, or cancelled challenge id: ignore.
	}

	if !bytes.Equal(resp.Nonce, pc.nonce) {
		backend.recordFailure(pc.peer, "bad_signature")
		return
	}
	if err := pc.peer.Verify(resp.Nonce, resp.Signature); err != nil {
		backend.recordFailure(pc.peer, "bad_signature")
		return
	}

	pc.peer.Verified = true
}
