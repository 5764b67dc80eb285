/*
File Name:  Crypto.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Node identity and the RSA crypto envelope (C3). A peer's identifier is a name-based UUID over the
X.509 encoding of its public key; every peer carries an encryptor/verifier pre-initialized with that
key, and the local node additionally holds the private key for decrypt/sign.

crypto/rsa's package-level functions take the key by value and keep no mutable state between calls, so
unlike a stateful cipher/signer object there is nothing to pool or lock here: every call is already safe
to invoke concurrently. This is a deliberate departure from a pooled-cipher design (see DESIGN.md).
*/

package protocol

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"

	"github.com/google/uuid"
)

// crypto256 names the signing hash used by Verify/Sign, RSA-PSS with SHA-256.
const crypto256 = crypto.SHA256

// MinRSAKeyBits is the smallest accepted RSA modulus size.
const MinRSAKeyBits = 2048

var (
	// ErrKeyTooSmall is a DecodeError::MalformedKey: the frame carrying the key is dropped. No peer is
	// marked suspect for it.
	ErrKeyTooSmall = errors.New("protocol: RSA key smaller than minimum size")
	// ErrMalformedKey wraps an X.509 parse failure.
	ErrMalformedKey = errors.New("protocol: malformed public key")
	// ErrBadSignature is a CryptoError::BadSignature.
	ErrBadSignature = errors.New("protocol: signature verification failed")
	// ErrDecryptFailure is a CryptoError::DecryptFailure.
	ErrDecryptFailure = errors.New("protocol: decryption failed")
)

// EncodePublicKey canonically serializes pub as a length-prefixed X.509 SubjectPublicKeyInfo sequence's
// raw bytes (the length prefix itself is added by WritePublicKey at the call site, not here).
func EncodePublicKey(pub *rsa.PublicKey) ([]byte, error) {
	return x509.MarshalPKIXPublicKey(pub)
}

// DecodePublicKey parses a SubjectPublicKeyInfo byte sequence and validates the minimum key size.
func DecodePublicKey(x509Bytes []byte) (*rsa.PublicKey, error) {
	generic, err := x509.ParsePKIXPublicKey(x509Bytes)
	if err != nil {
		return nil, ErrMalformedKey
	}
	pub, ok := generic.(*rsa.PublicKey)
	if !ok {
		return nil, ErrMalformedKey
	}
	if pub.N.BitLen() < MinRSAKeyBits {
		return nil, ErrKeyTooSmall
	}
	return pub, nil
}

// DeriveNodeID computes the name-based UUID over a peer's encoded public key. Collisions or impersonation
// are not prevented by this derivation alone; they are detected out-of-band by challenging the purported
// owner to decrypt a nonce sealed to the claimed key (see PeerCrypto.Encrypt).
func DeriveNodeID(publicKeyX509 []byte) uuid.UUID {
	return uuid.NewMD5(uuid.Nil, publicKeyX509)
}

// PeerCrypto is the asymmetric envelope attached to a remote peer: everything needed to seal a payload to
// that peer and to verify something it claims to have signed.
type PeerCrypto struct {
	PublicKey     *rsa.PublicKey
	PublicKeyX509 []byte
}

// NewPeerCrypto validates and wraps a remote peer's public key.
func NewPeerCrypto(x509Bytes []byte) (*PeerCrypto, error) {
	pub, err := DecodePublicKey(x509Bytes)
	if err != nil {
		return nil, err
	}
	return &PeerCrypto{PublicKey: pub, PublicKeyX509: x509Bytes}, nil
}

// Encrypt seals a small payload (handshake sealing, key-wrapping) to the peer using RSA-OAEP. It is not
// suitable for bulk data; callers negotiate a symmetric session using this primitive instead.
func (p *PeerCrypto) Encrypt(plaintext []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, p.PublicKey, plaintext, nil)
}

// Verify checks a signature over data using RSA-PSS with SHA-256, the implementation's default signing
// hash.
func (p *PeerCrypto) Verify(data, signature []byte) error {
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPSS(p.PublicKey, crypto256, digest[:], signature, nil); err != nil {
		return ErrBadSignature
	}
	return nil
}

// LocalIdentity additionally holds the private key, for decrypt and sign.
type LocalIdentity struct {
	PeerCrypto
	PrivateKey *rsa.PrivateKey
}

// GenerateLocalIdentity creates a fresh RSA keypair of the given bit size (minimum MinRSAKeyBits).
func GenerateLocalIdentity(bits int) (*LocalIdentity, error) {
	if bits < MinRSAKeyBits {
		return nil, ErrKeyTooSmall
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return NewLocalIdentity(priv)
}

// NewLocalIdentity wraps an existing private key, deriving its public-key encoding.
func NewLocalIdentity(priv *rsa.PrivateKey) (*LocalIdentity, error) {
	x509Bytes, err := EncodePublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	return &LocalIdentity{
		PeerCrypto: PeerCrypto{PublicKey: &priv.PublicKey, PublicKeyX509: x509Bytes},
		PrivateKey: priv,
	}, nil
}

// ID is this identity's node id, derived from its own public key encoding.
func (l *LocalIdentity) ID() uuid.UUID {
	return DeriveNodeID(l.PublicKeyX509)
}

// Decrypt opens a payload sealed to this identity's public key.
func (l *LocalIdentity) Decrypt(ciphertext []byte) ([]byte, error) {
	plaintext, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, l.PrivateKey, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptFailure
	}
	return plaintext, nil
}

// Sign produces an RSA-PSS/SHA-256 signature over data.
func (l *LocalIdentity) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPSS(rand.Reader, l.PrivateKey, crypto256, digest[:], nil)
}
