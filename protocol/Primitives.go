/*
File Name:  Primitives.go
Copyright:  2021 Peernet s.r.o.
Author:     Peter Kleissner

Typed primitives layered on top of the varint codec (Varint.go) and the Buffer container
(Buffer.go). Every wire-level packet (Packet.go) and structured value (Version.go) is built
out of these.
*/

package protocol

import (
	"encoding/binary"
	"errors"

	"github.com/google/uuid"
)

// ErrStringTooLong / ErrByteArrayTooLong guard against a hostile or corrupt length prefix that would
// otherwise make the reader attempt to allocate an unreasonable amount of memory.
var (
	ErrStringTooLong    = errors.New("protocol: string length exceeds maximum")
	ErrByteArrayTooLong = errors.New("protocol: byte array length exceeds maximum")
)

// MaxByteArrayLen bounds any single varint-length-prefixed byte array (string, buffer-in-buffer, public
// key) that this codec will read. It is generous but finite: a malformed or hostile length prefix must
// not be allowed to request an arbitrary allocation.
const MaxByteArrayLen = 16 * 1024 * 1024

// WriteByte appends a single raw byte.
func WriteByte(buf *Buffer, v byte) error {
	return buf.WriteByte(v)
}

// ReadByte consumes and returns a single raw byte.
func ReadByte(buf *Buffer) (byte, error) {
	return buf.ReadByte()
}

// WriteShort appends a fixed, big-endian 16-bit unsigned integer.
func WriteShort(buf *Buffer, v uint16) error {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	_, err := buf.Write(tmp[:])
	return err
}

// ReadShort consumes a fixed, big-endian 16-bit unsigned integer.
func ReadShort(buf *Buffer) (uint16, error) {
	var tmp [2]byte
	if _, err := buf.Read(tmp[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(tmp[:]), nil
}

// WriteChar appends a 16-bit big-endian character code point.
func WriteChar(buf *Buffer, v rune) error {
	return WriteShort(buf, uint16(v))
}

// ReadChar consumes a 16-bit big-endian character code point.
func ReadChar(buf *Buffer) (rune, error) {
	v, err := ReadShort(buf)
	return rune(v), err
}

// WriteUint32 appends an unsigned 32-bit integer as a varint.
func WriteUint32(buf *Buffer, v uint32) error {
	return writeVarint(buf, uint64(v))
}

// ReadUint32 consumes an unsigned 32-bit varint.
func ReadUint32(buf *Buffer) (uint32, error) {
	v, err := readVarint(buf, MaxVarintLen32)
	return uint32(v), err
}

// WriteUint64 appends an unsigned 64-bit integer as a varint.
func WriteUint64(buf *Buffer, v uint64) error {
	return writeVarint(buf, v)
}

// ReadUint64 consumes an unsigned 64-bit varint.
func ReadUint64(buf *Buffer) (uint64, error) {
	return readVarint(buf, MaxVarintLen64)
}

// WriteInt32 appends a signed 32-bit integer as a zig-zag varint.
func WriteInt32(buf *Buffer, v int32) error {
	return writeVarint(buf, uint64(ZigZagEncode32(v)))
}

// ReadInt32 consumes a signed 32-bit zig-zag varint.
func ReadInt32(buf *Buffer) (int32, error) {
	v, err := readVarint(buf, MaxVarintLen32)
	if err != nil {
		return 0, err
	}
	return ZigZagDecode32(uint32(v)), nil
}

// WriteInt64 appends a signed 64-bit integer as a zig-zag varint.
func WriteInt64(buf *Buffer, v int64) error {
	return writeVarint(buf, ZigZagEncode64(v))
}

// ReadInt64 consumes a signed 64-bit zig-zag varint.
func ReadInt64(buf *Buffer) (int64, error) {
	v, err := readVarint(buf, MaxVarintLen64)
	if err != nil {
		return 0, err
	}
	return ZigZagDecode64(v), nil
}

// writeVarint is the shared append-to-buffer path for the Uvarint family.
func writeVarint(buf *Buffer, v uint64) error {
	var tmp [MaxVarintLen64]byte
	n := len(PutUvarint(tmp[:0], v))
	_, err := buf.Write(tmp[:n])
	return err
}

// readVarint is the shared consume-from-buffer path, enforcing maxLen bytes.
func readVarint(buf *Buffer, maxLen int) (uint64, error) {
	v, n, err := Uvarint(buf.Bytes(), maxLen)
	if err != nil {
		return 0, err
	}
	advance := make([]byte, n)
	_, _ = buf.Read(advance)
	return v, nil
}

// WriteByteArray appends a varint length prefix followed by the raw bytes.
func WriteByteArray(buf *Buffer, data []byte) error {
	if err := WriteUint64(buf, uint64(len(data))); err != nil {
		return err
	}
	_, err := buf.Write(data)
	return err
}

// ReadByteArray consumes a varint-length-prefixed byte array.
func ReadByteArray(buf *Buffer) ([]byte, error) {
	n, err := ReadUint64(buf)
	if err != nil {
		return nil, err
	}
	if n > MaxByteArrayLen {
		return nil, ErrByteArrayTooLong
	}
	out := make([]byte, n)
	if _, err := buf.Read(out); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteString appends a UTF-8 string as a varint-length-prefixed byte array.
func WriteString(buf *Buffer, s string) error {
	return WriteByteArray(buf, []byte(s))
}

// ReadString consumes a varint-length-prefixed UTF-8 string.
func ReadString(buf *Buffer) (string, error) {
	raw, err := ReadByteArray(buf)
	if err != nil {
		return "", err
	}
	if len(raw) > MaxByteArrayLen {
		return "", ErrStringTooLong
	}
	return string(raw), nil
}

// WriteUUID appends a UUID as two zig-zag varint longs (most-significant bits, then least-significant).
func WriteUUID(buf *Buffer, id uuid.UUID) error {
	msb := int64(binary.BigEndian.Uint64(id[0:8]))
	lsb := int64(binary.BigEndian.Uint64(id[8:16]))
	if err := WriteInt64(buf, msb); err != nil {
		return err
	}
	return WriteInt64(buf, lsb)
}

// ReadUUID consumes a UUID encoded as two zig-zag varint longs.
func ReadUUID(buf *Buffer) (uuid.UUID, error) {
	var id uuid.UUID
	msb, err := ReadInt64(buf)
	if err != nil {
		return id, err
	}
	lsb, err := ReadInt64(buf)
	if err != nil {
		return id, err
	}
	binary.BigEndian.PutUint64(id[0:8], uint64(msb))
	binary.BigEndian.PutUint64(id[8:16], uint64(lsb))
	return id, nil
}

// WritePublicKey appends an X.509 SubjectPublicKeyInfo byte sequence as a varint-length-prefixed byte array.
func WritePublicKey(buf *Buffer, x509Bytes []byte) error {
	return WriteByteArray(buf, x509Bytes)
}

// ReadPublicKey consumes an X.509 SubjectPublicKeyInfo byte sequence.
func ReadPublicKey(buf *Buffer) ([]byte, error) {
	return ReadByteArray(buf)
}

// WriteInnerBuffer appends a varint readable-length followed by the raw bytes of an embedded buffer. This
// is the buffer-in-buffer primitive framing uses to delimit a sub-message within a larger one.
func WriteInnerBuffer(buf *Buffer, inner *Buffer) error {
	return WriteByteArray(buf, inner.Bytes())
}

// ReadInnerBuffer consumes a length-prefixed embedded buffer and wraps it for independent reading.
func ReadInnerBuffer(buf *Buffer) (*Buffer, error) {
	raw, err := ReadByteArray(buf)
	if err != nil {
		return nil, err
	}
	return WrapBuffer(raw), nil
}

// StorageValue is implemented by any structured value that can write itself into a buffer and be
// reconstructed from one. Version (Version.go) is the canonical implementation.
type StorageValue interface {
	WriteTo(buf *Buffer) error
	ReadFrom(buf *Buffer) error
}

// WriteStorageValue delegates to v's own writer.
func WriteStorageValue(buf *Buffer, v StorageValue) error {
	return v.WriteTo(buf)
}

// ReadStorageValue delegates to v's own reader; v must be a pointer to a zero-value instance of the
// target type, supplied by the caller (there is no type tag on the wire for embedded storage values).
func ReadStorageValue(buf *Buffer, v StorageValue) error {
	return v.ReadFrom(buf)
}
