package protocol

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/google/uuid"
)

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello", "unicode: éè中文"} {
		buf := NewBuffer(0)
		if err := WriteString(buf, s); err != nil {
			t.Fatal(err)
		}
		got, err := ReadString(buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != s {
			t.Errorf("round trip %q -> %q", s, got)
		}
	}
}

func TestByteArrayRoundTrip(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}
	buf := NewBuffer(0)
	if err := WriteByteArray(buf, data); err != nil {
		t.Fatal(err)
	}
	got, err := ReadByteArray(buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, data); diff != nil {
		t.Errorf("round trip mismatch: %v", diff)
	}
}

func TestUUIDRoundTrip(t *testing.T) {
	ids := []uuid.UUID{uuid.Nil, uuid.New(), uuid.New()}
	for _, id := range ids {
		buf := NewBuffer(0)
		if err := WriteUUID(buf, id); err != nil {
			t.Fatal(err)
		}
		got, err := ReadUUID(buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != id {
			t.Errorf("round trip %s -> %s", id, got)
		}
	}
}

func TestShortFixedBigEndian(t *testing.T) {
	buf := NewBuffer(0)
	if err := WriteShort(buf, 0x0102); err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(buf.Bytes(), []byte{0x01, 0x02}); diff != nil {
		t.Errorf("WriteShort encoding mismatch: %v", diff)
	}
	got, err := ReadShort(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0x0102 {
		t.Errorf("ReadShort = %x, want 0x0102", got)
	}
}

func TestInt32RoundTripNegative(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 1000, -1000, 1<<31 - 1, -(1 << 31)} {
		buf := NewBuffer(0)
		if err := WriteInt32(buf, v); err != nil {
			t.Fatal(err)
		}
		got, err := ReadInt32(buf)
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Errorf("round trip %d -> %d", v, got)
		}
	}
}

func TestInnerBufferFraming(t *testing.T) {
	inner := NewBuffer(0)
	_ = WriteString(inner, "payload")

	outer := NewBuffer(0)
	if err := WriteInnerBuffer(outer, inner); err != nil {
		t.Fatal(err)
	}
	_ = WriteString(outer, "trailer")

	gotInner, err := ReadInnerBuffer(outer)
	if err != nil {
		t.Fatal(err)
	}
	s, err := ReadString(gotInner)
	if err != nil {
		t.Fatal(err)
	}
	if s != "payload" {
		t.Errorf("inner buffer payload = %q, want %q", s, "payload")
	}

	trailer, err := ReadString(outer)
	if err != nil {
		t.Fatal(err)
	}
	if trailer != "trailer" {
		t.Errorf("trailer after inner buffer = %q, want %q", trailer, "trailer")
	}
}

type dummyStorageValue struct {
	A, B byte
}

func (d dummyStorageValue) WriteTo(buf *Buffer) error {
	if err := buf.WriteByte(d.A); err != nil {
		return err
	}
	return buf.WriteByte(d.B)
}

func (d *dummyStorageValue) ReadFrom(buf *Buffer) error {
	a, err := buf.ReadByte()
	if err != nil {
		return err
	}
	b, err := buf.ReadByte()
	if err != nil {
		return err
	}
	d.A, d.B = a, b
	return nil
}

func TestStorageValueDelegates(t *testing.T) {
	buf := NewBuffer(0)
	want := dummyStorageValue{A: 7, B: 9}
	if err := WriteStorageValue(buf, want); err != nil {
		t.Fatal(err)
	}
	var got dummyStorageValue
	if err := ReadStorageValue(buf, &got); err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("StorageValue round trip mismatch: %v", diff)
	}
}
