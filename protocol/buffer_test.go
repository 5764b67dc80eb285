package protocol

import "testing"

func TestBufferWriteReadCursorsIndependent(t *testing.T) {
	buf := NewBuffer(0)
	if _, err := buf.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if n := buf.Len(); n != 5 {
		t.Fatalf("Len() = %d, want 5", n)
	}

	first := make([]byte, 2)
	if _, err := buf.Read(first); err != nil {
		t.Fatal(err)
	}
	if string(first) != "he" {
		t.Fatalf("Read = %q, want %q", first, "he")
	}

	if _, err := buf.Write([]byte("!")); err != nil {
		t.Fatal(err)
	}
	if got := string(buf.Bytes()); got != "llo!" {
		t.Fatalf("Bytes() = %q, want %q", got, "llo!")
	}
}

func TestBufferMarkReset(t *testing.T) {
	buf := WrapBuffer([]byte{1, 2, 3, 4})

	buf.MarkReader()
	_, _ = buf.ReadByte()
	_, _ = buf.ReadByte()
	buf.ResetReader()

	if got, err := buf.ReadByte(); err != nil || got != 1 {
		t.Fatalf("after ResetReader, ReadByte = %d, %v; want 1, nil", got, err)
	}
}

func TestBufferWriterMarkReset(t *testing.T) {
	buf := NewBuffer(0)
	_, _ = buf.Write([]byte("abc"))
	buf.MarkWriter()
	_, _ = buf.Write([]byte("def"))
	buf.ResetWriter()

	if got := string(buf.Bytes()); got != "abc" {
		t.Fatalf("after ResetWriter, Bytes() = %q, want %q", got, "abc")
	}
}

func TestBufferMaxCapacity(t *testing.T) {
	buf := NewBuffer(0)
	buf.MaxCapacity = 4
	if _, err := buf.Write([]byte("abcd")); err != nil {
		t.Fatalf("write at capacity: %v", err)
	}
	if _, err := buf.Write([]byte("e")); err != ErrBufferFull {
		t.Fatalf("write over capacity = %v, want ErrBufferFull", err)
	}
}

func TestBufferDiscardCompacts(t *testing.T) {
	buf := WrapBuffer([]byte("abcdef"))
	_, _ = buf.Read(make([]byte, 3))
	buf.Discard()
	if got := string(buf.Bytes()); got != "def" {
		t.Fatalf("after Discard, Bytes() = %q, want %q", got, "def")
	}
	if buf.r != 0 {
		t.Fatalf("after Discard, read cursor = %d, want 0", buf.r)
	}
}

func TestBufferReadByteEmptyIsShortRead(t *testing.T) {
	buf := NewBuffer(0)
	if _, err := buf.ReadByte(); err != ErrShortRead {
		t.Fatalf("ReadByte on empty buffer = %v, want ErrShortRead", err)
	}
}
