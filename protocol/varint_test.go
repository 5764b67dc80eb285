package protocol

import "testing"

func TestUvarintLiteralEncodings(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x01}},
		{16383, []byte{0xFF, 0x7F}},
		{1<<32 - 1, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x0F}},
	}

	for _, c := range cases {
		got := PutUvarint(nil, c.v)
		if string(got) != string(c.want) {
			t.Errorf("PutUvarint(%d) = %x, want %x", c.v, got, c.want)
		}

		v, n, err := Uvarint(got, MaxVarintLen64)
		if err != nil {
			t.Fatalf("Uvarint(%x): %v", got, err)
		}
		if n != len(got) || v != c.v {
			t.Errorf("Uvarint(%x) = %d, %d bytes; want %d, %d bytes", got, v, n, c.v, len(got))
		}
	}
}

func TestUvarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 2, 63, 64, 127, 128, 300, 1 << 20, 1<<32 - 1, 1 << 40, 1<<64 - 1}
	for _, v := range values {
		buf := PutUvarint(nil, v)
		if len(buf) > MaxVarintLen64 {
			t.Errorf("encode(%d) used %d bytes > MaxVarintLen64", v, len(buf))
		}
		got, n, err := Uvarint(buf, MaxVarintLen64)
		if err != nil {
			t.Fatalf("decode(%d): %v", v, err)
		}
		if got != v || n != len(buf) {
			t.Errorf("round trip %d -> %x -> %d (n=%d)", v, buf, got, n)
		}
	}
}

func TestUvarintShortRead(t *testing.T) {
	buf := []byte{0x80, 0x80} // both bytes have continuation bit set, no terminator
	_, n, err := Uvarint(buf, MaxVarintLen64)
	if n != 0 || err != ErrShortRead {
		t.Fatalf("Uvarint(%x) = n=%d, err=%v; want ErrShortRead", buf, n, err)
	}
}

func TestUvarintOverflow(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	_, n, err := Uvarint(buf, MaxVarintLen64)
	if n != 0 || err != ErrVarintOverflow {
		t.Fatalf("Uvarint(%x) = n=%d, err=%v; want ErrVarintOverflow", buf, n, err)
	}
}

func TestZigZagLiterals32(t *testing.T) {
	cases := []struct {
		n    int32
		want uint32
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2147483647, 4294967294},
		{-2147483648, 4294967295},
	}
	for _, c := range cases {
		if got := ZigZagEncode32(c.n); got != c.want {
			t.Errorf("ZigZagEncode32(%d) = %d, want %d", c.n, got, c.want)
		}
		if got := ZigZagDecode32(c.want); got != c.n {
			t.Errorf("ZigZagDecode32(%d) = %d, want %d", c.want, got, c.n)
		}
	}
}

func TestZigZagRoundTrip64(t *testing.T) {
	values := []int64{0, 1, -1, 2, -2, 1 << 40, -(1 << 40), 1<<63 - 1, -(1 << 63)}
	for _, v := range values {
		enc := ZigZagEncode64(v)
		if dec := ZigZagDecode64(enc); dec != v {
			t.Errorf("zig-zag round trip failed for %d: encoded %d, decoded %d", v, enc, dec)
		}
	}
}

func TestPeekVarintLen(t *testing.T) {
	buf := PutUvarint(nil, 300)
	if n := PeekVarintLen(buf, MaxVarintLen64); n != len(buf) {
		t.Errorf("PeekVarintLen(complete) = %d, want %d", n, len(buf))
	}
	if n := PeekVarintLen(buf[:len(buf)-1], MaxVarintLen64); n != 0 {
		t.Errorf("PeekVarintLen(truncated) = %d, want 0", n)
	}
}
