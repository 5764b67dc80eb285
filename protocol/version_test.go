package protocol

import "testing"

func TestVersionRoundTrip(t *testing.T) {
	cases := []Version{
		{0, 0, 0},
		{1, 0, 0},
		{1, 2, 0},
		{1, 2, 3},
		{127, 127, 127},
	}

	for _, v := range cases {
		buf := NewBuffer(4)
		if err := v.WriteTo(buf); err != nil {
			t.Fatalf("WriteTo(%s): %v", v, err)
		}

		var got Version
		if err := got.ReadFrom(buf); err != nil {
			t.Fatalf("ReadFrom: %v", err)
		}
		if got != v {
			t.Errorf("round trip %s -> %s", v, got)
		}
	}
}

func TestVersionEncodedLength(t *testing.T) {
	cases := []struct {
		v    Version
		want int
	}{
		{Version{1, 0, 0}, 1},
		{Version{1, 2, 0}, 2},
		{Version{1, 2, 3}, 3},
		{Version{1, 0, 3}, 3}, // minor is zero but patch isn't: the reader's convention still continues
	}
	for _, c := range cases {
		buf := NewBuffer(4)
		if err := c.v.WriteTo(buf); err != nil {
			t.Fatal(err)
		}
		if got := buf.Len(); got != c.want {
			t.Errorf("encoded length of %s = %d, want %d", c.v, got, c.want)
		}
	}
}

func TestVersionString(t *testing.T) {
	if got := (Version{1, 2, 3}).String(); got != "1.2.3" {
		t.Errorf("String() = %q, want %q", got, "1.2.3")
	}
}
