package protocol

import "testing"

func TestRegistryLookup(t *testing.T) {
	registry, err := NewBuilder().
		Register("test.kind", func(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) {
			return "decoded", nil
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	decode, err := registry.Lookup("test.kind")
	if err != nil {
		t.Fatal(err)
	}
	got, err := decode([16]byte{}, 0, nil)
	if err != nil || got != "decoded" {
		t.Fatalf("decode() = %v, %v; want %q, nil", got, err, "decoded")
	}

	if !registry.Has("test.kind") {
		t.Error("Has(registered kind) = false")
	}
	if registry.Has("no.such.kind") {
		t.Error("Has(unregistered kind) = true")
	}
}

func TestRegistryUnknownKind(t *testing.T) {
	registry, err := NewBuilder().Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Lookup("anything"); err != ErrUnknownPacket {
		t.Fatalf("Lookup(unregistered) = %v, want ErrUnknownPacket", err)
	}
}

func TestRegistryDuplicateRegistrationIsError(t *testing.T) {
	decode := func(id [16]byte, ttl uint16, buf *Buffer) (interface{}, error) { return nil, nil }
	_, err := NewBuilder().
		Register("dup", decode).
		Register("dup", decode).
		Build()
	if err == nil {
		t.Fatal("Build() with duplicate registration succeeded, want error")
	}
}

func TestRegistryNilDecoderIsError(t *testing.T) {
	_, err := NewBuilder().Register("bad", nil).Build()
	if err == nil {
		t.Fatal("Build() with nil decoder succeeded, want error")
	}
}

func TestRegistryNilLookupIsUnknown(t *testing.T) {
	var registry *Registry
	if _, err := registry.Lookup("anything"); err != ErrUnknownPacket {
		t.Fatalf("nil Registry Lookup = %v, want ErrUnknownPacket", err)
	}
}

func TestDefaultRegistryHasHandshakeKinds(t *testing.T) {
	registry, err := DefaultRegistry()
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range []string{KindHandshake, KindAnnouncement, KindFindNodeReq, KindFindNodeResp, KindBroadcast, KindChallenge, KindChallengeResp} {
		if !registry.Has(kind) {
			t.Errorf("DefaultRegistry() missing kind %q", kind)
		}
	}
}
