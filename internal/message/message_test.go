package message

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rid := "R1"
	in := EndpointCreated{
		EndpointID: "e1",
		ResyncID:   &rid,
		Issued:     12345,
		MAC:        "aa:bb:cc:00:00:01",
		State:      "enabled",
		Addrs:      []AddrWire{{Family: "inet", Value: "10.0.0.1"}},
	}

	env, err := Encode(KindEndpointCreated, in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if env.Type != KindEndpointCreated {
		t.Fatalf("Type = %s, want %s", env.Type, KindEndpointCreated)
	}

	decoded, err := Decode(env)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	out, ok := decoded.(EndpointCreated)
	if !ok {
		t.Fatalf("Decode returned %T, want EndpointCreated", decoded)
	}
	if out.EndpointID != in.EndpointID || out.MAC != in.MAC || *out.ResyncID != rid {
		t.Fatalf("round trip mismatch: got %+v", out)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	if _, err := Decode(Envelope{Type: Kind("BOGUS")}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDecodeHeartbeatEmptyPayload(t *testing.T) {
	v, err := Decode(Envelope{Type: KindHeartbeat})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := v.(Heartbeat); !ok {
		t.Fatalf("Decode returned %T, want Heartbeat", v)
	}
}
