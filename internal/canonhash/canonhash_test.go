package canonhash

import "testing"

func TestHash_Stability(t *testing.T) {
	payload := []byte(`{"b": 1, "a": "hello", "nested": {"z": true, "y": null}}`)

	h1, err := Hash(payload)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(payload)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("Hash is not stable across calls: %s != %s", h1, h2)
	}
	if len(h1) != 40 {
		t.Errorf("expected 40-char hex sha1, got %d chars: %s", len(h1), h1)
	}
}

func TestHash_RoundTrip(t *testing.T) {
	// A payload deserialized and reserialized through the canonical form
	// must hash identically to the raw input.
	payload := []byte(`{"title":"Über article","tags":["a","b"],"count":3}`)

	v, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	canonical := v.Canonical()

	h1, err := Hash(payload)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	h2, err := Hash(canonical)
	if err != nil {
		t.Fatalf("Hash of reserialized form: %v", err)
	}

	if h1 != h2 {
		t.Errorf("round-trip hash mismatch: %s != %s", h1, h2)
	}
}

func TestHash_KeyOrderPreserved(t *testing.T) {
	a := []byte(`{"a":1,"b":2}`)
	b := []byte(`{"b":2,"a":1}`)

	ha, err := Hash(a)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if ha == hb {
		t.Errorf("expected different hashes for different key orders (canonical form does not sort keys), got equal: %s", ha)
	}
}

func TestHash_EqualPayloadsEqualHash(t *testing.T) {
	a := []byte(`{"id":"11111111-1111-1111-1111-111111111111","name":"Test"}`)
	b := []byte(`{"id":"11111111-1111-1111-1111-111111111111","name":"Test"}`)

	ha, _ := Hash(a)
	hb, _ := Hash(b)
	if ha != hb {
		t.Errorf("identical payloads must hash identically: %s != %s", ha, hb)
	}
}

func TestHash_NonASCIIEscaped(t *testing.T) {
	v, err := Decode([]byte(`{"title":"Örjan"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	canonical := string(v.Canonical())
	want := "{\"title\":\"\\u00d6rjan\"}"
	if canonical != want {
		t.Errorf("Canonical() = %q, want %q", canonical, want)
	}
}

func TestHashAny_MatchesHash(t *testing.T) {
	m := map[string]interface{}{"a": "x", "b": float64(1)}
	h1, err := HashAny(m)
	if err != nil {
		t.Fatalf("HashAny: %v", err)
	}
	h2, err := Hash([]byte(`{"a":"x","b":1}`))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("HashAny and Hash diverged for equivalent input: %s != %s", h1, h2)
	}
}
