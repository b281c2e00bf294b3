package token

import (
	"testing"
	"time"
)

type testPayload struct {
	SessionID string `json:"session_id"`
	Activity  string `json:"activity"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec := NewCodec([]byte("secret"))
	payload := testPayload{SessionID: "s1", Activity: "math-101"}

	tok, err := codec.Encode(KindSessionCheckin, payload)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	env, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if env.Kind != KindSessionCheckin {
		t.Errorf("kind = %q; want %q", env.Kind, KindSessionCheckin)
	}
	if len(env.Nonce) != 16 {
		t.Errorf("nonce length = %d; want 16", len(env.Nonce))
	}
	if env.CreatedAt.IsZero() {
		t.Error("createdAt is zero")
	}

	var got testPayload
	if err := env.UnmarshalPayload(&got); err != nil {
		t.Fatalf("UnmarshalPayload() failed: %v", err)
	}
	if got != payload {
		t.Errorf("payload = %+v; want %+v", got, payload)
	}
}

func TestEncodeNonceUniqueness(t *testing.T) {
	codec := NewCodec([]byte("secret"))
	payload := testPayload{SessionID: "s1", Activity: "math-101"}

	tok1, err := codec.Encode(KindSessionCheckin, payload)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	tok2, err := codec.Encode(KindSessionCheckin, payload)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if tok1 == tok2 {
		t.Error("two encodes of the same payload produced identical tokens")
	}

	env1, err := codec.Decode(tok1)
	if err != nil {
		t.Fatalf("Decode(tok1) failed: %v", err)
	}
	env2, err := codec.Decode(tok2)
	if err != nil {
		t.Fatalf("Decode(tok2) failed: %v", err)
	}
	var p1, p2 testPayload
	_ = env1.UnmarshalPayload(&p1)
	_ = env2.UnmarshalPayload(&p2)
	if p1 != p2 {
		t.Errorf("payloads differ: %+v vs %+v", p1, p2)
	}
}

func TestDecodeMalformed(t *testing.T) {
	codec := NewCodec([]byte("secret"))

	valid, err := codec.Encode(KindIdentityBadge, testPayload{SessionID: "x"})
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	// token signed with a different key must not authenticate
	otherKey, err := NewCodec([]byte("other")).Encode(KindIdentityBadge, testPayload{SessionID: "x"})
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "no separator", token: "lmaooolol"},
		{name: "empty body", token: ".sigsig"},
		{name: "empty sig", token: "Ym9keQ."},
		{name: "invalid base64 body", token: "!!!not-base64.sigsig"},
		{name: "tampered sig", token: valid + "x"},
		{name: "truncated", token: valid[:len(valid)/2]},
		{name: "wrong key", token: otherKey},
		{name: "plain garbage", token: "aGVsbG8gd29ybGQ.aGVsbG8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := codec.Decode(tt.token); err != ErrMalformedToken {
				t.Errorf("Decode() error = %v, want ErrMalformedToken", err)
			}
		})
	}
}

func TestEncodeCreatedAt(t *testing.T) {
	codec := NewCodec([]byte("secret"))
	fixed := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	codec.nowFunc = func() time.Time { return fixed }

	tok, err := codec.Encode(KindSessionCheckin, testPayload{SessionID: "s1"})
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	env, err := codec.Decode(tok)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if !env.CreatedAt.Equal(fixed) {
		t.Errorf("createdAt = %v; want %v", env.CreatedAt, fixed)
	}
}
