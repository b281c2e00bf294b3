package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var salt = []byte("campushub.core.token.codec")

// ErrMalformedToken is returned when a token string cannot be parsed, decoded
// or authenticated. It is deliberately distinct from any expiry error: the
// codec has no notion of expiry, callers decide that from Envelope.CreatedAt.
var ErrMalformedToken = errors.New("malformed token")

// Kind tags the payload variant carried by a token.
type Kind string

const (
	KindSessionCheckin Kind = "session-checkin"
	KindIdentityBadge  Kind = "identity-badge"
)

// Envelope is the decoded form of a token: a kind tag, the kind-specific
// payload, the creation timestamp and a random nonce. The nonce guarantees
// that two tokens minted from identical payloads never collide.
type Envelope struct {
	Kind      Kind            `json:"k"`
	Payload   json.RawMessage `json:"p"`
	CreatedAt time.Time       `json:"t"`
	Nonce     []byte          `json:"n"`
}

// UnmarshalPayload decodes the kind-specific payload into dst.
func (e Envelope) UnmarshalPayload(dst interface{}) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return ErrMalformedToken
	}
	return nil
}

// Codec encodes and decodes opaque, HMAC-authenticated token strings.
// It is a pure format boundary: no expiry, no business rules.
type Codec struct {
	key     []byte
	nowFunc func() time.Time // mockable
}

func NewCodec(secret []byte) *Codec {
	key := sha256.Sum256(append(salt, secret...))
	return &Codec{
		key:     key[:],
		nowFunc: time.Now,
	}
}

// Encode serializes {kind, payload, createdAt, nonce} into an opaque string.
// Output is non-deterministic across calls (random nonce) even for identical payloads.
func (c *Codec) Encode(kind Kind, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	env := Envelope{
		Kind:      kind,
		Payload:   raw,
		CreatedAt: c.nowFunc().UTC().Truncate(time.Second),
		Nonce:     nonce,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return "", err
	}

	bodyB64 := base64.RawURLEncoding.EncodeToString(body)
	return bodyB64 + "." + c.sign(bodyB64), nil
}

// Decode parses and authenticates a token string. Any failure, on arbitrary
// attacker-controlled input, is reported as ErrMalformedToken; it never panics.
func (c *Codec) Decode(token string) (Envelope, error) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Envelope{}, ErrMalformedToken
	}
	bodyB64, sig := parts[0], parts[1]

	if subtle.ConstantTimeCompare([]byte(c.sign(bodyB64)), []byte(sig)) == 0 {
		return Envelope{}, ErrMalformedToken
	}

	body, err := base64.RawURLEncoding.DecodeString(bodyB64)
	if err != nil {
		return Envelope{}, ErrMalformedToken
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, ErrMalformedToken
	}
	if env.Kind == "" || env.Payload == nil {
		return Envelope{}, ErrMalformedToken
	}
	return env, nil
}

func (c *Codec) sign(val string) string {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(val))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
