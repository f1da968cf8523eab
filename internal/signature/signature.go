// Package signature authenticates provider webhooks signed with the
// Standard Webhooks / Svix scheme: HMAC-SHA256 over "{id}.{timestamp}.{body}"
// with a base64 secret distributed as "whsec_<base64>".
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	SecretPrefix = "whsec_"

	// Tolerance bounds how far the signed timestamp may drift from now in
	// either direction.
	Tolerance = 300 * time.Second

	signatureVersion = "v1"
)

var (
	ErrMissingHeaders   = errors.New("missing signature headers")
	ErrInvalidTimestamp = errors.New("invalid signature timestamp")
	ErrTimestampSkew    = errors.New("signature timestamp outside tolerance")
	ErrInvalidSecret    = errors.New("invalid signing secret")
	ErrNoMatch          = errors.New("no matching signature")
)

// Envelope is one inbound delivery as seen by the verifier. Signatures is
// the raw space-delimited "v1,<digest>" list.
type Envelope struct {
	ID         string
	Timestamp  string
	Signatures string
	Body       []byte
}

var (
	idHeaders        = []string{"svix-id", "webhook-id"}
	timestampHeaders = []string{"svix-timestamp", "webhook-timestamp"}
	signatureHeaders = []string{"svix-signature", "webhook-signature"}
)

// FromHeaders builds an Envelope from request headers, preferring svix-*
// names and falling back to webhook-*.
func FromHeaders(h http.Header, body []byte) Envelope {
	return Envelope{
		ID:         firstHeader(h, idHeaders),
		Timestamp:  firstHeader(h, timestampHeaders),
		Signatures: firstHeader(h, signatureHeaders),
		Body:       body,
	}
}

func firstHeader(h http.Header, names []string) string {
	for _, name := range names {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// Check validates env against secret at instant now and reports why it was
// rejected. The timestamp window is enforced before any digest is computed.
func Check(env Envelope, secret string, now time.Time) error {
	if env.ID == "" || env.Timestamp == "" || env.Signatures == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(env.Timestamp, 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > Tolerance {
		return ErrTimestampSkew
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return err
	}
	expected := digest(key, env.ID, env.Timestamp, env.Body)

	for _, entry := range strings.Split(env.Signatures, " ") {
		_, sig, ok := strings.Cut(entry, ",")
		if !ok {
			continue
		}
		if Equal(expected, sig) {
			return nil
		}
	}
	return ErrNoMatch
}

// Verify is Check reduced to a yes/no answer.
func Verify(env Envelope, secret string, now time.Time) bool {
	return Check(env, secret, now) == nil
}

// DecodeSecret strips the whsec_ prefix and base64-decodes the remainder.
func DecodeSecret(secret string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, SecretPrefix))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSecret)
	}
	return key, nil
}

// Sign returns a "v1,<digest>" entry for the given delivery.
func Sign(secret, id string, ts time.Time, body []byte) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return signatureVersion + "," + digest(key, id, strconv.FormatInt(ts.Unix(), 10), body), nil
}

// Equal compares two digests in constant time. Strings of different length
// are rejected without inspecting their contents.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func digest(key []byte, id, ts string, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id))
	mac.Write([]byte{'.'})
	mac.Write([]byte(ts))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
