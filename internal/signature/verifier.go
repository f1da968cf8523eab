package signature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Verifier checks envelopes against every configured secret, so our side of
// a secret rotation can overlap old and new values.
type Verifier struct {
	secrets []string
	now     func() time.Time
}

type Option func(*Verifier)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(secrets []string, opts ...Option) (*Verifier, error) {
	if len(secrets) == 0 {
		return nil, fmt.Errorf("at least one signing secret is required")
	}
	for i, s := range secrets {
		if _, err := DecodeSecret(s); err != nil {
			return nil, fmt.Errorf("signing secret %d: %w", i, err)
		}
	}

	v := &Verifier{secrets: secrets, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify reports whether env was signed by any configured secret. It never
// returns an error; the rejection reason is logged.
func (v *Verifier) Verify(ctx context.Context, env Envelope) bool {
	now := v.now()

	var err error
	for _, secret := range v.secrets {
		err = Check(env, secret, now)
		if err == nil {
			return true
		}
		// Header and clock problems don't depend on the secret.
		if !errors.Is(err, ErrNoMatch) {
			break
		}
	}

	slog.WarnContext(ctx, "webhook signature rejected",
		"envelope_id", env.ID,
		"timestamp", env.Timestamp,
		"reason", err.Error())
	return false
}
