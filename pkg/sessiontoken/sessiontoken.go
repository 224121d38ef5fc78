// Package sessiontoken decodes userstack session tokens for diagnostics.
//
// The client treats the token as opaque and never validates it; the backend
// is the only party that can. This package only reads the claims the token
// carries so tools can show who is signed in and until when.
package sessiontoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userstack "github.com/jdziat/userstack-go"
)

var (
	// ErrMalformed is returned when the token is not a decodable JWT.
	ErrMalformed = errors.New("sessiontoken: malformed token")
	// ErrNoSession is returned by FromClient when no token is stored.
	ErrNoSession = errors.New("sessiontoken: no session token stored")
)

// Info holds the decoded claims of a session token.
type Info struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time // zero when the claim is absent
	ExpiresAt time.Time // zero when the claim is absent
	Algorithm string
	Claims    map[string]any
}

// Expired reports whether the token carries an expiry that is not after now.
func (i *Info) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !i.ExpiresAt.After(now)
}

// Remaining returns the time left until expiry, zero if expired, or -1 when
// the token has no expiry.
func (i *Info) Remaining(now time.Time) time.Duration {
	if i.ExpiresAt.IsZero() {
		return -1
	}
	if d := i.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Inspect decodes raw without verifying its signature.
func Inspect(raw string) (*Info, error) {
	claims := jwt.MapClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(raw, claims)
	if err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}

	info := &Info{Claims: map[string]any(claims)}
	if token.Method != nil {
		info.Algorithm = token.Method.Alg()
	}

	if info.Subject, err = claims.GetSubject(); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if info.Issuer, err = claims.GetIssuer(); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	iat, err := claims.GetIssuedAt()
	if err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if iat != nil {
		info.IssuedAt = iat.Time
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}
	if exp != nil {
		info.ExpiresAt = exp.Time
	}

	return info, nil
}

// FromClient inspects the token currently stored by client.
func FromClient(ctx context.Context, client *userstack.Client) (*Info, error) {
	raw, ok, err := client.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("sessiontoken: failed to read stored token: %w", err)
	}
	if !ok {
		return nil, ErrNoSession
	}
	return Inspect(raw)
}
