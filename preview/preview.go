// Package preview issues and checks the signed links form authors use to try
// their own form without recording a submission.
package preview

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
)

const formClaim = "form_id"

var ErrInvalid = errors.New("preview: invalid token")

type Issuer struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		auth: jwtauth.New("HS256", []byte(secret), nil),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Issue returns a token valid for formID until the configured ttl elapses.
func (i *Issuer) Issue(formID string) (token string, expires time.Time, err error) {
	now := i.now()
	expires = now.Add(i.ttl)
	claims := map[string]any{formClaim: formID}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, expires)

	_, token, err = i.auth.Encode(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode preview token: %w", err)
	}
	return token, expires, nil
}

// Verify checks signature, expiry and that the token was issued for formID.
func (i *Issuer) Verify(formID, token string) error {
	if token == "" {
		return ErrInvalid
	}
	parsed, err := jwtauth.VerifyToken(i.auth, token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	claimed, ok := parsed.Get(formClaim)
	if !ok || claimed != formID {
		return fmt.Errorf("%w: issued for another form", ErrInvalid)
	}
	return nil
}
