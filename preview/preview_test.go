package preview

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerify(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)

	token, expires, err := issuer.Issue("form-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	assert.NoError(t, issuer.Verify("form-1", token))
	assert.ErrorIs(t, issuer.Verify("form-2", token), ErrInvalid)
	assert.ErrorIs(t, issuer.Verify("form-1", ""), ErrInvalid)
	assert.ErrorIs(t, issuer.Verify("form-1", token+"x"), ErrInvalid)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token, _, err := NewIssuer("secret", time.Hour).Issue("form-1")
	require.NoError(t, err)

	assert.ErrorIs(t, NewIssuer("other", time.Hour).Verify("form-1", token), ErrInvalid)
}

func TestVerifyRejectsExpired(t *testing.T) {
	issuer := NewIssuer("secret", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := issuer.Issue("form-1")
	require.NoError(t, err)
	assert.ErrorIs(t, issuer.Verify("form-1", token), ErrInvalid)
}
