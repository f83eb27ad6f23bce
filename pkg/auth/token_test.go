package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ouarsenis/thawra-api/pkg/models"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", "thawra-api", time.Hour)
	user := &models.User{ID: "user-1", Role: models.RoleEditor}

	token, err := issuer.Issue(user)
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret", "thawra-api", time.Hour)
	other := NewTokenIssuer("different", "thawra-api", time.Hour)

	token, err := issuer.Issue(&models.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", "thawra-api", -time.Minute)

	token, err := issuer.Issue(&models.User{ID: "user-1"})
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("secret", "thawra-api", time.Hour)

	_, err := issuer.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
