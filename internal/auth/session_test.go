// internal/auth/session_test.go
package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	Init()

	sid := uuid.NewString()
	token, err := CreateJWT(sid)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sub, err := AuthenticateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, sid, sub)
}

func TestAuthenticateJWTRejectsGarbage(t *testing.T) {
	Init()
	_, err := AuthenticateJWT("not.a.jwt")
	assert.Error(t, err)
}

func TestAuthenticateJWTRejectsForeignKey(t *testing.T) {
	Init()
	token, err := CreateJWT(uuid.NewString())
	require.NoError(t, err)

	// A restart regenerates the key pair; old tokens stop verifying.
	Init()
	_, err = AuthenticateJWT(token)
	assert.Error(t, err)
}
