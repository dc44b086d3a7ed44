package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestSessionToken_RoundTrip(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "user-1", time.Hour)
	require.NoError(t, err)

	claims, err := ParseSessionToken(token, testSecret)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "user-1", claims.Subject)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestSessionToken_WrongSecretRejected(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "user-1", time.Hour)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, "other-secret")
	require.Error(t, err)
}

func TestSessionToken_ExpiredRejected(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "user-1", -time.Minute)
	require.NoError(t, err)

	_, err = ParseSessionToken(token, testSecret)
	require.Error(t, err)
}

func TestSessionToken_TamperedRejected(t *testing.T) {
	token, err := GenerateSessionToken(testSecret, "user-1", time.Hour)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = ParseSessionToken(tampered, testSecret)
	require.Error(t, err)
}
