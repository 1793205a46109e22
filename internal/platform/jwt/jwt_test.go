package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	m := NewManager("secret", "pollfeed")

	token, err := m.Generate(42, time.Hour)
	require.NoError(t, err)

	claims, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "pollfeed", claims.Issuer)
}

func TestParse_Expired(t *testing.T) {
	m := NewManager("secret", "pollfeed")

	token, err := m.Generate(42, -time.Minute)
	require.NoError(t, err)

	_, err = m.Parse(token)
	assert.Error(t, err)
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", "pollfeed").Generate(42, time.Hour)
	require.NoError(t, err)

	_, err = NewManager("secret-b", "pollfeed").Parse(token)
	assert.Error(t, err)
}
