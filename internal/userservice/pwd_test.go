package userservice

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPassword(t *testing.T) {
	var p Password
	require.NoError(t, p.set("Password!23"))

	cost, err := bcrypt.Cost(p.Hash)
	require.NoError(t, err)
	assert.Equal(t, passwordCost, cost)

	ok, err := p.matches("Password!23")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.matches("Password!24")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = (&Password{Hash: []byte("not a hash")}).matches("Password!23")
	assert.Error(t, err)

	assert.Error(t, new(Password).set(strings.Repeat("a", 73)))
}
