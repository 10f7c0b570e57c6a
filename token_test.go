package accounts_test

import (
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestGenerateVerificationToken(t *testing.T) {
	token1 := accounts.GenerateVerificationToken()
	token2 := accounts.GenerateVerificationToken()

	assert.Greater(t, len(token1), 16)
	assert.NotEqual(t, token1, token2)

	// URL safe: no padding, no characters needing escaping
	assert.NotContains(t, token1, "=")
	assert.NotContains(t, token1, "+")
	assert.NotContains(t, token1, "/")
}
