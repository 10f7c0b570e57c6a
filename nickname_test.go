package accounts_test

import (
	"regexp"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestGenerateNicknameFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-z]+_[a-z]+_\d+$`)

	for i := 0; i < 20; i++ {
		nickname := accounts.GenerateNickname()
		assert.Regexp(t, pattern, nickname)
	}
}

func TestGenerateNicknameVariety(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[accounts.GenerateNickname()] = true
	}

	// collisions are possible but a run of identical draws is not
	assert.Greater(t, len(seen), 1)
}
