package accounts

import (
	"crypto/rand"
	"encoding/base64"
)

const verificationTokenBytes = 16

// GenerateVerificationToken returns an opaque URL safe secret used to prove
// control of the registered email. Single use, cleared once consumed.
func GenerateVerificationToken() string {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process has bigger problems
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
