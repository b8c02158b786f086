// Package challenge produces the single-use random nonces bound to each
// ceremony.
package challenge

import (
	"crypto/rand"
	"fmt"

	"github.com/manimate/passkey/internal/platform/b64url"
)

// Size is the challenge length in bytes.
const Size = 32

// Challenge is a single-use random nonce. It is bound to exactly one ceremony
// and never persisted beyond it.
type Challenge []byte

// New draws a fresh challenge from the cryptographically secure random source.
//
// There is no error path: a failing random source makes every security
// property of the ceremony void, so it is fatal to the process.
func New() Challenge {
	buf := make([]byte, Size)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("challenge: random source unavailable: %v", err))
	}
	return Challenge(buf)
}

// Encode returns the wire text form of the challenge.
func (c Challenge) Encode() string {
	return b64url.Encode(c)
}
