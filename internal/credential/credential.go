// Package credential holds the domain model for registered passkeys.
package credential

import (
	"strings"
	"time"

	apperrors "github.com/manimate/passkey/internal/platform/errors"
)

// Record is a registered passkey credential.
//
// CredentialID and the record are created once at registration; Counter is the
// only field mutated afterwards, and only by a successful authentication.
type Record struct {
	CredentialID string // base64url text form, primary lookup key
	UserID       string
	Username     string
	DisplayName  string
	PublicKey    []byte // verification key as received on the wire, immutable
	Counter      uint32
	CreatedAt    time.Time
}

// NormalizeUsername trims and lowercases a username for derivation and display.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// DeriveAccountEmail maps a username onto the synthetic account identifier the
// identity service requires. The mapping is deterministic and is not a
// security boundary; it only exists because the collaborator wants an
// email-shaped handle.
func DeriveAccountEmail(username string) (string, error) {
	normalized := NormalizeUsername(username)
	var local strings.Builder
	for _, r := range normalized {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			local.WriteRune(r)
		}
	}
	if local.Len() == 0 {
		return "", apperrors.New(apperrors.CodeInvalidInput, "username has no usable characters")
	}
	return local.String() + "@passkey.local", nil
}
