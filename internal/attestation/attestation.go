// Package attestation extracts the credential public key from a raw
// attestation object.
//
// The platform credential API exposes a freshly created credential's public
// key directly in DER form on most platforms, but not all; the attestation
// object always carries it, CBOR-wrapped inside the authenticator data. This
// package covers that fallback. Attestation-chain validation against vendor
// roots is deliberately out of scope.
package attestation

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/go-webauthn/webauthn/protocol"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
)

// attestationObject is the CBOR envelope produced by a create ceremony.
type attestationObject struct {
	Format       string          `cbor:"fmt"`
	AttStatement cbor.RawMessage `cbor:"attStmt"`
	AuthData     []byte          `cbor:"authData"`
}

// CredentialPublicKey returns the raw COSE key bytes attested for the new
// credential.
func CredentialPublicKey(raw []byte) ([]byte, error) {
	var obj attestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedEncoding, "decode attestation object", err)
	}

	var authData protocol.AuthenticatorData
	if err := authData.Unmarshal(obj.AuthData); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedEncoding, "parse attested authenticator data", err)
	}
	if !authData.Flags.HasAttestedCredentialData() || len(authData.AttData.CredentialPublicKey) == 0 {
		return nil, apperrors.New(apperrors.CodeMalformedEncoding, "attestation object carries no credential public key")
	}
	return authData.AttData.CredentialPublicKey, nil
}
