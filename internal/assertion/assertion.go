// Package assertion verifies signed WebAuthn assertions against stored
// credentials.
//
// Verification recomputes the signed payload from the authenticator data and
// the hash of the client data, then checks the signature with the algorithm
// implied at registration (ES256 or RS256). Public keys arrive either as the
// DER SubjectPublicKeyInfo form the platform credential API exposes directly,
// or as the COSE form extracted from an attestation object.
package assertion

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
)

// RelyingParty scopes assertions to this application.
type RelyingParty struct {
	ID      string   // RP ID hashed into authenticator data
	Origins []string // origins accepted in client data
}

// Input carries one decoded assertion plus the stored verification key.
type Input struct {
	PublicKey         []byte
	Signature         []byte
	AuthenticatorData []byte
	ClientDataJSON    []byte
	Challenge         string // wire text form the ceremony was issued with
}

// Result reports what the authenticator attested.
type Result struct {
	Counter      uint32
	UserVerified bool
}

// Verify checks an assertion end to end: authenticator data shape, RP ID hash,
// presence/verification flags, client data type, challenge echo, origin, and
// finally the signature over authData || SHA-256(clientDataJSON).
func Verify(rp RelyingParty, in Input) (Result, error) {
	var authData protocol.AuthenticatorData
	if err := authData.Unmarshal(in.AuthenticatorData); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeMalformedEncoding, "parse authenticator data", err)
	}

	rpIDHash := sha256.Sum256([]byte(rp.ID))
	if !bytes.Equal(rpIDHash[:], authData.RPIDHash) {
		return Result{}, apperrors.New(apperrors.CodeChallengeMismatch, "assertion is not scoped to this relying party")
	}
	if !authData.Flags.UserPresent() {
		return Result{}, apperrors.New(apperrors.CodeSignatureInvalid, "user presence flag not set")
	}
	if !authData.Flags.UserVerified() {
		return Result{}, apperrors.New(apperrors.CodeSignatureInvalid, "user verification flag not set")
	}

	var clientData protocol.CollectedClientData
	if err := json.Unmarshal(in.ClientDataJSON, &clientData); err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeMalformedEncoding, "parse client data", err)
	}
	if clientData.Type != protocol.AssertCeremony {
		return Result{}, apperrors.New(apperrors.CodeChallengeMismatch, "client data is not an assertion ceremony")
	}
	if clientData.Challenge != in.Challenge {
		return Result{}, apperrors.New(apperrors.CodeChallengeMismatch, "client data challenge does not match issued challenge")
	}
	if !originAllowed(rp.Origins, clientData.Origin) {
		return Result{}, apperrors.New(apperrors.CodeChallengeMismatch, "client data origin is not allowed")
	}

	clientDataHash := sha256.Sum256(in.ClientDataJSON)
	signed := make([]byte, 0, len(in.AuthenticatorData)+len(clientDataHash))
	signed = append(signed, in.AuthenticatorData...)
	signed = append(signed, clientDataHash[:]...)

	if err := verifySignature(in.PublicKey, signed, in.Signature); err != nil {
		return Result{}, err
	}

	return Result{
		Counter:      authData.Counter,
		UserVerified: authData.Flags.UserVerified(),
	}, nil
}

func originAllowed(allowed []string, origin string) bool {
	candidate := strings.TrimRight(strings.TrimSpace(origin), "/")
	for _, entry := range allowed {
		if strings.TrimRight(strings.TrimSpace(entry), "/") == candidate {
			return true
		}
	}
	return false
}

// verifySignature accepts DER SubjectPublicKeyInfo keys first and falls back
// to COSE key parsing for credentials registered via the attestation-object
// path.
func verifySignature(publicKey, message, signature []byte) error {
	if parsed, err := x509.ParsePKIXPublicKey(publicKey); err == nil {
		digest := sha256.Sum256(message)
		switch key := parsed.(type) {
		case *ecdsa.PublicKey:
			if !ecdsa.VerifyASN1(key, digest[:], signature) {
				return apperrors.New(apperrors.CodeSignatureInvalid, "ES256 signature does not verify")
			}
			return nil
		case *rsa.PublicKey:
			if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature); err != nil {
				return apperrors.Wrap(apperrors.CodeSignatureInvalid, "RS256 signature does not verify", err)
			}
			return nil
		default:
			return apperrors.New(apperrors.CodeSignatureInvalid, "unsupported public key type")
		}
	}

	coseKey, err := webauthncose.ParsePublicKey(publicKey)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSignatureInvalid, "parse stored public key", err)
	}
	ok, err := webauthncose.VerifySignature(coseKey, message, signature)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeSignatureInvalid, "verify signature", err)
	}
	if !ok {
		return apperrors.New(apperrors.CodeSignatureInvalid, "signature does not verify")
	}
	return nil
}
