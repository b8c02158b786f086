package client

import (
	"context"
	"time"

	"github.com/manimate/passkey/internal/challenge"
)

// COSE algorithm identifiers, in the preference order requested at creation.
const (
	AlgES256 int64 = -7
	AlgRS256 int64 = -257
)

// CeremonyTimeout bounds how long the platform waits for user presence.
const CeremonyTimeout = 60 * time.Second

// CreationRequest asks the platform to mint a new credential scoped to the
// relying party.
type CreationRequest struct {
	Challenge        challenge.Challenge
	RelyingPartyID   string
	RelyingPartyName string
	UserHandle       []byte
	Username         string
	DisplayName      string
	Algorithms       []int64 // COSE identifiers in preference order
	Timeout          time.Duration
}

// CreatedCredential is the outcome of a successful create ceremony.
//
// PublicKey carries the DER SubjectPublicKeyInfo form when the platform can
// expose it directly; otherwise it is nil and AttestationObject carries the
// key in COSE form.
type CreatedCredential struct {
	ID                []byte
	PublicKey         []byte
	AttestationObject []byte
}

// AssertionRequest asks the platform to sign with an existing credential.
type AssertionRequest struct {
	Challenge           challenge.Challenge
	RelyingPartyID      string
	AllowedCredentialID []byte
	Timeout             time.Duration
}

// AssertionResult is the signed proof produced by a get ceremony.
type AssertionResult struct {
	CredentialID      []byte
	Signature         []byte
	AuthenticatorData []byte
	ClientDataJSON    []byte
}

// Authenticator abstracts the platform's secure public-key credential API.
//
// Ceremonies block until user interaction completes or the timeout expires;
// an in-flight ceremony cannot be forcibly cancelled once interaction has
// started. The platform does not distinguish timeout from user cancellation.
type Authenticator interface {
	// Available reports whether the platform exposes the credential API at
	// all. When false, every ceremony fails without side effects.
	Available() bool

	Create(ctx context.Context, req CreationRequest) (*CreatedCredential, error)
	Get(ctx context.Context, req AssertionRequest) (*AssertionResult, error)
}
