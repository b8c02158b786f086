// Package client orchestrates the create and get ceremonies against the
// platform credential API and the two backend services.
package client

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/manimate/passkey/internal/attestation"
	"github.com/manimate/passkey/internal/challenge"
	"github.com/manimate/passkey/internal/platform/b64url"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
)

// userHandleSize is the random user handle length minted at registration.
const userHandleSize = 64

// RelyingParty identifies the application to the platform authenticator.
type RelyingParty struct {
	ID   string
	Name string
}

// Session is the outcome of a successful authentication ceremony.
type Session struct {
	User        User
	AccessToken string
}

// Manager drives credential ceremonies for one device.
//
// Only one ceremony runs at a time per manager; a second call queues behind
// the first rather than interleaving, matching the platform API's own
// per-origin serialization.
type Manager struct {
	mu       sync.Mutex
	platform Authenticator
	pointers PointerStore
	services *ServiceClient
	rp       RelyingParty
}

// NewManager wires a credential manager from its collaborators.
func NewManager(platform Authenticator, pointers PointerStore, services *ServiceClient, rp RelyingParty) (*Manager, error) {
	if platform == nil {
		return nil, fmt.Errorf("authenticator is required")
	}
	if pointers == nil {
		return nil, fmt.Errorf("pointer store is required")
	}
	if services == nil {
		return nil, fmt.Errorf("service client is required")
	}
	return &Manager{
		platform: platform,
		pointers: pointers,
		services: services,
		rp:       rp,
	}, nil
}

// Register runs the registration ceremony end to end: create a platform
// credential for the challenge, submit it to the registration service, and on
// success persist the local pointer.
//
// On any failure no local state is written.
func (m *Manager) Register(ctx context.Context, username, displayName string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.platform.Available() {
		return User{}, apperrors.New(apperrors.CodePlatformUnsupported, "platform has no public-key credential API")
	}
	if username == "" {
		return User{}, apperrors.New(apperrors.CodeInvalidInput, "username is required")
	}
	if displayName == "" {
		return User{}, apperrors.New(apperrors.CodeInvalidInput, "display name is required")
	}

	ch := challenge.New()
	userHandle := make([]byte, userHandleSize)
	if _, err := rand.Read(userHandle); err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "generate user handle", err)
	}

	created, err := m.platform.Create(ctx, CreationRequest{
		Challenge:        ch,
		RelyingPartyID:   m.rp.ID,
		RelyingPartyName: m.rp.Name,
		UserHandle:       userHandle,
		Username:         username,
		DisplayName:      displayName,
		Algorithms:       []int64{AlgES256, AlgRS256},
		Timeout:          CeremonyTimeout,
	})
	if err != nil {
		return User{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "create credential", err)
	}

	publicKey := created.PublicKey
	if len(publicKey) == 0 {
		// Some platforms never expose the DER key directly; fall back to the
		// COSE key inside the attestation object.
		publicKey, err = attestation.CredentialPublicKey(created.AttestationObject)
		if err != nil {
			return User{}, err
		}
	}

	credentialID := b64url.Encode(created.ID)
	user, err := m.services.Register(ctx, registerPayload{
		Username:     username,
		DisplayName:  displayName,
		CredentialID: credentialID,
		PublicKey:    b64url.Encode(publicKey),
		UserIDBuffer: b64url.Encode(userHandle),
	})
	if err != nil {
		return User{}, fmt.Errorf("register passkey: %w", err)
	}

	if err := m.pointers.Save(Pointer{CredentialID: credentialID, Username: user.Username}); err != nil {
		return User{}, fmt.Errorf("persist credential pointer: %w", err)
	}
	return user, nil
}

// Authenticate runs the authentication ceremony using the locally stored
// credential pointer.
//
// Local state is left untouched on failure; a failed login never destroys the
// pointer.
func (m *Manager) Authenticate(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.platform.Available() {
		return Session{}, apperrors.New(apperrors.CodePlatformUnsupported, "platform has no public-key credential API")
	}

	pointer, ok, err := m.pointers.Load()
	if err != nil {
		return Session{}, fmt.Errorf("load credential pointer: %w", err)
	}
	if !ok {
		return Session{}, apperrors.New(apperrors.CodeNoLocalCredential, "no passkey registered on this device")
	}

	rawID, err := b64url.Decode(pointer.CredentialID)
	if err != nil {
		return Session{}, err
	}

	ch := challenge.New()
	result, err := m.platform.Get(ctx, AssertionRequest{
		Challenge:           ch,
		RelyingPartyID:      m.rp.ID,
		AllowedCredentialID: rawID,
		Timeout:             CeremonyTimeout,
	})
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeCeremonyFailed, "get assertion", err)
	}

	user, token, err := m.services.Authenticate(ctx, authenticatePayload{
		CredentialID:      pointer.CredentialID,
		Signature:         b64url.Encode(result.Signature),
		AuthenticatorData: b64url.Encode(result.AuthenticatorData),
		ClientDataJSON:    b64url.Encode(result.ClientDataJSON),
		Challenge:         ch.Encode(),
	})
	if err != nil {
		return Session{}, fmt.Errorf("authenticate passkey: %w", err)
	}

	return Session{User: user, AccessToken: token}, nil
}
