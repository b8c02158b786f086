package client

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/manimate/passkey/internal/api"
	"github.com/manimate/passkey/internal/assertion"
	"github.com/manimate/passkey/internal/authn"
	"github.com/manimate/passkey/internal/identity/local"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
	"github.com/manimate/passkey/internal/register"
	"github.com/manimate/passkey/internal/storage/sqlite"
)

const (
	testRPID   = "localhost"
	testOrigin = "http://localhost:5173"
)

// softwareAuthenticator is an in-process stand-in for the platform credential
// API. It holds one ES256 key and signs real assertions.
type softwareAuthenticator struct {
	available bool
	origin    string
	emitDER   bool
	createErr error
	getErr    error

	key     *ecdsa.PrivateKey
	credID  []byte
	counter uint32
}

func newSoftwareAuthenticator(t *testing.T) *softwareAuthenticator {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &softwareAuthenticator{
		available: true,
		origin:    testOrigin,
		emitDER:   true,
		key:       key,
		credID:    []byte("software-credential-1"),
	}
}

func (a *softwareAuthenticator) Available() bool { return a.available }

func (a *softwareAuthenticator) Create(_ context.Context, req CreationRequest) (*CreatedCredential, error) {
	if a.createErr != nil {
		return nil, a.createErr
	}
	created := &CreatedCredential{ID: a.credID}
	if a.emitDER {
		der, err := x509.MarshalPKIXPublicKey(&a.key.PublicKey)
		if err != nil {
			return nil, err
		}
		created.PublicKey = der
		return created, nil
	}

	coseKey, err := cbor.Marshal(map[int64]any{
		1:  2,
		3:  -7,
		-1: 1,
		-2: a.key.X.FillBytes(make([]byte, 32)),
		-3: a.key.Y.FillBytes(make([]byte, 32)),
	})
	if err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(req.RelyingPartyID))
	authData := make([]byte, 0, 128)
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, 0x45) // UP | UV | AT
	authData = append(authData, 0, 0, 0, 0)
	authData = append(authData, make([]byte, 16)...)
	var idLen [2]byte
	binary.BigEndian.PutUint16(idLen[:], uint16(len(a.credID)))
	authData = append(authData, idLen[:]...)
	authData = append(authData, a.credID...)
	authData = append(authData, coseKey...)

	created.AttestationObject, err = cbor.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (a *softwareAuthenticator) Get(_ context.Context, req AssertionRequest) (*AssertionResult, error) {
	if a.getErr != nil {
		return nil, a.getErr
	}
	a.counter++

	rpIDHash := sha256.Sum256([]byte(req.RelyingPartyID))
	authData := make([]byte, 0, 37)
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, 0x05) // UP | UV
	var counterBytes [4]byte
	binary.BigEndian.PutUint32(counterBytes[:], a.counter)
	authData = append(authData, counterBytes[:]...)

	clientData, err := json.Marshal(map[string]string{
		"type":      "webauthn.get",
		"challenge": req.Challenge.Encode(),
		"origin":    a.origin,
	})
	if err != nil {
		return nil, err
	}

	clientDataHash := sha256.Sum256(clientData)
	payload := append(append([]byte{}, authData...), clientDataHash[:]...)
	digest := sha256.Sum256(payload)
	signature, err := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	if err != nil {
		return nil, err
	}

	return &AssertionResult{
		CredentialID:      a.credID,
		Signature:         signature,
		AuthenticatorData: authData,
		ClientDataJSON:    clientData,
	}, nil
}

func newBackend(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "backend.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	accounts, err := local.New(store.DB(), local.Config{
		Issuer:     "test-issuer",
		SigningKey: []byte("test-signing-key"),
		SessionTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new identity service: %v", err)
	}

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandlers(
		register.New(accounts, store),
		authn.New(store, accounts, assertion.RelyingParty{ID: testRPID, Origins: []string{testOrigin}}),
	))

	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestManager(t *testing.T, auth Authenticator, serverURL string) (*Manager, *FilePointerStore) {
	t.Helper()
	pointers, err := NewFilePointerStore(filepath.Join(t.TempDir(), "pointer.json"))
	if err != nil {
		t.Fatalf("new pointer store: %v", err)
	}
	services, err := NewServiceClient(serverURL, nil)
	if err != nil {
		t.Fatalf("new service client: %v", err)
	}
	manager, err := NewManager(auth, pointers, services, RelyingParty{ID: testRPID, Name: "Manimate"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, pointers
}

func TestRegisterAndAuthenticate(t *testing.T) {
	server, _ := newBackend(t)
	auth := newSoftwareAuthenticator(t)
	manager, pointers := newTestManager(t, auth, server.URL)
	ctx := context.Background()

	user, err := manager.Register(ctx, "alice", "Alice Example")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("Username = %q, want %q", user.Username, "alice")
	}

	pointer, ok, err := pointers.Load()
	if err != nil || !ok {
		t.Fatalf("pointer after register: ok=%v err=%v", ok, err)
	}
	if pointer.Username != "alice" {
		t.Fatalf("pointer username = %q, want %q", pointer.Username, "alice")
	}

	session, err := manager.Authenticate(ctx)
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if session.AccessToken == "" {
		t.Fatal("Authenticate() returned empty access token")
	}
	if session.User.Username != "alice" {
		t.Fatalf("session username = %q, want %q", session.User.Username, "alice")
	}

	// A second login must advance past the first counter.
	if _, err := manager.Authenticate(ctx); err != nil {
		t.Fatalf("second Authenticate() error: %v", err)
	}
}

func TestRegisterWithAttestationObjectFallback(t *testing.T) {
	server, _ := newBackend(t)
	auth := newSoftwareAuthenticator(t)
	auth.emitDER = false
	manager, _ := newTestManager(t, auth, server.URL)
	ctx := context.Background()

	if _, err := manager.Register(ctx, "alice", "Alice Example"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	session, err := manager.Authenticate(ctx)
	if err != nil {
		t.Fatalf("Authenticate() with COSE-registered key error: %v", err)
	}
	if session.AccessToken == "" {
		t.Fatal("Authenticate() returned empty access token")
	}
}

func TestRegisterUnsupportedPlatform(t *testing.T) {
	server, requests := newBackend(t)
	auth := newSoftwareAuthenticator(t)
	auth.available = false
	manager, pointers := newTestManager(t, auth, server.URL)

	_, err := manager.Register(context.Background(), "alice", "Alice Example")
	if apperrors.CodeOf(err) != apperrors.CodePlatformUnsupported {
		t.Fatalf("error code = %v, want %v", apperrors.CodeOf(err), apperrors.CodePlatformUnsupported)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("unsupported platform made %d network calls, want 0", got)
	}
	if _, ok, _ := pointers.Load(); ok {
		t.Fatal("unsupported platform wrote a pointer")
	}
}

func TestAuthenticateWithoutLocalCredential(t *testing.T) {
	server, requests := newBackend(t)
	auth := newSoftwareAuthenticator(t)
	manager, _ := newTestManager(t, auth, server.URL)

	_, err := manager.Authenticate(context.Background())
	if apperrors.CodeOf(err) != apperrors.CodeNoLocalCredential {
		t.Fatalf("error code = %v, want %v", apperrors.CodeOf(err), apperrors.CodeNoLocalCredential)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("missing pointer made %d network calls, want 0", got)
	}
}

func TestRegisterCeremonyFailure(t *testing.T) {
	server, requests := newBackend(t)
	auth := newSoftwareAuthenticator(t)
	auth.createErr = errors.New("user dismissed the prompt")
	manager, pointers := newTestManager(t, auth, server.URL)

	_, err := manager.Register(context.Background(), "alice", "Alice Example")
	if apperrors.CodeOf(err) != apperrors.CodeCeremonyFailed {
		t.Fatalf("error code = %v, want %v", apperrors.CodeOf(err), apperrors.CodeCeremonyFailed)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("failed ceremony made %d network calls, want 0", got)
	}
	if _, ok, _ := pointers.Load(); ok {
		t.Fatal("failed ceremony wrote a pointer")
	}
}

func TestAuthenticateFailureKeepsPointer(t *testing.T) {
	server, _ := newBackend(t)
	auth := newSoftwareAuthenticator(t)
	manager, pointers := newTestManager(t, auth, server.URL)
	ctx := context.Background()

	if _, err := manager.Register(ctx, "alice", "Alice Example"); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	// Assertions from a foreign origin are rejected server-side; the local
	// pointer must survive the failed login.
	auth.origin = "https://evil.example"
	if _, err := manager.Authenticate(ctx); err == nil {
		t.Fatal("Authenticate() with a foreign origin should fail")
	}

	if _, ok, err := pointers.Load(); err != nil || !ok {
		t.Fatalf("pointer after failed login: ok=%v err=%v", ok, err)
	}

	auth.origin = testOrigin
	if _, err := manager.Authenticate(ctx); err != nil {
		t.Fatalf("Authenticate() after recovery error: %v", err)
	}
}

func TestRegisterRequiresUsername(t *testing.T) {
	server, _ := newBackend(t)
	auth := newSoftwareAuthenticator(t)
	manager, _ := newTestManager(t, auth, server.URL)

	_, err := manager.Register(context.Background(), "", "Alice Example")
	if apperrors.CodeOf(err) != apperrors.CodeInvalidInput {
		t.Fatalf("error code = %v, want %v", apperrors.CodeOf(err), apperrors.CodeInvalidInput)
	}
}
