// Package api exposes the passkey services as JSON endpoints.
package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/manimate/passkey/internal/authn"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
	"github.com/manimate/passkey/internal/register"
)

// Handlers serves the two passkey endpoints.
type Handlers struct {
	register *register.Service
	authn    *authn.Service
}

// NewHandlers wires the services into the HTTP surface.
func NewHandlers(registerService *register.Service, authnService *authn.Service) Handlers {
	return Handlers{register: registerService, authn: authnService}
}

// RegisterRoutes mounts the passkey endpoints on the mux.
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	mux.HandleFunc("/passkey-register", h.handleRegister)
	mux.HandleFunc("/passkey-authenticate", h.handleAuthenticate)
}

type registerRequest struct {
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	CredentialID string `json:"credentialId"`
	PublicKey    string `json:"publicKey"`
	UserIDBuffer string `json:"userIdBuffer"`
}

type authenticateRequest struct {
	CredentialID      string `json:"credentialId"`
	Signature         string `json:"signature"`
	AuthenticatorData string `json:"authenticatorData"`
	ClientDataJSON    string `json:"clientDataJSON"`
	Challenge         string `json:"challenge"`
}

type userPayload struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

func (h Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload registerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := h.register.Register(r.Context(), register.Input{
		Username:     payload.Username,
		DisplayName:  payload.DisplayName,
		CredentialID: payload.CredentialID,
		PublicKey:    payload.PublicKey,
		UserHandle:   payload.UserIDBuffer,
	})
	if err != nil {
		log.Printf("passkey registration failed for %q: %v", payload.Username, err)
		writeFailure(w, apperrors.HTTPStatus(err), publicMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": userPayload{
			ID:          result.UserID,
			Username:    result.Username,
			DisplayName: result.DisplayName,
		},
	})
}

func (h Handlers) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	writeCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := h.authn.Authenticate(r.Context(), authn.Input{
		CredentialID:      payload.CredentialID,
		Signature:         payload.Signature,
		AuthenticatorData: payload.AuthenticatorData,
		ClientDataJSON:    payload.ClientDataJSON,
		Challenge:         payload.Challenge,
	})
	if err != nil {
		// The log keeps the specific cause; the response stays generic.
		log.Printf("passkey authentication failed for credential %q: %v", payload.CredentialID, err)
		writeFailure(w, apperrors.HTTPStatus(err), publicMessage(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": userPayload{
			ID:          result.UserID,
			Username:    result.Username,
			DisplayName: result.DisplayName,
		},
		"accessToken": result.SessionToken,
	})
}

// publicMessage collapses verification failures into one generic message so
// responses cannot be used as an oracle for which check failed.
func publicMessage(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.CodeUnknownCredential,
		apperrors.CodeSignatureInvalid,
		apperrors.CodeChallengeMismatch,
		apperrors.CodeReplayDetected:
		return "authentication failed"
	case apperrors.CodeInternal:
		return "internal error"
	default:
		return err.Error()
	}
}

func writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}
