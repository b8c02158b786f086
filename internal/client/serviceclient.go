package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ServiceClient submits ceremonies to the registration and authentication
// endpoints.
type ServiceClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewServiceClient returns a client for the given service base URL. A nil
// httpClient falls back to http.DefaultClient.
func NewServiceClient(baseURL string, httpClient *http.Client) (*ServiceClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("service base url is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ServiceClient{baseURL: trimmed, httpClient: httpClient}, nil
}

type registerPayload struct {
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	CredentialID string `json:"credentialId"`
	PublicKey    string `json:"publicKey"`
	UserIDBuffer string `json:"userIdBuffer"`
}

type authenticatePayload struct {
	CredentialID      string `json:"credentialId"`
	Signature         string `json:"signature"`
	AuthenticatorData string `json:"authenticatorData"`
	ClientDataJSON    string `json:"clientDataJSON"`
	Challenge         string `json:"challenge"`
}

// User identifies the account a ceremony resolved to.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type serviceResponse struct {
	Success     bool   `json:"success"`
	Error       string `json:"error"`
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
}

// Register submits a created credential to the registration service.
func (c *ServiceClient) Register(ctx context.Context, payload registerPayload) (User, error) {
	resp, err := c.post(ctx, "/passkey-register", payload)
	if err != nil {
		return User{}, err
	}
	return resp.User, nil
}

// Authenticate submits a signed assertion to the authentication service.
func (c *ServiceClient) Authenticate(ctx context.Context, payload authenticatePayload) (User, string, error) {
	resp, err := c.post(ctx, "/passkey-authenticate", payload)
	if err != nil {
		return User{}, "", err
	}
	return resp.User, resp.AccessToken, nil
}

func (c *ServiceClient) post(ctx context.Context, path string, payload any) (serviceResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return serviceResponse{}, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return serviceResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return serviceResponse{}, fmt.Errorf("submit %s: %w", path, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	var decoded serviceResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		return serviceResponse{}, fmt.Errorf("decode %s response: %w", path, err)
	}
	if !decoded.Success {
		message := strings.TrimSpace(decoded.Error)
		if message == "" {
			message = fmt.Sprintf("service returned status %d", httpResp.StatusCode)
		}
		return serviceResponse{}, fmt.Errorf("service rejected %s: %s", path, message)
	}
	return decoded, nil
}
