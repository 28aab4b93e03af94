package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultToolkitBaseURL = "https://identitytoolkit.googleapis.com/v1"
	toolkitTimeout        = 15 * time.Second
)

// ToolkitClient talks to the Identity Toolkit REST API, the endpoint
// family the Firebase client SDKs use for password and federated
// sign-in. The Admin SDK deliberately has no password sign-in, so a
// server acting on behalf of a user goes through these endpoints.
type ToolkitClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewToolkitClient creates a client authenticated by the project's web
// API key.
func NewToolkitClient(apiKey string) *ToolkitClient {
	return &ToolkitClient{
		baseURL: defaultToolkitBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: toolkitTimeout},
	}
}

// NewToolkitClientWithBaseURL points the client at a non-default
// endpoint, e.g. the Firebase Auth emulator or a test server.
func NewToolkitClientWithBaseURL(apiKey, baseURL string) *ToolkitClient {
	c := NewToolkitClient(apiKey)
	c.baseURL = baseURL
	return c
}

// AuthResult is the subset of the Identity Toolkit response the session
// workflows consume.
type AuthResult struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type toolkitErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp creates a new email/password account.
func (c *ToolkitClient) SignUp(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.post(ctx, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignInWithPassword authenticates an existing email/password account.
func (c *ToolkitClient) SignInWithPassword(ctx context.Context, email, password string) (*AuthResult, error) {
	return c.post(ctx, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignInWithIDP exchanges a federated credential (e.g. a Google ID
// token obtained from a consent screen) for a Firebase identity.
func (c *ToolkitClient) SignInWithIDP(ctx context.Context, providerID, idToken, accessToken string) (*AuthResult, error) {
	postBody := fmt.Sprintf("id_token=%s&providerId=%s", idToken, providerID)
	if accessToken != "" {
		postBody += "&access_token=" + accessToken
	}
	return c.post(ctx, "accounts:signInWithIdp", map[string]any{
		"postBody":            postBody,
		"requestUri":          "http://localhost",
		"returnIdpCredential": true,
		"returnSecureToken":   true,
	})
}

func (c *ToolkitClient) post(ctx context.Context, endpoint string, body map[string]any) (*AuthResult, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?key=%s", c.baseURL, endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity toolkit request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var eb toolkitErrorBody
		if err := json.Unmarshal(data, &eb); err == nil && eb.Error.Message != "" {
			return nil, fmt.Errorf("%s", eb.Error.Message)
		}
		return nil, fmt.Errorf("identity toolkit returned status %d", resp.StatusCode)
	}

	var result AuthResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
