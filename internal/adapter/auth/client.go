// Package auth resolves bearer credentials against the external identity
// provider. Token verification itself happens on the provider's side; this
// client only exchanges the opaque token for an identity and trusts the
// result.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Identity is the provider's view of an authenticated principal.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name,omitempty"`
}

// Verifier resolves an opaque credential to an identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Client verifies tokens over HTTP against the provider's verification
// endpoint.
type Client struct {
	verifyURL  string
	httpClient *http.Client
}

// NewClient creates a verification client.
func NewClient(verifyURL string, timeout time.Duration) *Client {
	return &Client{
		verifyURL: strings.TrimSuffix(verifyURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Verifier = (*Client)(nil)

// Verify exchanges the token for an identity. Any non-200 answer means the
// token is expired, revoked, or malformed; callers treat all of those the
// same way.
func (c *Client) Verify(ctx context.Context, token string) (*Identity, error) {
	body, err := json.Marshal(map[string]string{"id_token": token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach identity provider: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token rejected [%d]: %s", resp.StatusCode, string(respBody))
	}

	var identity Identity
	if err := json.Unmarshal(respBody, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity: %w", err)
	}
	if identity.UID == "" {
		return nil, fmt.Errorf("identity provider returned no uid")
	}
	return &identity, nil
}

// StaticVerifier maps fixed tokens to identities. Used in tests and mock
// mode.
type StaticVerifier struct {
	Identities map[string]Identity
}

// Verify looks the token up in the static table.
func (s *StaticVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if id, ok := s.Identities[token]; ok {
		return &id, nil
	}
	return nil, fmt.Errorf("token rejected")
}

var _ Verifier = (*StaticVerifier)(nil)

// InsecureVerifier accepts every token and uses it verbatim as the subject
// identifier. Development only.
type InsecureVerifier struct{}

func (InsecureVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, fmt.Errorf("token rejected")
	}
	return &Identity{UID: token, Email: token + "@local"}, nil
}

var _ Verifier = InsecureVerifier{}
