// Package toolbox provides a client for an MCP Toolbox server exposing the
// travel database tools, plus a mock client that serves the same tools
// directly from the warehouse for development without a Toolbox server.
package toolbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AgentID identifies this agent to the Toolbox server.
const AgentID = "travel_advisor_agent"

// AuthProvider produces authenticated request headers for Toolbox calls.
//
// Tokens come from an oauth2.TokenSource, which handles refresh
// transparently. The default provider uses Application Default Credentials
// with the cloud-platform scope.
type AuthProvider struct {
	projectID   string
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
}

// NewAuthProvider creates an auth provider backed by Application Default
// Credentials. An empty projectID falls back to GOOGLE_CLOUD_PROJECT.
func NewAuthProvider(ctx context.Context, projectID string) (*AuthProvider, error) {
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, fmt.Errorf("project ID must be provided or set in GOOGLE_CLOUD_PROJECT")
	}

	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credentials: %w", err)
	}

	return &AuthProvider{
		projectID:   projectID,
		tokenSource: oauth2.ReuseTokenSource(nil, creds.TokenSource),
		logger:      slog.Default(),
	}, nil
}

// NewStaticAuthProvider creates an auth provider with a fixed token.
// Intended for tests and local Toolbox servers without real auth.
func NewStaticAuthProvider(projectID, token string) *AuthProvider {
	return &AuthProvider{
		projectID:   projectID,
		tokenSource: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		logger:      slog.Default(),
	}
}

// Token returns a valid access token, refreshing if needed.
func (a *AuthProvider) Token() (string, error) {
	token, err := a.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get auth token: %w", err)
	}
	return token.AccessToken, nil
}

// Headers returns the authentication headers for Toolbox requests.
func (a *AuthProvider) Headers() (map[string]string, error) {
	token, err := a.Token()
	if err != nil {
		return nil, err
	}
	return map[string]string{
		"Authorization":          "Bearer " + token,
		"X-Agent-ID":             AgentID,
		"X-Google-Cloud-Project": a.projectID,
	}, nil
}

// ProjectID returns the configured project.
func (a *AuthProvider) ProjectID() string {
	return a.projectID
}
