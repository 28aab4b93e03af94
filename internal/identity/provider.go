package identity

import (
	"context"
	"fmt"
	"sync"

	"firebase.google.com/go/v4/auth"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

// Provider implements domain.IdentityProvider against Firebase: the
// Identity Toolkit REST API for the user-facing flows, plus an optional
// Admin SDK client used to revoke refresh tokens on sign-out.
type Provider struct {
	toolkit *ToolkitClient
	admin   *auth.Client

	mu      sync.Mutex
	current domain.Identity
}

// NewProvider wires the toolkit client and an optional admin client.
// admin may be nil; sign-out then only drops the local identity.
func NewProvider(toolkit *ToolkitClient, admin *auth.Client) *Provider {
	return &Provider{toolkit: toolkit, admin: admin}
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (domain.Identity, error) {
	res, err := p.toolkit.SignUp(ctx, email, password)
	if err != nil {
		return domain.Identity{}, err
	}
	return p.setCurrent(res), nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	res, err := p.toolkit.SignInWithPassword(ctx, email, password)
	if err != nil {
		return domain.Identity{}, err
	}
	return p.setCurrent(res), nil
}

func (p *Provider) SignInWithCredential(ctx context.Context, cred domain.FederatedCredential) (domain.Identity, error) {
	providerID := cred.ProviderID
	if providerID == "" {
		providerID = "google.com"
	}
	res, err := p.toolkit.SignInWithIDP(ctx, providerID, cred.IDToken, cred.AccessToken)
	if err != nil {
		return domain.Identity{}, err
	}
	return p.setCurrent(res), nil
}

// SignOut invalidates the provider-side session. With an admin client
// configured, outstanding refresh tokens are revoked; a revocation
// failure keeps the local identity so the call can be retried.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if p.admin != nil && current.UID != "" {
		if err := p.admin.RevokeRefreshTokens(ctx, current.UID); err != nil {
			return fmt.Errorf("revoke refresh tokens: %w", err)
		}
	}

	p.mu.Lock()
	p.current = domain.Identity{}
	p.mu.Unlock()
	return nil
}

func (p *Provider) CurrentIdentity() (domain.Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current.UID != ""
}

func (p *Provider) setCurrent(res *AuthResult) domain.Identity {
	id := domain.Identity{UID: res.LocalID, Email: res.Email}
	p.mu.Lock()
	p.current = id
	p.mu.Unlock()
	return id
}
