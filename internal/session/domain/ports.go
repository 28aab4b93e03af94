package domain

import "context"

// IdentityProvider is the external authentication service. Adapters
// surface provider failures as plain errors; their messages are shown
// to users verbatim.
type IdentityProvider interface {
	// CreateAccount registers a new (email, password) account and
	// signs it in.
	CreateAccount(ctx context.Context, email, password string) (Identity, error)

	// SignIn authenticates an existing (email, password) pair.
	SignIn(ctx context.Context, email, password string) (Identity, error)

	// SignInWithCredential exchanges a federated credential for a
	// provider identity.
	SignInWithCredential(ctx context.Context, cred FederatedCredential) (Identity, error)

	// SignOut ends the provider-side session. Safe to call repeatedly.
	SignOut(ctx context.Context) error

	// CurrentIdentity reports the identity signed in through this
	// provider instance, if any.
	CurrentIdentity() (Identity, bool)
}

// ProfileStore is the external document database holding user profiles.
//
// Insert is best-effort from the caller's point of view during
// registration: the controller logs insert failures without surfacing
// them into session state. That is a documented contract, not an
// accident.
type ProfileStore interface {
	Insert(ctx context.Context, profile UserProfile) (string, error)

	// FindByEmail returns every document whose email field matches, in
	// store order. An empty slice with a nil error means no match.
	FindByEmail(ctx context.Context, email string) ([]StoredProfile, error)

	// Update rewrites the patchable fields of a single document.
	Update(ctx context.Context, docID string, patch ProfilePatch) error
}

// CredentialSource produces a federated credential, typically by
// driving an interactive consent screen. The core treats it as a
// black box.
type CredentialSource interface {
	Credential(ctx context.Context) (FederatedCredential, error)
}
