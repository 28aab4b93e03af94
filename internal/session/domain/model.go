package domain

import "time"

// Session is the in-memory, observable state of the current user.
// A Session is a value snapshot: the controller hands out copies, never
// a pointer into its own state.
type Session struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	Password    string    `json:"-"`
	DateOfBirth time.Time `json:"date_of_birth"`
	UserNotes   string    `json:"user_notes"`

	IsSignedIn bool `json:"is_signed_in"`

	// One error slot per workflow, surfaced verbatim to the client.
	RegisterError string `json:"register_error,omitempty"`
	LoginError    string `json:"login_error,omitempty"`
	SignOutError  string `json:"sign_out_error,omitempty"`
	UpdateMsg     string `json:"update_msg,omitempty"`

	UpdateSucceeded bool `json:"update_succeeded"`
}

// UserProfile is the persisted profile document, one per user.
// Lookups are keyed by email, not by the provider UID; see the package
// documentation for the consequences.
type UserProfile struct {
	UID         string    `json:"uid"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DateOfBirth time.Time `json:"date_of_birth"`
	UserNotes   string    `json:"user_notes"`
}

// StoredProfile is a UserProfile together with its store-assigned
// document ID, as returned by queries.
type StoredProfile struct {
	DocID string `json:"doc_id"`
	UserProfile
}

// ProfilePatch carries the updatable profile fields. Email and UID are
// never patched.
type ProfilePatch struct {
	Username    string    `json:"username"`
	DateOfBirth time.Time `json:"date_of_birth"`
	UserNotes   string    `json:"user_notes"`
}

// Identity is what the identity provider knows about a signed-in user.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// FederatedCredential is an opaque credential pair obtained from an
// external consent screen (e.g. Google Sign-In) and exchanged with the
// identity provider.
type FederatedCredential struct {
	ProviderID  string `json:"provider_id"`
	IDToken     string `json:"id_token"`
	AccessToken string `json:"access_token"`
}
