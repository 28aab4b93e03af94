// Package service implements the session workflows: register, password
// login, federated login, profile update and sign-out. Each workflow is
// a single best-effort remote call sequence against the identity
// provider and the profile store; there are no retries and no rollback.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

// Controller owns one Session. Every workflow outcome is applied as a
// single transition under the lock, so observers always see a complete
// before- or after-state, never a partial write.
//
// The controller does not serialize concurrent workflow invocations
// against each other; callers that share a Controller must do so (the
// HTTP layer holds one mutex per session entry).
type Controller struct {
	identity domain.IdentityProvider
	profiles domain.ProfileStore
	creds    domain.CredentialSource

	mu       sync.Mutex
	sess     domain.Session
	watchers []chan domain.Session

	now func() time.Time
}

// New creates a Controller with an empty session. creds may be nil when
// federated login is not used.
func New(identity domain.IdentityProvider, profiles domain.ProfileStore, creds domain.CredentialSource) *Controller {
	c := &Controller{
		identity: identity,
		profiles: profiles,
		creds:    creds,
		now:      time.Now,
	}
	c.sess = c.defaultSession()
	return c
}

func (c *Controller) defaultSession() domain.Session {
	return domain.Session{DateOfBirth: c.now()}
}

// Snapshot returns a copy of the current session state.
func (c *Controller) Snapshot() domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Restore seeds the session state, e.g. from a persisted snapshot.
func (c *Controller) Restore(sess domain.Session) {
	c.apply(func(s *domain.Session) { *s = sess })
}

// Watch returns a channel that receives a session snapshot after every
// applied transition. Slow consumers miss intermediate states; the
// latest snapshot is always retrievable via Snapshot.
func (c *Controller) Watch() <-chan domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan domain.Session, 1)
	c.watchers = append(c.watchers, ch)
	return ch
}

// apply mutates the session under the lock and notifies watchers with
// the resulting snapshot.
func (c *Controller) apply(fn func(*domain.Session)) {
	c.mu.Lock()
	fn(&c.sess)
	snap := c.sess
	watchers := c.watchers
	c.mu.Unlock()

	for _, ch := range watchers {
		select {
		case ch <- snap:
		default:
			// Drop the stale snapshot so the fresh one fits.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Email       string
	Password    string
	Username    string
	DateOfBirth time.Time
	UserNotes   string
}

// Register creates a provider account and stores the initial profile
// document. The profile insert is fire-and-forget: a failure is logged
// but never surfaced into session state, and the identity stays created
// (reconciliation is a separate job). IsSignedIn is left untouched.
func (c *Controller) Register(ctx context.Context, in RegisterInput) error {
	id, err := c.identity.CreateAccount(ctx, in.Email, in.Password)
	if err != nil {
		c.apply(func(s *domain.Session) {
			s.RegisterError = err.Error()
		})
		return fmt.Errorf("create account: %w", err)
	}

	c.apply(func(s *domain.Session) {
		s.UserID = id.UID
		s.Email = in.Email
		s.Password = in.Password
		s.Username = in.Username
		s.DateOfBirth = in.DateOfBirth
		s.UserNotes = in.UserNotes
		s.RegisterError = ""
	})

	profile := domain.UserProfile{
		UID:         id.UID,
		Email:       in.Email,
		Username:    in.Username,
		DateOfBirth: in.DateOfBirth,
		UserNotes:   in.UserNotes,
	}
	if _, err := c.profiles.Insert(ctx, profile); err != nil {
		log.Printf("[session] storing user data for %s: %v", in.Email, err)
	}
	return nil
}

// Login authenticates an (email, password) pair and hydrates the
// session from the first matching profile document. When the provider
// succeeds but no profile document matches the email, the session is
// left untouched and no error is raised.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	id, err := c.identity.SignIn(ctx, email, password)
	if err != nil {
		c.apply(func(s *domain.Session) {
			s.LoginError = err.Error()
		})
		return fmt.Errorf("sign in: %w", err)
	}

	if id.UID == "" {
		// Provider-level success with no usable identity.
		c.apply(func(s *domain.Session) {
			s.LoginError = "Invalid Credentials"
		})
		return domain.ErrInvalidCredentials
	}

	docs, err := c.profiles.FindByEmail(ctx, email)
	if err != nil {
		c.apply(func(s *domain.Session) {
			s.LoginError = fmt.Sprintf("Error retrieving document: %v", err)
		})
		return fmt.Errorf("find profile: %w", err)
	}

	if len(docs) == 0 {
		// No profile for a valid identity: deliberately a no-op.
		c.apply(func(s *domain.Session) {
			s.LoginError = ""
		})
		return nil
	}

	doc := docs[0]
	c.apply(func(s *domain.Session) {
		s.UserID = id.UID
		s.Email = doc.Email
		s.Password = password
		s.Username = doc.Username
		s.DateOfBirth = c.dateOrNow(doc.DateOfBirth)
		s.UserNotes = doc.UserNotes
		s.LoginError = ""
	})
	return nil
}

// LoginFederated obtains a credential from the configured source,
// exchanges it with the identity provider, and hydrates or
// auto-registers the profile. It reports true once the exchange has
// succeeded; the profile step is best-effort and never flips the
// return value.
func (c *Controller) LoginFederated(ctx context.Context) (bool, error) {
	if c.creds == nil {
		return false, fmt.Errorf("no federated credential source configured")
	}

	cred, err := c.creds.Credential(ctx)
	if err != nil {
		c.apply(func(s *domain.Session) {
			s.LoginError = err.Error()
		})
		return false, fmt.Errorf("obtain credential: %w", err)
	}

	id, err := c.identity.SignInWithCredential(ctx, cred)
	if err != nil {
		c.apply(func(s *domain.Session) {
			s.LoginError = err.Error()
		})
		return false, fmt.Errorf("exchange credential: %w", err)
	}

	c.apply(func(s *domain.Session) {
		s.UserID = id.UID
		s.Email = id.Email
		s.LoginError = ""
	})

	docs, err := c.profiles.FindByEmail(ctx, id.Email)
	if err != nil || len(docs) == 0 {
		// First federated sign-in (or the store is unreachable):
		// auto-register a profile from what the session holds now.
		if err != nil {
			log.Printf("[session] federated profile lookup for %s: %v", id.Email, err)
		}
		snap := c.Snapshot()
		profile := domain.UserProfile{
			UID:         id.UID,
			Email:       id.Email,
			Username:    snap.Username,
			DateOfBirth: c.dateOrNow(snap.DateOfBirth),
			UserNotes:   snap.UserNotes,
		}
		if _, err := c.profiles.Insert(ctx, profile); err != nil {
			log.Printf("[session] storing federated profile for %s: %v", id.Email, err)
		}
		return true, nil
	}

	doc := docs[0]
	c.apply(func(s *domain.Session) {
		s.Username = doc.Username
		s.DateOfBirth = c.dateOrNow(doc.DateOfBirth)
		s.UserNotes = doc.UserNotes
	})
	return true, nil
}

// UpdateProfile writes the patch to every profile document matching the
// session's email. When several documents match, each is written in
// store order and the last outcome wins; emails are expected to be
// unique, so normally exactly one write happens.
func (c *Controller) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) error {
	email := c.Snapshot().Email

	docs, err := c.profiles.FindByEmail(ctx, email)
	if err != nil {
		c.apply(func(s *domain.Session) {
			s.UpdateMsg = fmt.Sprintf("Error fetching documents: %v", err)
			s.UpdateSucceeded = false
		})
		return fmt.Errorf("find profile: %w", err)
	}

	if len(docs) == 0 {
		c.apply(func(s *domain.Session) {
			s.UpdateMsg = "No documents found"
			s.UpdateSucceeded = false
		})
		return domain.ErrProfileNotFound
	}

	var lastErr error
	for _, doc := range docs {
		if err := c.profiles.Update(ctx, doc.DocID, patch); err != nil {
			lastErr = err
			c.apply(func(s *domain.Session) {
				s.UpdateMsg = fmt.Sprintf("Error updating document: %v", err)
				s.UpdateSucceeded = false
			})
			continue
		}
		lastErr = nil
		c.apply(func(s *domain.Session) {
			s.Username = patch.Username
			s.DateOfBirth = patch.DateOfBirth
			s.UserNotes = patch.UserNotes
			s.UpdateMsg = "Saved!"
			s.UpdateSucceeded = true
		})
	}
	if lastErr != nil {
		return fmt.Errorf("update profile: %w", lastErr)
	}
	return nil
}

// SignOut ends the provider session and resets the local session to
// defaults, clearing every error slot. On provider failure the session
// is left as-is; the call is safe to retry.
func (c *Controller) SignOut(ctx context.Context) error {
	if err := c.identity.SignOut(ctx); err != nil {
		c.apply(func(s *domain.Session) {
			s.SignOutError = fmt.Sprintf("Error signing out: %v", err)
		})
		return fmt.Errorf("sign out: %w", err)
	}

	c.apply(func(s *domain.Session) {
		*s = c.defaultSession()
	})
	return nil
}

// dateOrNow substitutes the current time for absent or malformed stored
// dates rather than failing the workflow.
func (c *Controller) dateOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return c.now()
	}
	return t
}
