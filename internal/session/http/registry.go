package http

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
	"github.com/graphv-app/graphv-backend/internal/session/repository"
	"github.com/graphv-app/graphv-backend/internal/session/service"
)

// Registry maps session IDs to controllers. Each entry carries its own
// mutex: workflow invocations against one session are serialized, while
// different sessions proceed concurrently.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	newProvider func() domain.IdentityProvider
	profiles    domain.ProfileStore
	snapshots   *repository.SnapshotRepository
}

type entry struct {
	mu    sync.Mutex
	ctl   *service.Controller
	creds *credentialHolder
}

// credentialHolder adapts a per-request federated credential to the
// controller's CredentialSource port. The entry mutex is held across
// Set and the workflow call, so the credential cannot be swapped
// mid-flight.
type credentialHolder struct {
	mu   sync.Mutex
	cred domain.FederatedCredential
	set  bool
}

func (h *credentialHolder) Set(cred domain.FederatedCredential) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cred = cred
	h.set = true
}

func (h *credentialHolder) Credential(context.Context) (domain.FederatedCredential, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.set {
		return domain.FederatedCredential{}, errors.New("no federated credential supplied")
	}
	return h.cred, nil
}

// NewRegistry builds a registry. snapshots may be nil to disable
// persistence; newProvider is called once per session so each session
// tracks its own provider-side identity.
func NewRegistry(newProvider func() domain.IdentityProvider, profiles domain.ProfileStore, snapshots *repository.SnapshotRepository) *Registry {
	return &Registry{
		entries:     make(map[string]*entry),
		newProvider: newProvider,
		profiles:    profiles,
		snapshots:   snapshots,
	}
}

// acquire returns the entry for the given session ID, creating it (and
// restoring a persisted snapshot) as needed. An empty ID mints a new
// session.
func (r *Registry) acquire(ctx context.Context, sessionID string) (string, *entry) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	r.mu.Lock()
	e, ok := r.entries[sessionID]
	if !ok {
		creds := &credentialHolder{}
		e = &entry{
			ctl:   service.New(r.newProvider(), r.profiles, creds),
			creds: creds,
		}
		r.entries[sessionID] = e
	}
	r.mu.Unlock()

	if !ok && r.snapshots != nil {
		if sess, err := r.snapshots.Load(ctx, sessionID); err == nil {
			e.ctl.Restore(sess)
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			log.Printf("[session] restoring %s: %v", sessionID, err)
		}
	}

	return sessionID, e
}

// persist saves the entry's snapshot, best-effort.
func (r *Registry) persist(ctx context.Context, sessionID string, e *entry) {
	if r.snapshots == nil {
		return
	}
	if err := r.snapshots.Save(ctx, sessionID, e.ctl.Snapshot()); err != nil {
		log.Printf("[session] persisting %s: %v", sessionID, err)
	}
}
