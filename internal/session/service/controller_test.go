package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

type fakeIdentity struct {
	accounts map[string]string // email -> password
	uids     map[string]string // email -> uid
	nextUID  int

	createErr     error
	signInErr     error
	exchangeErr   error
	signOutErr    error
	emptyOnSignIn bool

	signInCalls  int
	signOutCalls int

	current domain.Identity
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts: make(map[string]string),
		uids:     make(map[string]string),
	}
}

func (f *fakeIdentity) CreateAccount(_ context.Context, email, password string) (domain.Identity, error) {
	if f.createErr != nil {
		return domain.Identity{}, f.createErr
	}
	if _, ok := f.accounts[email]; ok {
		return domain.Identity{}, errors.New("EMAIL_EXISTS")
	}
	f.nextUID++
	uid := "uid-" + strconv.Itoa(f.nextUID)
	f.accounts[email] = password
	f.uids[email] = uid
	f.current = domain.Identity{UID: uid, Email: email}
	return f.current, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (domain.Identity, error) {
	f.signInCalls++
	if f.signInErr != nil {
		return domain.Identity{}, f.signInErr
	}
	if f.emptyOnSignIn {
		return domain.Identity{}, nil
	}
	stored, ok := f.accounts[email]
	if !ok {
		return domain.Identity{}, errors.New("EMAIL_NOT_FOUND")
	}
	if stored != password {
		return domain.Identity{}, errors.New("INVALID_PASSWORD")
	}
	f.current = domain.Identity{UID: f.uids[email], Email: email}
	return f.current, nil
}

func (f *fakeIdentity) SignInWithCredential(_ context.Context, cred domain.FederatedCredential) (domain.Identity, error) {
	if f.exchangeErr != nil {
		return domain.Identity{}, f.exchangeErr
	}
	f.current = domain.Identity{UID: "fed-uid", Email: "federated@example.com"}
	return f.current, nil
}

func (f *fakeIdentity) SignOut(context.Context) error {
	f.signOutCalls++
	if f.signOutErr != nil {
		return f.signOutErr
	}
	f.current = domain.Identity{}
	return nil
}

func (f *fakeIdentity) CurrentIdentity() (domain.Identity, bool) {
	return f.current, f.current.UID != ""
}

type fakeStore struct {
	docs      []domain.StoredProfile
	nextID    int
	findErr   error
	insertErr error
	updateErr map[string]error

	findCalls   int
	updateCalls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{updateErr: make(map[string]error)}
}

func (f *fakeStore) Insert(_ context.Context, p domain.UserProfile) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.nextID++
	id := "doc-" + strconv.Itoa(f.nextID)
	f.docs = append(f.docs, domain.StoredProfile{DocID: id, UserProfile: p})
	return id, nil
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) ([]domain.StoredProfile, error) {
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []domain.StoredProfile
	for _, d := range f.docs {
		if d.Email == email {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, docID string, patch domain.ProfilePatch) error {
	f.updateCalls = append(f.updateCalls, docID)
	if err := f.updateErr[docID]; err != nil {
		return err
	}
	for i := range f.docs {
		if f.docs[i].DocID == docID {
			f.docs[i].Username = patch.Username
			f.docs[i].DateOfBirth = patch.DateOfBirth
			f.docs[i].UserNotes = patch.UserNotes
			return nil
		}
	}
	return fmt.Errorf("no document %s", docID)
}

type fakeCreds struct {
	cred domain.FederatedCredential
	err  error
}

func (f *fakeCreds) Credential(context.Context) (domain.FederatedCredential, error) {
	return f.cred, f.err
}

func dob(year int) time.Time {
	return time.Date(year, time.March, 14, 0, 0, 0, 0, time.UTC)
}

func TestRegisterThenLogin_RoundTripsProfile(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	in := RegisterInput{
		Email:       "ada@example.com",
		Password:    "hunter22",
		Username:    "ada",
		DateOfBirth: dob(1990),
		UserNotes:   "likes graphs",
	}
	require.NoError(t, ctl.Register(context.Background(), in))

	// Registration never signs the session in.
	snap := ctl.Snapshot()
	assert.False(t, snap.IsSignedIn)
	assert.Empty(t, snap.RegisterError)
	assert.NotEmpty(t, snap.UserID)

	require.NoError(t, ctl.Login(context.Background(), in.Email, in.Password))

	snap = ctl.Snapshot()
	assert.Equal(t, "ada", snap.Username)
	assert.Equal(t, "ada@example.com", snap.Email)
	assert.Equal(t, dob(1990), snap.DateOfBirth)
	assert.Equal(t, "likes graphs", snap.UserNotes)
	assert.Empty(t, snap.LoginError)
}

func TestRegister_ProviderFailureSetsErrorSlot(t *testing.T) {
	identity := newFakeIdentity()
	identity.createErr = errors.New("WEAK_PASSWORD")
	store := newFakeStore()
	ctl := New(identity, store, nil)

	err := ctl.Register(context.Background(), RegisterInput{Email: "a@b.c", Password: "x"})
	require.Error(t, err)

	snap := ctl.Snapshot()
	assert.Equal(t, "WEAK_PASSWORD", snap.RegisterError)
	assert.False(t, snap.IsSignedIn)
	assert.Empty(t, store.docs)
}

func TestRegister_InsertFailureIsSwallowed(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	store.insertErr = errors.New("firestore unavailable")
	ctl := New(identity, store, nil)

	err := ctl.Register(context.Background(), RegisterInput{
		Email: "ada@example.com", Password: "pw", Username: "ada", DateOfBirth: dob(1990),
	})

	// The account exists, the profile does not; the workflow still
	// reports success and no error slot is touched.
	require.NoError(t, err)
	snap := ctl.Snapshot()
	assert.Empty(t, snap.RegisterError)
	assert.Empty(t, store.docs)
	assert.Contains(t, identity.accounts, "ada@example.com")
}

func TestLogin_UnknownEmailLeavesFieldsUntouched(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	before := ctl.Snapshot()
	err := ctl.Login(context.Background(), "ghost@example.com", "pw")
	require.Error(t, err)

	snap := ctl.Snapshot()
	assert.NotEmpty(t, snap.LoginError)
	assert.Equal(t, before.Username, snap.Username)
	assert.Equal(t, before.Email, snap.Email)
	assert.Equal(t, before.DateOfBirth, snap.DateOfBirth)
	assert.Equal(t, before.UserNotes, snap.UserNotes)
}

func TestLogin_WrongPasswordSkipsProfileQuery(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	_, err := identity.CreateAccount(context.Background(), "ada@example.com", "right")
	require.NoError(t, err)

	err = ctl.Login(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)

	snap := ctl.Snapshot()
	assert.NotEmpty(t, snap.LoginError)
	assert.Zero(t, store.findCalls, "profile store must not be queried on auth failure")
}

func TestLogin_EmptyIdentityMeansInvalidCredentials(t *testing.T) {
	identity := newFakeIdentity()
	identity.emptyOnSignIn = true
	store := newFakeStore()
	ctl := New(identity, store, nil)

	err := ctl.Login(context.Background(), "ada@example.com", "pw")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	assert.Equal(t, "Invalid Credentials", ctl.Snapshot().LoginError)
	assert.Zero(t, store.findCalls)
}

func TestLogin_NoMatchingProfileIsSilent(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	_, err := identity.CreateAccount(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)

	before := ctl.Snapshot()
	require.NoError(t, ctl.Login(context.Background(), "ada@example.com", "pw"))

	snap := ctl.Snapshot()
	assert.Empty(t, snap.LoginError)
	assert.Equal(t, before.Username, snap.Username)
	assert.Equal(t, before.UserNotes, snap.UserNotes)
}

func TestLogin_StoreFailureSurfacesRetrievalError(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	_, err := identity.CreateAccount(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	store.findErr = errors.New("deadline exceeded")

	err = ctl.Login(context.Background(), "ada@example.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "Error retrieving document: deadline exceeded", ctl.Snapshot().LoginError)
}

func TestLogin_MissingDateOfBirthDefaultsToNow(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)
	fixed := time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)
	ctl.now = func() time.Time { return fixed }

	_, err := identity.CreateAccount(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), domain.UserProfile{
		UID: "uid-1", Email: "ada@example.com", Username: "ada",
	})
	require.NoError(t, err)

	require.NoError(t, ctl.Login(context.Background(), "ada@example.com", "pw"))
	assert.Equal(t, fixed, ctl.Snapshot().DateOfBirth)
}

func TestLoginFederated_HydratesExistingProfile(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	creds := &fakeCreds{cred: domain.FederatedCredential{ProviderID: "google.com", IDToken: "tok"}}
	ctl := New(identity, store, creds)

	_, err := store.Insert(context.Background(), domain.UserProfile{
		UID: "fed-uid", Email: "federated@example.com", Username: "fred",
		DateOfBirth: dob(1985), UserNotes: "imported",
	})
	require.NoError(t, err)

	ok, err := ctl.LoginFederated(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	snap := ctl.Snapshot()
	assert.Equal(t, "federated@example.com", snap.Email)
	assert.Equal(t, "fred", snap.Username)
	assert.Equal(t, dob(1985), snap.DateOfBirth)
	assert.Equal(t, "imported", snap.UserNotes)
	assert.Len(t, store.docs, 1, "no duplicate profile on repeat federated sign-in")
}

func TestLoginFederated_AutoRegistersFirstSignIn(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	creds := &fakeCreds{cred: domain.FederatedCredential{ProviderID: "google.com", IDToken: "tok"}}
	ctl := New(identity, store, creds)

	ok, err := ctl.LoginFederated(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, store.docs, 1)
	assert.Equal(t, "federated@example.com", store.docs[0].Email)
	assert.Equal(t, "fed-uid", store.docs[0].UID)
}

func TestLoginFederated_QueryFailureStillReturnsTrue(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	store.findErr = errors.New("unavailable")
	creds := &fakeCreds{cred: domain.FederatedCredential{IDToken: "tok"}}
	ctl := New(identity, store, creds)

	ok, err := ctl.LoginFederated(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "profile step must not block the exchange result")
}

func TestLoginFederated_ExchangeFailure(t *testing.T) {
	identity := newFakeIdentity()
	identity.exchangeErr = errors.New("INVALID_IDP_RESPONSE")
	store := newFakeStore()
	creds := &fakeCreds{cred: domain.FederatedCredential{IDToken: "tok"}}
	ctl := New(identity, store, creds)

	ok, err := ctl.LoginFederated(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, "INVALID_IDP_RESPONSE", ctl.Snapshot().LoginError)
}

func TestUpdateProfile_NoMatchWritesNothing(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)
	ctl.Restore(domain.Session{Email: "ada@example.com"})

	err := ctl.UpdateProfile(context.Background(), domain.ProfilePatch{Username: "new"})
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	snap := ctl.Snapshot()
	assert.False(t, snap.UpdateSucceeded)
	assert.Equal(t, "No documents found", snap.UpdateMsg)
	assert.Empty(t, store.updateCalls)
}

func TestUpdateProfile_SingleMatch(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)
	ctl.Restore(domain.Session{Email: "ada@example.com"})

	_, err := store.Insert(context.Background(), domain.UserProfile{
		UID: "uid-1", Email: "ada@example.com", Username: "ada", DateOfBirth: dob(1990),
	})
	require.NoError(t, err)

	patch := domain.ProfilePatch{Username: "ada2", DateOfBirth: dob(1991), UserNotes: "updated"}
	require.NoError(t, ctl.UpdateProfile(context.Background(), patch))

	snap := ctl.Snapshot()
	assert.True(t, snap.UpdateSucceeded)
	assert.Equal(t, "Saved!", snap.UpdateMsg)
	assert.Equal(t, "ada2", snap.Username)

	assert.Equal(t, "ada2", store.docs[0].Username)
	assert.Equal(t, dob(1991), store.docs[0].DateOfBirth)
	assert.Equal(t, "updated", store.docs[0].UserNotes)
}

func TestUpdateProfile_LastWriteWinsAcrossDuplicates(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)
	ctl.Restore(domain.Session{Email: "dup@example.com"})

	for i := 0; i < 2; i++ {
		_, err := store.Insert(context.Background(), domain.UserProfile{Email: "dup@example.com"})
		require.NoError(t, err)
	}
	// First write fails, second succeeds: the reported outcome is the
	// second one.
	store.updateErr["doc-1"] = errors.New("contention")

	err := ctl.UpdateProfile(context.Background(), domain.ProfilePatch{Username: "x"})
	require.NoError(t, err)

	snap := ctl.Snapshot()
	assert.True(t, snap.UpdateSucceeded)
	assert.Equal(t, "Saved!", snap.UpdateMsg)
	assert.Equal(t, []string{"doc-1", "doc-2"}, store.updateCalls)
}

func TestUpdateProfile_QueryFailure(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	store.findErr = errors.New("unavailable")
	ctl := New(identity, store, nil)
	ctl.Restore(domain.Session{Email: "ada@example.com"})

	err := ctl.UpdateProfile(context.Background(), domain.ProfilePatch{})
	require.Error(t, err)

	snap := ctl.Snapshot()
	assert.False(t, snap.UpdateSucceeded)
	assert.Equal(t, "Error fetching documents: unavailable", snap.UpdateMsg)
}

func TestSignOut_ResetsEverything(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	in := RegisterInput{
		Email: "ada@example.com", Password: "pw", Username: "ada",
		DateOfBirth: dob(1990), UserNotes: "notes",
	}
	require.NoError(t, ctl.Register(context.Background(), in))
	require.NoError(t, ctl.Login(context.Background(), in.Email, in.Password))

	// Dirty every error slot first to prove they are cleared.
	ctl.Restore(func() domain.Session {
		s := ctl.Snapshot()
		s.RegisterError = "stale"
		s.LoginError = "stale"
		s.UpdateMsg = "stale"
		s.UpdateSucceeded = true
		return s
	}())

	require.NoError(t, ctl.SignOut(context.Background()))

	snap := ctl.Snapshot()
	assert.Empty(t, snap.UserID)
	assert.Empty(t, snap.Username)
	assert.Empty(t, snap.Email)
	assert.Empty(t, snap.Password)
	assert.Empty(t, snap.UserNotes)
	assert.False(t, snap.IsSignedIn)
	assert.Empty(t, snap.RegisterError)
	assert.Empty(t, snap.LoginError)
	assert.Empty(t, snap.SignOutError)
	assert.Empty(t, snap.UpdateMsg)
	assert.False(t, snap.UpdateSucceeded)
	assert.False(t, snap.DateOfBirth.IsZero())
}

func TestSignOut_Idempotent(t *testing.T) {
	identity := newFakeIdentity()
	ctl := New(identity, newFakeStore(), nil)

	require.NoError(t, ctl.SignOut(context.Background()))
	first := ctl.Snapshot()
	require.NoError(t, ctl.SignOut(context.Background()))
	second := ctl.Snapshot()

	assert.Equal(t, 2, identity.signOutCalls)
	assert.Empty(t, first.UserID)
	assert.Empty(t, second.UserID)
	assert.False(t, second.IsSignedIn)
}

func TestSignOut_FailureLeavesSessionAlone(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	in := RegisterInput{Email: "ada@example.com", Password: "pw", Username: "ada", DateOfBirth: dob(1990)}
	require.NoError(t, ctl.Register(context.Background(), in))

	identity.signOutErr = errors.New("network down")
	err := ctl.SignOut(context.Background())
	require.Error(t, err)

	snap := ctl.Snapshot()
	assert.Equal(t, "Error signing out: network down", snap.SignOutError)
	assert.Equal(t, "ada@example.com", snap.Email, "fields stay put when sign-out fails")
}

func TestWatch_DeliversWholeSnapshots(t *testing.T) {
	identity := newFakeIdentity()
	store := newFakeStore()
	ctl := New(identity, store, nil)

	ch := ctl.Watch()
	require.NoError(t, ctl.Register(context.Background(), RegisterInput{
		Email: "ada@example.com", Password: "pw", Username: "ada", DateOfBirth: dob(1990),
	}))

	select {
	case snap := <-ch:
		// A delivered snapshot is complete: identity and form fields
		// arrive together, never piecemeal.
		assert.NotEmpty(t, snap.UserID)
		assert.Equal(t, "ada@example.com", snap.Email)
		assert.Equal(t, "ada", snap.Username)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}
