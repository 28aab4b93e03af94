// Package firestore persists user profiles as documents in a Firestore
// collection, one document per user, queried by the email field.
package firestore

import (
	"context"
	"fmt"
	"time"

	fs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

const DefaultCollection = "users"

type ProfileStore struct {
	client     *fs.Client
	collection string
}

func NewProfileStore(client *fs.Client, collection string) *ProfileStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &ProfileStore{client: client, collection: collection}
}

func (s *ProfileStore) Insert(ctx context.Context, p domain.UserProfile) (string, error) {
	ref, _, err := s.client.Collection(s.collection).Add(ctx, map[string]interface{}{
		"uid":         p.UID,
		"email":       p.Email,
		"username":    p.Username,
		"dateOfBirth": p.DateOfBirth,
		"userNotes":   p.UserNotes,
	})
	if err != nil {
		return "", fmt.Errorf("add profile document: %w", err)
	}
	return ref.ID, nil
}

func (s *ProfileStore) FindByEmail(ctx context.Context, email string) ([]domain.StoredProfile, error) {
	iter := s.client.Collection(s.collection).Where("email", "==", email).Documents(ctx)
	defer iter.Stop()

	var out []domain.StoredProfile
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query profiles: %w", err)
		}
		out = append(out, decodeProfile(doc))
	}
	return out, nil
}

func (s *ProfileStore) Update(ctx context.Context, docID string, patch domain.ProfilePatch) error {
	_, err := s.client.Collection(s.collection).Doc(docID).Update(ctx, []fs.Update{
		{Path: "username", Value: patch.Username},
		{Path: "dateOfBirth", Value: patch.DateOfBirth},
		{Path: "userNotes", Value: patch.UserNotes},
	})
	if err != nil {
		return fmt.Errorf("update profile document: %w", err)
	}
	return nil
}

// decodeProfile tolerates missing or differently-typed fields. A
// malformed dateOfBirth decodes to the zero time; the session layer
// substitutes the current time.
func decodeProfile(doc *fs.DocumentSnapshot) domain.StoredProfile {
	data := doc.Data()

	p := domain.StoredProfile{DocID: doc.Ref.ID}
	p.UID = stringField(data, "uid")
	p.Email = stringField(data, "email")
	p.Username = stringField(data, "username")
	p.UserNotes = stringField(data, "userNotes")

	if t, ok := data["dateOfBirth"].(time.Time); ok {
		p.DateOfBirth = t
	}
	return p
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
