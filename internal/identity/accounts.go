package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

// AdminAccountSource enumerates provider accounts through the Admin
// SDK, for jobs that need the full account list (profile
// reconciliation).
type AdminAccountSource struct {
	client *auth.Client
}

func NewAdminAccountSource(client *auth.Client) *AdminAccountSource {
	return &AdminAccountSource{client: client}
}

// Accounts returns every account known to the identity provider.
func (s *AdminAccountSource) Accounts(ctx context.Context) ([]domain.Identity, error) {
	var out []domain.Identity

	iter := s.client.Users(ctx, "")
	for {
		u, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		out = append(out, domain.Identity{UID: u.UID, Email: u.Email})
	}

	return out, nil
}
