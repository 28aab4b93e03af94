// Package reconcile repairs the inconsistency left behind when account
// creation succeeds but the follow-up profile insert fails: the
// identity exists with no profile document. Registration deliberately
// swallows that failure, so a periodic job closes the gap.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

// AccountSource lists every account known to the identity provider.
type AccountSource interface {
	Accounts(ctx context.Context) ([]domain.Identity, error)
}

type Reconciler struct {
	accounts AccountSource
	profiles domain.ProfileStore
	now      func() time.Time
}

func New(accounts AccountSource, profiles domain.ProfileStore) *Reconciler {
	return &Reconciler{accounts: accounts, profiles: profiles, now: time.Now}
}

// Run inserts a default profile for every account that has none and
// returns the number of repairs. Per-account failures are logged and
// skipped; the pass continues.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	accounts, err := r.accounts.Accounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list accounts: %w", err)
	}

	repaired := 0
	for _, acct := range accounts {
		if acct.Email == "" {
			continue
		}

		docs, err := r.profiles.FindByEmail(ctx, acct.Email)
		if err != nil {
			log.Printf("[reconcile] lookup %s: %v", acct.Email, err)
			continue
		}
		if len(docs) > 0 {
			continue
		}

		profile := domain.UserProfile{
			UID:         acct.UID,
			Email:       acct.Email,
			DateOfBirth: r.now(),
		}
		if _, err := r.profiles.Insert(ctx, profile); err != nil {
			log.Printf("[reconcile] insert profile for %s: %v", acct.Email, err)
			continue
		}
		log.Printf("[reconcile] created missing profile for %s", acct.Email)
		repaired++
	}

	return repaired, nil
}
