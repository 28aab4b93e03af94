package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/graphv-app/graphv-backend/internal/session/domain"
)

// ProfileStore is the relational alternative to the Firestore adapter.
// Schema:
//
//	CREATE TABLE user_profiles (
//	    id            TEXT PRIMARY KEY,
//	    uid           TEXT NOT NULL,
//	    email         TEXT NOT NULL,
//	    username      TEXT NOT NULL DEFAULT '',
//	    date_of_birth TIMESTAMPTZ,
//	    user_notes    TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX user_profiles_email_idx ON user_profiles (email);
//
// Email is deliberately not unique: lookups behave like the document
// store, returning every matching row in insertion order.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func (s *ProfileStore) Insert(ctx context.Context, p domain.UserProfile) (string, error) {
	id := uuid.New().String()

	query := `
		INSERT INTO user_profiles (id, uid, email, username, date_of_birth, user_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var dob sql.NullTime
	if !p.DateOfBirth.IsZero() {
		dob = sql.NullTime{Time: p.DateOfBirth, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, query, id, p.UID, p.Email, p.Username, dob, p.UserNotes); err != nil {
		return "", fmt.Errorf("insert profile: %w", err)
	}
	return id, nil
}

func (s *ProfileStore) FindByEmail(ctx context.Context, email string) ([]domain.StoredProfile, error) {
	query := `
		SELECT id, uid, email, username, date_of_birth, user_notes
		FROM user_profiles
		WHERE email = $1
		ORDER BY ctid
	`

	rows, err := s.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredProfile
	for rows.Next() {
		var p domain.StoredProfile
		var dob sql.NullTime

		if err := rows.Scan(&p.DocID, &p.UID, &p.Email, &p.Username, &dob, &p.UserNotes); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		if dob.Valid {
			p.DateOfBirth = dob.Time
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func (s *ProfileStore) Update(ctx context.Context, docID string, patch domain.ProfilePatch) error {
	query := `
		UPDATE user_profiles
		SET username = $2, date_of_birth = $3, user_notes = $4
		WHERE id = $1
	`

	var dob sql.NullTime
	if !patch.DateOfBirth.IsZero() {
		dob = sql.NullTime{Time: patch.DateOfBirth, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query, docID, patch.Username, dob, patch.UserNotes)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}
