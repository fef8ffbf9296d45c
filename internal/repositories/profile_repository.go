package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"conversation-index/internal/models"
)

// ProfileRepo is a sqlx implementation of UserProfileLookup.
type ProfileRepo struct {
	db *sqlx.DB
}

// NewProfileRepo constructs a ProfileRepo.
func NewProfileRepo(db *sqlx.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// GetProfile resolves the display fields for one user id.
func (r *ProfileRepo) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	var profile models.Profile
	err := r.db.GetContext(ctx, &profile, `SELECT id AS user_id, username, profile_picture_url, description
        FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Profile{}, ErrProfileNotFound
	}
	return profile, err
}

// BulkProfiles resolves many ids in one query. Ids without a profile are
// absent from the result.
func (r *ProfileRepo) BulkProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	result := make(map[string]models.Profile, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var profiles []models.Profile
	err := r.db.SelectContext(ctx, &profiles, `SELECT id AS user_id, username, profile_picture_url, description
        FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		result[p.UserID] = p
	}
	return result, nil
}

var _ UserProfileLookup = (*ProfileRepo)(nil)
