package store

import (
	"context"

	"urbanlens/internal/models"
)

// LocationStore backs the ownership lookup the payout policy uses to resolve
// where a booking's host share goes.
type LocationStore struct {
	db DB
}

func NewLocationStore(db DB) *LocationStore {
	return &LocationStore{db: db}
}

func (s *LocationStore) Create(ctx context.Context, tx Execer, location models.Location) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO locations (id, owner_account_id, name)
		VALUES ($1, $2, $3)
	`, location.ID, location.OwnerAccountID, location.Name)
	return err
}

func (s *LocationStore) GetByID(ctx context.Context, locationID string) (models.Location, error) {
	var row models.Location
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_account_id, name, created_at
		FROM locations
		WHERE id = $1
	`, locationID)
	if err != nil {
		return models.Location{}, mapNoRows(err)
	}
	return row, nil
}

// ResolveOwner returns the owning account id, or nil when the location has no
// resolvable platform account (host payouts are then skipped and logged).
func (s *LocationStore) ResolveOwner(ctx context.Context, locationID string) (*string, error) {
	location, err := s.GetByID(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return location.OwnerAccountID, nil
}
