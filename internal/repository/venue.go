package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// VenueRepository reads venues.
type VenueRepository struct {
	db *pgxpool.Pool
}

// NewVenueRepository constructs a VenueRepository.
func NewVenueRepository(db *pgxpool.Pool) *VenueRepository {
	return &VenueRepository{db: db}
}

// ListActive returns active venues, oldest first.
func (r *VenueRepository) ListActive(ctx context.Context) ([]model.Venue, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, active, max_active_males, max_active_females, created_at
		 FROM venue
		 WHERE active = true
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var v model.Venue
		if err := rows.Scan(&v.ID, &v.Name, &v.Active, &v.MaxActiveMales, &v.MaxActiveFemales, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// GetByID returns a single venue or ErrNotFound.
func (r *VenueRepository) GetByID(ctx context.Context, id int64) (*model.Venue, error) {
	var v model.Venue
	err := r.db.QueryRow(ctx,
		`SELECT id, name, active, max_active_males, max_active_females, created_at
		 FROM venue WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.Name, &v.Active, &v.MaxActiveMales, &v.MaxActiveFemales, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get venue: %w", err)
	}
	return &v, nil
}
