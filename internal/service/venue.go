package service

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// VenueService lists venues.
type VenueService struct {
	venues VenueStore
}

// NewVenueService constructs a VenueService.
func NewVenueService(venues VenueStore) *VenueService {
	return &VenueService{venues: venues}
}

// ListVenues returns the active venues, oldest first. The result is never nil.
func (s *VenueService) ListVenues(ctx context.Context) ([]model.Venue, error) {
	venues, err := s.venues.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	if venues == nil {
		venues = []model.Venue{}
	}
	return venues, nil
}
