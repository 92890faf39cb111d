package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

func intPtr(v int) *int { return &v }

func TestCheckCapacity(t *testing.T) {
	venue := &model.Venue{ID: 1, MaxActiveMales: intPtr(2), MaxActiveFemales: intPtr(5)}

	assert.False(t, CheckCapacity(venue, 2, model.Male))
	assert.True(t, CheckCapacity(venue, 1, model.Male))
	assert.True(t, CheckCapacity(venue, 4, model.Female))
	assert.False(t, CheckCapacity(venue, 5, model.Female))
}

func TestCheckCapacity_MissingConfigFallsBack(t *testing.T) {
	assert.True(t, CheckCapacity(nil, 99, model.Male))
	assert.False(t, CheckCapacity(nil, DefaultCapacity, model.Male))

	venue := &model.Venue{ID: 1, MaxActiveMales: intPtr(1)}
	assert.True(t, CheckCapacity(venue, 50, model.Female))
}

func TestCapacityLimit(t *testing.T) {
	venue := &model.Venue{MaxActiveFemales: intPtr(0)}
	assert.Equal(t, 0, CapacityLimit(venue, model.Female, 10))
	assert.Equal(t, 10, CapacityLimit(venue, model.Male, 10))
}
