package matching

import "github.com/Shivanand-hulikatti/checkedin/internal/model"

// DefaultCapacity is used when a venue has no limit configured for a gender.
const DefaultCapacity = 100

// CapacityLimit returns the venue's limit for g, or fallback when the venue
// or its limit is missing. A missing limit is treated as effectively
// unbounded rather than as an error.
func CapacityLimit(venue *model.Venue, g model.Gender, fallback int) int {
	if venue == nil {
		return fallback
	}
	if limit, ok := venue.MaxActive(g); ok {
		return limit
	}
	return fallback
}

// CheckCapacity reports whether one more checkin of gender g may join venue,
// given the current number of active checkins of that gender.
//
// This is a read-then-decide check: two concurrent check-ins can both pass
// it and overshoot the limit by a small margin.
func CheckCapacity(venue *model.Venue, current int, g model.Gender) bool {
	return Admit(CapacityLimit(venue, g, DefaultCapacity), current)
}

// Admit is the bare admission rule: current < limit.
func Admit(limit, current int) bool {
	return current < limit
}
