package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// Status tokens returned by the checkout_by_nickname procedure.
const (
	CheckoutOK       = "ok"
	CheckoutTooEarly = "too_early"
	CheckoutNotFound = "not_found"
)

// CheckinRepository handles persistence for checkins.
type CheckinRepository struct {
	db *pgxpool.Pool
}

// NewCheckinRepository constructs a CheckinRepository.
func NewCheckinRepository(db *pgxpool.Pool) *CheckinRepository {
	return &CheckinRepository{db: db}
}

const checkinColumns = `id, venue_id, nickname, instagram, gender, interested_in, description, active, created_at`

func scanCheckin(row pgx.Row, c *model.Checkin) error {
	var gender, interest string
	if err := row.Scan(&c.ID, &c.VenueID, &c.Nickname, &c.Instagram, &gender, &interest,
		&c.Description, &c.Active, &c.CreatedAt); err != nil {
		return err
	}
	c.Gender, c.InterestedIn = model.Gender(gender), model.Interest(interest)
	return nil
}

// ListActive returns the active checkins of a venue, newest first.
func (r *CheckinRepository) ListActive(ctx context.Context, venueID int64) ([]model.Checkin, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+checkinColumns+`
		 FROM checkins
		 WHERE venue_id = $1 AND active = true
		 ORDER BY created_at DESC`,
		venueID,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var checkins []model.Checkin
	for rows.Next() {
		var c model.Checkin
		if err := scanCheckin(rows, &c); err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		checkins = append(checkins, c)
	}
	return checkins, rows.Err()
}

// CountActiveByGender counts active checkins of one gender at a venue.
func (r *CheckinRepository) CountActiveByGender(ctx context.Context, venueID int64, g model.Gender) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM checkins
		 WHERE venue_id = $1 AND active = true AND gender = $2`,
		venueID, string(g),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count checkins: %w", err)
	}
	return n, nil
}

// Create inserts an active checkin, filling in ID and CreatedAt.
// Returns ErrNicknameTaken when the nickname is in use at the venue.
func (r *CheckinRepository) Create(ctx context.Context, c *model.Checkin) error {
	c.ID = uuid.New()
	c.Active = true

	err := r.db.QueryRow(ctx,
		`INSERT INTO checkins (id, venue_id, nickname, instagram, gender, interested_in, description, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		 RETURNING created_at`,
		c.ID, c.VenueID, c.Nickname, c.Instagram, string(c.Gender), string(c.InterestedIn), c.Description,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isNicknameConflict(err) {
			return ErrNicknameTaken
		}
		return fmt.Errorf("insert checkin: %w", err)
	}
	return nil
}

// FindActive returns the active checkin for a venue and nickname, or ErrNotFound.
func (r *CheckinRepository) FindActive(ctx context.Context, venueID int64, nickname string) (*model.Checkin, error) {
	var c model.Checkin
	err := scanCheckin(r.db.QueryRow(ctx,
		`SELECT `+checkinColumns+`
		 FROM checkins
		 WHERE venue_id = $1 AND nickname = $2 AND active = true
		 LIMIT 1`,
		venueID, nickname,
	), &c)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find checkin: %w", err)
	}
	return &c, nil
}

// Deactivate marks the active checkin for a venue and nickname inactive,
// unconditionally. It reports how many rows changed.
func (r *CheckinRepository) Deactivate(ctx context.Context, venueID int64, nickname string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE checkins SET active = false
		 WHERE venue_id = $1 AND nickname = $2 AND active = true`,
		venueID, nickname,
	)
	if err != nil {
		return 0, fmt.Errorf("deactivate checkin: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CheckoutByNickname calls the checkout_by_nickname procedure and returns its
// status token. Returns ErrProcedureUnavailable when the procedure is not
// deployed.
func (r *CheckinRepository) CheckoutByNickname(ctx context.Context, venueID int64, nickname string) (string, error) {
	var status string
	err := r.db.QueryRow(ctx,
		`SELECT checkout_by_nickname($1, $2)`,
		venueID, nickname,
	).Scan(&status)
	if err != nil {
		if isUndefinedFunction(err) {
			return "", ErrProcedureUnavailable
		}
		return "", fmt.Errorf("checkout procedure: %w", err)
	}
	return status, nil
}
