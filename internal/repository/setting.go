package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/checkedin/internal/model"
)

// SettingRepository reads the app_setting singleton.
type SettingRepository struct {
	db *pgxpool.Pool
}

// NewSettingRepository constructs a SettingRepository.
func NewSettingRepository(db *pgxpool.Pool) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get returns the settings row. A missing row yields the zero settings,
// which means no minimum stay.
func (r *SettingRepository) Get(ctx context.Context) (model.AppSetting, error) {
	var s model.AppSetting
	err := r.db.QueryRow(ctx,
		`SELECT min_stay_minutes FROM app_setting LIMIT 1`,
	).Scan(&s.MinStayMinutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.AppSetting{}, nil
		}
		return model.AppSetting{}, fmt.Errorf("get app setting: %w", err)
	}
	return s, nil
}
