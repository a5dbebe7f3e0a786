package db

import (
	"context"

	"github.com/terraincognita07/nutrilog/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepository struct {
	database *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{database: database}
}

// Upsert inserts the profile or overwrites every mutable column of the
// existing row for the same user.
func (repo *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	return repo.database.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"display_name",
			"weight_kg",
			"height_cm",
			"age",
			"sex",
			"activity_level",
			"goal",
			"night_shifts",
			"water_target_ml",
			"calorie_target",
			"updated_at",
		}),
	}).Create(profile).Error
}

func (repo *ProfileRepository) FindByUserID(ctx context.Context, userID int64) (models.Profile, bool, error) {
	return findProfile(repo.database.WithContext(ctx), userID)
}

func findProfile(database *gorm.DB, userID int64) (models.Profile, bool, error) {
	profile := models.Profile{}
	result := database.Where("user_id = ?", userID).Limit(1).Find(&profile)
	if result.Error != nil {
		return models.Profile{}, false, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Profile{}, false, nil
	}
	return profile, true, nil
}
