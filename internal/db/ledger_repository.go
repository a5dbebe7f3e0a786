package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/terraincognita07/nutrilog/internal/models"
	"gorm.io/gorm"
)

type LedgerRepository struct {
	database *gorm.DB
}

func NewLedgerRepository(database *gorm.DB) *LedgerRepository {
	return &LedgerRepository{database: database}
}

func (repo *LedgerRepository) InsertMeal(ctx context.Context, meal *models.Meal) error {
	meal.CreatedAt = meal.CreatedAt.UTC()
	return repo.database.WithContext(ctx).Create(meal).Error
}

func (repo *LedgerRepository) InsertWater(ctx context.Context, entry *models.WaterEntry) error {
	entry.CreatedAt = entry.CreatedAt.UTC()
	return repo.database.WithContext(ctx).Create(entry).Error
}

// ListMealsInRange returns meals with start <= created_at < end, oldest first.
func (repo *LedgerRepository) ListMealsInRange(ctx context.Context, userID int64, start time.Time, end time.Time) ([]models.Meal, error) {
	return listMeals(repo.database.WithContext(ctx), userID, start, end)
}

func (repo *LedgerRepository) SumWaterInRange(ctx context.Context, userID int64, start time.Time, end time.Time) (int, error) {
	return sumWater(repo.database.WithContext(ctx), userID, start, end)
}

// LoadDay reads the profile, meals and water total for one window inside a
// single read transaction so the report never mixes two ledger states.
func (repo *LedgerRepository) LoadDay(ctx context.Context, userID int64, start time.Time, end time.Time) (models.DayLedger, error) {
	ledger := models.DayLedger{}
	err := repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, found, err := findProfile(tx, userID)
		if err != nil {
			return err
		}
		ledger.Profile = profile
		ledger.HasProfile = found

		meals, err := listMeals(tx, userID, start, end)
		if err != nil {
			return err
		}
		ledger.Meals = meals

		total, err := sumWater(tx, userID, start, end)
		if err != nil {
			return err
		}
		ledger.WaterTotalML = total
		return nil
	}, &sql.TxOptions{ReadOnly: repo.database.Dialector.Name() == DriverPostgres})
	if err != nil {
		return models.DayLedger{}, err
	}
	return ledger, nil
}

func listMeals(database *gorm.DB, userID int64, start time.Time, end time.Time) ([]models.Meal, error) {
	meals := make([]models.Meal, 0)
	if err := database.
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start.UTC(), end.UTC()).
		Order("created_at ASC, id ASC").
		Find(&meals).Error; err != nil {
		return nil, err
	}
	return meals, nil
}

func sumWater(database *gorm.DB, userID int64, start time.Time, end time.Time) (int, error) {
	var total int64
	if err := database.Model(&models.WaterEntry{}).
		Select("COALESCE(SUM(volume_ml), 0)").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start.UTC(), end.UTC()).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return int(total), nil
}
