package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/nutrilog/internal/models"
	"github.com/terraincognita07/nutrilog/internal/security"
)

type ProfileRepository interface {
	Upsert(ctx context.Context, profile *models.Profile) error
	FindByUserID(ctx context.Context, userID int64) (models.Profile, bool, error)
}

type ProfileService struct {
	profiles ProfileRepository
	logger   zerolog.Logger
}

func NewProfileService(profiles ProfileRepository, logger zerolog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, logger: logger}
}

// Save validates input, recomputes both targets and upserts the caller's
// profile. The water target falls back to 30 ml per kg unless overridden.
func (service *ProfileService) Save(ctx context.Context, identity security.Identity, input ProfileInput, now time.Time) (models.Profile, error) {
	normalized, err := NormalizeProfileInput(input)
	if err != nil {
		return models.Profile{}, err
	}

	waterTarget := WaterTarget(normalized.Metrics.WeightKg)
	if normalized.HasWaterGoal {
		waterTarget = normalized.WaterTargetML
	}

	profile := models.Profile{
		UserID:        identity.UserID,
		DisplayName:   truncateDisplayName(identity.DisplayName),
		WeightKg:      normalized.Metrics.WeightKg,
		HeightCm:      normalized.Metrics.HeightCm,
		Age:           normalized.Metrics.Age,
		Sex:           normalized.Metrics.Sex,
		ActivityLevel: normalized.Metrics.ActivityLevel,
		Goal:          normalized.Metrics.Goal,
		NightShifts:   normalized.NightShifts,
		WaterTargetML: waterTarget,
		CalorieTarget: CalorieTarget(normalized.Metrics),
		UpdatedAt:     now.UTC(),
	}

	if err := service.profiles.Upsert(context.WithoutCancel(ctx), &profile); err != nil {
		service.logger.Error().Err(err).Int64("user_id", identity.UserID).Msg("save profile failed")
		return models.Profile{}, persistenceError("upsert profile", err)
	}

	service.logger.Info().
		Int64("user_id", profile.UserID).
		Int("calorie_target", profile.CalorieTarget).
		Int("water_target_ml", profile.WaterTargetML).
		Msg("profile saved")
	return profile, nil
}

// Fetch returns found=false for a user who never saved a profile.
func (service *ProfileService) Fetch(ctx context.Context, userID int64) (models.Profile, bool, error) {
	profile, found, err := service.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return models.Profile{}, false, persistenceError("load profile", err)
	}
	return profile, found, nil
}

func truncateDisplayName(raw string) string {
	displayName := strings.TrimSpace(raw)
	if utf8.RuneCountInString(displayName) <= maxProfileNameLength {
		return displayName
	}
	return string([]rune(displayName)[:maxProfileNameLength])
}
