package services

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/nutrilog/internal/events"
	"github.com/terraincognita07/nutrilog/internal/models"
)

const (
	maxMealNameLength    = 120
	maxMealCalories      = 10000
	maxWaterVolumeML     = 5000
	DefaultWaterVolumeML = 250
)

type LedgerRepository interface {
	InsertMeal(ctx context.Context, meal *models.Meal) error
	InsertWater(ctx context.Context, entry *models.WaterEntry) error
	LoadDay(ctx context.Context, userID int64, start time.Time, end time.Time) (models.DayLedger, error)
}

type MealInput struct {
	Name     string
	Calories *float64
}

// WaterInput with a nil volume logs one default glass.
type WaterInput struct {
	VolumeML *float64
}

type LedgerService struct {
	ledger    LedgerRepository
	publisher events.Publisher
	observer  Observer
	logger    zerolog.Logger
}

func NewLedgerService(ledger LedgerRepository, publisher events.Publisher, observer Observer, logger zerolog.Logger) *LedgerService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &LedgerService{ledger: ledger, publisher: publisher, observer: observer, logger: logger}
}

func NormalizeMealInput(input MealInput) (string, int, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", 0, invalidField("name", "required")
	}
	if utf8.RuneCountInString(name) > maxMealNameLength {
		return "", 0, invalidField("name", "must be at most 120 characters")
	}
	if input.Calories == nil {
		return "", 0, invalidField("calories", "required")
	}
	calories := *input.Calories
	if math.IsNaN(calories) || math.IsInf(calories, 0) || calories < 0 || calories > maxMealCalories {
		return "", 0, invalidField("calories", rangeReason(0, maxMealCalories))
	}
	return name, int(math.Round(calories)), nil
}

func NormalizeWaterInput(input WaterInput) (int, error) {
	if input.VolumeML == nil {
		return DefaultWaterVolumeML, nil
	}
	volume := math.Round(*input.VolumeML)
	if math.IsNaN(volume) || volume < 1 || volume > maxWaterVolumeML {
		return 0, invalidField("volume_ml", rangeReason(1, maxWaterVolumeML))
	}
	return int(volume), nil
}

// SaveMeal appends a meal stamped with now. Once issued, the insert is not
// aborted by the caller going away.
func (service *LedgerService) SaveMeal(ctx context.Context, userID int64, input MealInput, now time.Time) (models.Meal, error) {
	name, calories, err := NormalizeMealInput(input)
	if err != nil {
		return models.Meal{}, err
	}

	meal := models.Meal{UserID: userID, Name: name, Calories: calories, CreatedAt: now.UTC()}
	writeCtx := context.WithoutCancel(ctx)
	if err := service.ledger.InsertMeal(writeCtx, &meal); err != nil {
		service.observer.LedgerWrite(events.KindMealLogged, false)
		service.logger.Error().Err(err).Int64("user_id", userID).Msg("insert meal failed")
		return models.Meal{}, persistenceError("insert meal", err)
	}
	service.observer.LedgerWrite(events.KindMealLogged, true)

	service.publish(writeCtx, events.LedgerEvent{
		Kind:       events.KindMealLogged,
		UserID:     userID,
		Name:       meal.Name,
		Calories:   meal.Calories,
		OccurredAt: meal.CreatedAt,
	})
	return meal, nil
}

func (service *LedgerService) SaveWater(ctx context.Context, userID int64, input WaterInput, now time.Time) (models.WaterEntry, error) {
	volume, err := NormalizeWaterInput(input)
	if err != nil {
		return models.WaterEntry{}, err
	}

	entry := models.WaterEntry{UserID: userID, VolumeML: volume, CreatedAt: now.UTC()}
	writeCtx := context.WithoutCancel(ctx)
	if err := service.ledger.InsertWater(writeCtx, &entry); err != nil {
		service.observer.LedgerWrite(events.KindWaterLogged, false)
		service.logger.Error().Err(err).Int64("user_id", userID).Msg("insert water failed")
		return models.WaterEntry{}, persistenceError("insert water", err)
	}
	service.observer.LedgerWrite(events.KindWaterLogged, true)

	service.publish(writeCtx, events.LedgerEvent{
		Kind:       events.KindWaterLogged,
		UserID:     userID,
		VolumeML:   entry.VolumeML,
		OccurredAt: entry.CreatedAt,
	})
	return entry, nil
}

// publish never fails the write that triggered it.
func (service *LedgerService) publish(ctx context.Context, event events.LedgerEvent) {
	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := service.publisher.Publish(publishCtx, event); err != nil {
		service.observer.EventPublished(event.Kind, false)
		service.logger.Warn().Err(err).Str("kind", event.Kind).Int64("user_id", event.UserID).Msg("publish ledger event failed")
		return
	}
	service.observer.EventPublished(event.Kind, true)
}
