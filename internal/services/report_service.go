package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/terraincognita07/nutrilog/internal/models"
	"github.com/terraincognita07/nutrilog/internal/security"
)

const (
	reportDateLayout = "2006-01-02"
	mealTimeLayout   = "15:04"
)

type ReportLocalizer interface {
	DailyTips(language string) []string
	FormatDate(language string, day time.Time) string
}

type DailyReport struct {
	Date             string       `json:"day"`
	DateLabel        string       `json:"date"`
	CalorieTarget    int          `json:"target"`
	CalorieConsumed  int          `json:"consumed"`
	CalorieRemaining int          `json:"remaining"`
	WaterTarget      int          `json:"water_target"`
	WaterConsumed    int          `json:"water_consumed"`
	Meals            []ReportMeal `json:"meals"`
	Tip              string       `json:"daily_tip"`
	Degraded         bool         `json:"degraded"`
}

type ReportMeal struct {
	Time     string `json:"time"`
	Name     string `json:"name"`
	Calories int    `json:"calories"`
}

type ReportService struct {
	ledger    LedgerRepository
	localizer ReportLocalizer
	location  *time.Location
	observer  Observer
	logger    zerolog.Logger
}

func NewReportService(ledger LedgerRepository, localizer ReportLocalizer, location *time.Location, observer Observer, logger zerolog.Logger) *ReportService {
	if location == nil {
		location = time.UTC
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &ReportService{
		ledger:    ledger,
		localizer: localizer,
		location:  location,
		observer:  observer,
		logger:    logger,
	}
}

// BuildReport never fails. A store error yields a degraded report with
// default targets and zero consumption.
func (service *ReportService) BuildReport(ctx context.Context, identity security.Identity, now time.Time) DailyReport {
	start, end := DayRange(now, service.location)

	ledger, err := service.ledger.LoadDay(ctx, identity.UserID, start, end)
	if err != nil {
		service.observer.ReportDegraded()
		service.logger.Error().Err(err).Int64("user_id", identity.UserID).Str("day", start.Format(reportDateLayout)).Msg("daily report degraded")
		return service.assemble(identity, start, models.DayLedger{}, true)
	}
	return service.assemble(identity, start, ledger, false)
}

func (service *ReportService) assemble(identity security.Identity, day time.Time, ledger models.DayLedger, degraded bool) DailyReport {
	calorieTarget := models.DefaultCalorieTarget
	waterTarget := models.DefaultWaterTargetML
	if ledger.HasProfile {
		if ledger.Profile.CalorieTarget > 0 {
			calorieTarget = ledger.Profile.CalorieTarget
		}
		if ledger.Profile.WaterTargetML > 0 {
			waterTarget = ledger.Profile.WaterTargetML
		}
	}

	meals := make([]ReportMeal, 0, len(ledger.Meals))
	consumed := 0
	for _, meal := range ledger.Meals {
		consumed += meal.Calories
		meals = append(meals, ReportMeal{
			Time:     meal.CreatedAt.In(service.location).Format(mealTimeLayout),
			Name:     meal.Name,
			Calories: meal.Calories,
		})
	}

	return DailyReport{
		Date:             day.Format(reportDateLayout),
		DateLabel:        service.localizer.FormatDate(identity.LanguageCode, day),
		CalorieTarget:    calorieTarget,
		CalorieConsumed:  consumed,
		CalorieRemaining: calorieTarget - consumed,
		WaterTarget:      waterTarget,
		WaterConsumed:    ledger.WaterTotalML,
		Meals:            meals,
		Tip:              DailyTip(service.localizer.DailyTips(identity.LanguageCode), day),
		Degraded:         degraded,
	}
}

// DailyTip rotates through tips by local day of year.
func DailyTip(tips []string, day time.Time) string {
	if len(tips) == 0 {
		return ""
	}
	return tips[day.YearDay()%len(tips)]
}
