package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/terraincognita07/nutrilog/internal/events"
	"github.com/terraincognita07/nutrilog/internal/models"
)

type profileRepositoryStub struct {
	mu        sync.Mutex
	rows      map[int64]models.Profile
	upsertErr error
	findErr   error
	ctxErrs   []error
}

func newProfileRepositoryStub() *profileRepositoryStub {
	return &profileRepositoryStub{rows: make(map[int64]models.Profile)}
}

func (stub *profileRepositoryStub) Upsert(ctx context.Context, profile *models.Profile) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	stub.ctxErrs = append(stub.ctxErrs, ctx.Err())
	if stub.upsertErr != nil {
		return stub.upsertErr
	}
	stub.rows[profile.UserID] = *profile
	return nil
}

func (stub *profileRepositoryStub) FindByUserID(_ context.Context, userID int64) (models.Profile, bool, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	if stub.findErr != nil {
		return models.Profile{}, false, stub.findErr
	}
	profile, ok := stub.rows[userID]
	return profile, ok, nil
}

type ledgerRepositoryStub struct {
	mu        sync.Mutex
	profiles  map[int64]models.Profile
	meals     []models.Meal
	water     []models.WaterEntry
	nextID    uint
	insertErr error
	loadErr   error
	ctxErrs   []error
	loads     int
}

func newLedgerRepositoryStub() *ledgerRepositoryStub {
	return &ledgerRepositoryStub{profiles: make(map[int64]models.Profile), nextID: 1}
}

func (stub *ledgerRepositoryStub) InsertMeal(ctx context.Context, meal *models.Meal) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	stub.ctxErrs = append(stub.ctxErrs, ctx.Err())
	if stub.insertErr != nil {
		return stub.insertErr
	}
	meal.ID = stub.nextID
	stub.nextID++
	stub.meals = append(stub.meals, *meal)
	return nil
}

func (stub *ledgerRepositoryStub) InsertWater(ctx context.Context, entry *models.WaterEntry) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	stub.ctxErrs = append(stub.ctxErrs, ctx.Err())
	if stub.insertErr != nil {
		return stub.insertErr
	}
	entry.ID = stub.nextID
	stub.nextID++
	stub.water = append(stub.water, *entry)
	return nil
}

func (stub *ledgerRepositoryStub) LoadDay(_ context.Context, userID int64, start time.Time, end time.Time) (models.DayLedger, error) {
	stub.mu.Lock()
	defer stub.mu.Unlock()

	stub.loads++
	if stub.loadErr != nil {
		return models.DayLedger{}, stub.loadErr
	}

	inWindow := func(userIDValue int64, createdAt time.Time) bool {
		return userIDValue == userID && !createdAt.Before(start) && createdAt.Before(end)
	}

	ledger := models.DayLedger{Meals: make([]models.Meal, 0)}
	ledger.Profile, ledger.HasProfile = stub.profiles[userID]
	for _, meal := range stub.meals {
		if inWindow(meal.UserID, meal.CreatedAt) {
			ledger.Meals = append(ledger.Meals, meal)
		}
	}
	sort.SliceStable(ledger.Meals, func(i, j int) bool {
		return ledger.Meals[i].CreatedAt.Before(ledger.Meals[j].CreatedAt)
	})
	for _, entry := range stub.water {
		if inWindow(entry.UserID, entry.CreatedAt) {
			ledger.WaterTotalML += entry.VolumeML
		}
	}
	return ledger, nil
}

type localizerStub struct {
	tips []string
}

func (stub localizerStub) DailyTips(string) []string {
	return stub.tips
}

func (stub localizerStub) FormatDate(language string, day time.Time) string {
	return language + ":" + day.Format("02.01.2006")
}

type observerStub struct {
	mu        sync.Mutex
	degraded  int
	writes    map[string][]bool
	published map[string][]bool
	outcomes  []string
}

func newObserverStub() *observerStub {
	return &observerStub{writes: make(map[string][]bool), published: make(map[string][]bool)}
}

func (stub *observerStub) ReportDegraded() {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.degraded++
}

func (stub *observerStub) LedgerWrite(kind string, succeeded bool) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.writes[kind] = append(stub.writes[kind], succeeded)
}

func (stub *observerStub) EventPublished(kind string, succeeded bool) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.published[kind] = append(stub.published[kind], succeeded)
}

func (stub *observerStub) AnalyzerOutcome(outcome string) {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	stub.outcomes = append(stub.outcomes, outcome)
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.LedgerEvent
	err    error
}

func (stub *publisherStub) Publish(_ context.Context, event events.LedgerEvent) error {
	stub.mu.Lock()
	defer stub.mu.Unlock()
	if stub.err != nil {
		return stub.err
	}
	stub.events = append(stub.events, event)
	return nil
}

func (stub *publisherStub) Close() error {
	return nil
}

type analyzerStub struct {
	guess    FoodGuess
	err      error
	block    bool
	mimeType string
}

func (stub *analyzerStub) AnalyzeFoodImage(ctx context.Context, _ []byte, mimeType string) (FoodGuess, error) {
	stub.mimeType = mimeType
	if stub.block {
		<-ctx.Done()
		return FoodGuess{}, ctx.Err()
	}
	return stub.guess, stub.err
}

func floatPtr(value float64) *float64 {
	return &value
}
