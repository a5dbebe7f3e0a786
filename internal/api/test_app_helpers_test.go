package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/nutrilog/internal/db"
	"github.com/terraincognita07/nutrilog/internal/i18n"
	"github.com/terraincognita07/nutrilog/internal/metrics"
	"github.com/terraincognita07/nutrilog/internal/ratelimit"
	"github.com/terraincognita07/nutrilog/internal/security"
	"github.com/terraincognita07/nutrilog/internal/services"
	"gorm.io/gorm"
)

const testBotToken = "7012345678:AAHk3x9kz-api-test-token"

var testNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

type stubAnalyzer struct {
	mu    sync.Mutex
	guess services.FoodGuess
	err   error
	calls int
	mime  string
}

func (analyzer *stubAnalyzer) AnalyzeFoodImage(_ context.Context, _ []byte, mimeType string) (services.FoodGuess, error) {
	analyzer.mu.Lock()
	defer analyzer.mu.Unlock()
	analyzer.calls++
	analyzer.mime = mimeType
	return analyzer.guess, analyzer.err
}

type testEnv struct {
	app      *fiber.App
	handler  *Handler
	database *gorm.DB
	analyzer *stubAnalyzer
}

type testEnvOption func(*Dependencies)

func withPhotoLimiter(limiter ratelimit.Limiter) testEnvOption {
	return func(deps *Dependencies) {
		deps.PhotoLimiter = limiter
	}
}

func newTestEnv(t *testing.T, options ...testEnvOption) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "nutrilog-api.db"), logger)
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	kyiv, err := time.LoadLocation("Europe/Kyiv")
	require.NoError(t, err)
	manager, err := i18n.NewManager(i18n.LangUK)
	require.NoError(t, err)
	verifier, err := security.NewInitDataVerifier(testBotToken, security.DefaultInitDataMaxAge, security.DefaultClockSkew)
	require.NoError(t, err)

	repositories := db.NewRepositories(database)
	recorder := metrics.NewRecorder()
	analyzer := &stubAnalyzer{guess: services.FoodGuess{Name: "Вареники", Calories: 420, Description: "Вареники з картоплею"}}

	deps := Dependencies{
		Verifier: verifier,
		Profiles: services.NewProfileService(repositories.Profiles, logger),
		Ledger:   services.NewLedgerService(repositories.Ledger, nil, recorder, logger),
		Reports:  services.NewReportService(repositories.Ledger, manager, kyiv, recorder, logger),
		Photos:   services.NewPhotoService(analyzer, time.Second, recorder, logger),
		I18n:     manager,
		Metrics:  recorder,
		Logger:   logger,
	}
	for _, option := range options {
		option(&deps)
	}

	handler, err := NewHandler(deps)
	require.NoError(t, err)
	handler.now = func() time.Time { return testNow }

	return &testEnv{
		app:      NewApp(handler, AppOptions{}),
		handler:  handler,
		database: database,
		analyzer: analyzer,
	}
}

func signInitData(t *testing.T, userID int64, language string) string {
	t.Helper()

	raw, err := security.SignInitData(testBotToken, security.InitDataUser{
		ID:           userID,
		FirstName:    "Olha",
		Username:     "olha_k",
		LanguageCode: language,
	}, testNow.Add(-time.Minute), nil)
	require.NoError(t, err)
	return raw
}

func (env *testEnv) do(t *testing.T, method string, path string, initData string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if initData != "" {
		request.Header.Set(fiber.HeaderAuthorization, "tma "+initData)
	}

	response, err := env.app.Test(request, -1)
	require.NoError(t, err)
	return response
}

func decodeJSON(t *testing.T, response *http.Response) map[string]any {
	t.Helper()
	defer response.Body.Close()

	payload := map[string]any{}
	require.NoError(t, json.NewDecoder(response.Body).Decode(&payload))
	return payload
}

func readBody(t *testing.T, response *http.Response) string {
	t.Helper()
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return string(body)
}
