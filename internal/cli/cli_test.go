package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terraincognita07/nutrilog/internal/db"
	"github.com/terraincognita07/nutrilog/internal/security"
)

func TestRunMigrateCommandAppliesEmbeddedMigrations(t *testing.T) {
	options := db.Options{
		Driver:     db.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "nested", "nutrilog.db"),
		Logger:     zerolog.Nop(),
	}

	var out bytes.Buffer
	require.NoError(t, RunMigrateCommand(options, &out))
	assert.Contains(t, out.String(), "Schema is up to date (sqlite)")
	assert.Contains(t, out.String(), "Applied migrations: 0001, 0002")

	out.Reset()
	require.NoError(t, RunMigrateCommand(options, &out), "second run is a no-op")
	assert.Contains(t, out.String(), "0001, 0002")
}

func TestRunMigrateCommandRejectsUnknownDriver(t *testing.T) {
	err := RunMigrateCommand(db.Options{Driver: "mysql"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database init failed")
}

func TestRunSignInitDataCommandOutputVerifies(t *testing.T) {
	const botToken = "7012345678:AAHk3x9kz-cli-token"
	authDate := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	var out bytes.Buffer
	require.NoError(t, RunSignInitDataCommand(SignInitDataOptions{
		BotToken:     botToken,
		UserID:       90210,
		FirstName:    " Dmytro ",
		LanguageCode: "uk",
		AuthDate:     authDate,
		StartParam:   "promo",
	}, &out))

	raw := strings.TrimSpace(out.String())
	assert.Contains(t, raw, "start_param=promo")

	verifier, err := security.NewInitDataVerifier(botToken, time.Hour, time.Minute)
	require.NoError(t, err)
	identity, err := verifier.Verify(raw, authDate.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(90210), identity.UserID)
	assert.Equal(t, "Dmytro", identity.DisplayName)
	assert.Equal(t, "uk", identity.LanguageCode)
}

func TestRunSignInitDataCommandValidatesInput(t *testing.T) {
	err := RunSignInitDataCommand(SignInitDataOptions{UserID: 1}, &bytes.Buffer{})
	assert.EqualError(t, err, "bot token is required")

	err = RunSignInitDataCommand(SignInitDataOptions{BotToken: "1:x", UserID: 0}, &bytes.Buffer{})
	assert.EqualError(t, err, "user id must be a positive integer")
}
