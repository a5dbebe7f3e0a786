package db

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func TestOpenSQLiteAppliesEmbeddedMigrationsOnCleanDatabase(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "nutrilog-clean.db")
	database := openSQLiteForMigrationBootstrapTest(t, databasePath)

	assertTableHasColumns(t, database, "user_profile", "user_id", "display_name", "weight_kg", "height_cm", "age", "sex", "activity_level", "goal", "night_shifts", "water_target_ml", "calorie_target", "updated_at")
	assertTableHasColumns(t, database, "meals", "user_id", "name", "calories", "created_at")
	assertTableHasColumns(t, database, "water_intake", "user_id", "volume_ml", "created_at")
	assertAllEmbeddedMigrationsApplied(t, database)
}

func TestOpenSQLiteSkipsColumnsAddedBeforeMigrationTracking(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "nutrilog-legacy.db")
	seedLegacySchema(t, databasePath)

	database := openSQLiteForMigrationBootstrapTest(t, databasePath)

	assertTableHasColumns(t, database, "user_profile", "night_shifts")
	assertAllEmbeddedMigrationsApplied(t, database)

	var legacy struct {
		UserID      int64 `gorm:"column:user_id"`
		NightShifts bool  `gorm:"column:night_shifts"`
	}
	if err := database.Raw(`SELECT user_id, night_shifts FROM user_profile WHERE user_id = ?`, 42).Scan(&legacy).Error; err != nil {
		t.Fatalf("load legacy profile: %v", err)
	}
	if legacy.UserID != 42 || !legacy.NightShifts {
		t.Fatalf("expected legacy row to survive migration, got %+v", legacy)
	}
}

func TestOpenSQLiteMigrationBootstrapIsIdempotent(t *testing.T) {
	databasePath := filepath.Join(t.TempDir(), "nutrilog-idempotent.db")

	firstOpen, err := OpenSQLite(databasePath, zerolog.Nop())
	if err != nil {
		t.Fatalf("first open sqlite: %v", err)
	}
	firstRecords := loadMigrationRecords(t, firstOpen)

	firstSQLDB, err := firstOpen.DB()
	if err != nil {
		t.Fatalf("first open sql db: %v", err)
	}
	if err := firstSQLDB.Close(); err != nil {
		t.Fatalf("close first sql db: %v", err)
	}

	secondOpen := openSQLiteForMigrationBootstrapTest(t, databasePath)
	secondRecords := loadMigrationRecords(t, secondOpen)

	if !reflect.DeepEqual(firstRecords, secondRecords) {
		t.Fatalf("expected migration records to remain unchanged between boots, before=%v after=%v", firstRecords, secondRecords)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected unknown driver to be rejected")
	}
}

func TestLoadEmbeddedMigrationsHasMatchingVersionsPerDialect(t *testing.T) {
	sqliteMigrations, err := loadEmbeddedMigrations(dialectSQLite)
	if err != nil {
		t.Fatalf("load sqlite migrations: %v", err)
	}
	postgresMigrations, err := loadEmbeddedMigrations(dialectPostgres)
	if err != nil {
		t.Fatalf("load postgres migrations: %v", err)
	}

	if !reflect.DeepEqual(migrationVersions(sqliteMigrations), migrationVersions(postgresMigrations)) {
		t.Fatalf("dialects diverged: sqlite=%v postgres=%v", migrationVersions(sqliteMigrations), migrationVersions(postgresMigrations))
	}
}

func openSQLiteForMigrationBootstrapTest(t *testing.T, databasePath string) *gorm.DB {
	t.Helper()

	database, err := OpenSQLite(databasePath, zerolog.Nop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return database
}

func seedLegacySchema(t *testing.T, databasePath string) {
	t.Helper()

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)", databasePath)
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open legacy sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open legacy sql db: %v", err)
	}
	defer sqlDB.Close()

	statements := []string{
		`CREATE TABLE user_profile (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL UNIQUE,
  display_name TEXT NOT NULL DEFAULT '',
  weight_kg REAL NOT NULL,
  height_cm REAL NOT NULL,
  age INTEGER NOT NULL,
  sex TEXT NOT NULL,
  activity_level TEXT NOT NULL,
  goal TEXT NOT NULL DEFAULT 'maintain',
  night_shifts BOOLEAN NOT NULL DEFAULT 0,
  water_target_ml INTEGER NOT NULL,
  calorie_target INTEGER NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
		`INSERT INTO user_profile (user_id, weight_kg, height_cm, age, sex, activity_level, night_shifts, water_target_ml, calorie_target)
VALUES (42, 70, 175, 30, 'male', 'light', 1, 2100, 2400)`,
	}
	for _, statement := range statements {
		if err := database.Exec(statement).Error; err != nil {
			t.Fatalf("seed legacy schema: %v", err)
		}
	}
}

func assertTableHasColumns(t *testing.T, database *gorm.DB, tableName string, expected ...string) {
	t.Helper()

	columns := loadTableColumns(t, database, tableName)
	for _, column := range expected {
		if _, ok := columns[column]; !ok {
			t.Fatalf("expected %s.%s to exist, got %v", tableName, column, columns)
		}
	}
}

func assertAllEmbeddedMigrationsApplied(t *testing.T, database *gorm.DB) {
	t.Helper()

	migrations, err := loadEmbeddedMigrations(dialectSQLite)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	expectedVersions := migrationVersions(migrations)

	actualVersions := make([]string, 0)
	for _, record := range loadMigrationRecords(t, database) {
		actualVersions = append(actualVersions, record.Version)
	}

	if !reflect.DeepEqual(expectedVersions, actualVersions) {
		t.Fatalf("unexpected applied migration versions: expected=%v actual=%v", expectedVersions, actualVersions)
	}
}

type migrationRecord struct {
	Version   string `gorm:"column:version"`
	Name      string `gorm:"column:name"`
	AppliedAt string `gorm:"column:applied_at"`
}

func loadMigrationRecords(t *testing.T, database *gorm.DB) []migrationRecord {
	t.Helper()

	records := make([]migrationRecord, 0)
	if err := database.Raw(
		`SELECT version, name, applied_at FROM schema_migrations ORDER BY version ASC`,
	).Scan(&records).Error; err != nil {
		t.Fatalf("load migration records: %v", err)
	}
	return records
}

func loadTableColumns(t *testing.T, database *gorm.DB, tableName string) map[string]struct{} {
	t.Helper()

	escapedTable := strings.ReplaceAll(tableName, `"`, `""`)
	query := fmt.Sprintf(`PRAGMA table_info("%s")`, escapedTable)

	var rows []struct {
		Name string `gorm:"column:name"`
	}
	if err := database.Raw(query).Scan(&rows).Error; err != nil {
		t.Fatalf("load table columns for %s: %v", tableName, err)
	}

	columns := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		columns[strings.ToLower(strings.TrimSpace(row.Name))] = struct{}{}
	}
	return columns
}

func migrationVersions(migrations []embeddedMigration) []string {
	versions := make([]string, 0, len(migrations))
	for _, migration := range migrations {
		versions = append(versions, migration.Version)
	}
	return versions
}
