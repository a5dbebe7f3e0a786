package db

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	embeddedmigrations "github.com/terraincognita07/nutrilog/migrations"
	"gorm.io/gorm"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

var migrationFilePattern = regexp.MustCompile(`^(\d+)_.*\.sql$`)
var addColumnStatementPattern = regexp.MustCompile(`(?i)^ALTER\s+TABLE\s+([^\s]+)\s+ADD\s+COLUMN\s+([^\s]+)\b`)

type embeddedMigration struct {
	Version string
	Order   int
	Name    string
	SQL     string
}

// ApplyMigrations runs every embedded migration for the database dialect
// that has not been recorded in schema_migrations yet.
func ApplyMigrations(database *gorm.DB) error {
	dialect, err := migrationDialect(database)
	if err != nil {
		return err
	}

	if err := ensureSchemaMigrationsTable(database, dialect); err != nil {
		return err
	}

	migrations, err := loadEmbeddedMigrations(dialect)
	if err != nil {
		return err
	}

	appliedVersions, err := loadAppliedMigrationVersions(database)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if _, alreadyApplied := appliedVersions[migration.Version]; alreadyApplied {
			continue
		}

		if err := applyMigration(database, dialect, migration); err != nil {
			return err
		}
	}

	return nil
}

func migrationDialect(database *gorm.DB) (string, error) {
	name := strings.ToLower(strings.TrimSpace(database.Dialector.Name()))
	switch name {
	case dialectSQLite, dialectPostgres:
		return name, nil
	default:
		return "", fmt.Errorf("no embedded migrations for dialect %q", name)
	}
}

func ensureSchemaMigrationsTable(database *gorm.DB, dialect string) error {
	appliedAtType := "DATETIME"
	if dialect == dialectPostgres {
		appliedAtType = "TIMESTAMPTZ"
	}
	createTableSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at %s NOT NULL DEFAULT CURRENT_TIMESTAMP
);`, appliedAtType)
	if err := database.Exec(createTableSQL).Error; err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	return nil
}

func loadEmbeddedMigrations(dialect string) ([]embeddedMigration, error) {
	entries, err := fs.ReadDir(embeddedmigrations.Files, dialect)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", dialect, err)
	}

	migrations := make([]embeddedMigration, 0, len(entries))
	seenVersions := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileName := strings.TrimSpace(entry.Name())
		matches := migrationFilePattern.FindStringSubmatch(fileName)
		if len(matches) != 2 {
			continue
		}

		version := matches[1]
		order, err := strconv.Atoi(version)
		if err != nil {
			return nil, fmt.Errorf("parse migration version from %s: %w", fileName, err)
		}

		if existing, exists := seenVersions[version]; exists {
			return nil, fmt.Errorf("duplicate migration version %s in %s and %s", version, existing, fileName)
		}
		seenVersions[version] = fileName

		rawSQL, err := fs.ReadFile(embeddedmigrations.Files, path.Join(dialect, fileName))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", fileName, err)
		}

		migrations = append(migrations, embeddedMigration{
			Version: version,
			Order:   order,
			Name:    fileName,
			SQL:     string(rawSQL),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		if migrations[i].Order == migrations[j].Order {
			return migrations[i].Name < migrations[j].Name
		}
		return migrations[i].Order < migrations[j].Order
	})

	return migrations, nil
}

type appliedMigrationVersion struct {
	Version string `gorm:"column:version"`
}

func loadAppliedMigrationVersions(database *gorm.DB) (map[string]struct{}, error) {
	rows := make([]appliedMigrationVersion, 0)
	if err := database.Raw(`SELECT version FROM schema_migrations`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load applied migration versions: %w", err)
	}

	versions := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		versions[row.Version] = struct{}{}
	}
	return versions, nil
}

// AppliedMigrations lists recorded schema versions in ascending order.
func AppliedMigrations(database *gorm.DB) ([]string, error) {
	rows := make([]appliedMigrationVersion, 0)
	if err := database.Raw(`SELECT version FROM schema_migrations ORDER BY version ASC`).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}

	versions := make([]string, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, row.Version)
	}
	return versions, nil
}

func applyMigration(database *gorm.DB, dialect string, migration embeddedMigration) error {
	return database.Transaction(func(tx *gorm.DB) error {
		statements := splitSQLStatements(migration.SQL)
		if len(statements) == 0 {
			return errors.New("migration has no SQL statements")
		}

		for _, statement := range statements {
			skip, err := shouldSkipStatement(tx, dialect, statement)
			if err != nil {
				return fmt.Errorf("inspect migration %s: %w", migration.Name, err)
			}
			if skip {
				continue
			}

			if err := tx.Exec(statement).Error; err != nil {
				return fmt.Errorf("execute migration %s statement %q: %w", migration.Name, statement, err)
			}
		}

		if err := tx.Exec(
			`INSERT INTO schema_migrations(version, name) VALUES (?, ?)`,
			migration.Version,
			migration.Name,
		).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", migration.Name, err)
		}

		return nil
	})
}

func splitSQLStatements(sqlText string) []string {
	rawParts := strings.Split(sqlText, ";")
	statements := make([]string, 0, len(rawParts))
	for _, rawPart := range rawParts {
		statement := strings.TrimSpace(rawPart)
		if statement == "" {
			continue
		}
		statements = append(statements, statement)
	}
	return statements
}

// shouldSkipStatement makes ADD COLUMN statements idempotent for databases
// that were created before the migration table existed.
func shouldSkipStatement(database *gorm.DB, dialect string, statement string) (bool, error) {
	matches := addColumnStatementPattern.FindStringSubmatch(strings.TrimSpace(statement))
	if len(matches) != 3 {
		return false, nil
	}

	tableName := normalizeSQLIdentifier(matches[1])
	columnName := normalizeSQLIdentifier(matches[2])
	if dialect == dialectPostgres {
		return postgresColumnExists(database, tableName, columnName)
	}
	return sqliteColumnExists(database, tableName, columnName)
}

type pragmaTableColumn struct {
	Name string `gorm:"column:name"`
}

func sqliteColumnExists(database *gorm.DB, tableName string, columnName string) (bool, error) {
	escapedTable := strings.ReplaceAll(tableName, `"`, `""`)
	query := fmt.Sprintf(`PRAGMA table_info("%s")`, escapedTable)

	columns := make([]pragmaTableColumn, 0)
	if err := database.Raw(query).Scan(&columns).Error; err != nil {
		return false, fmt.Errorf("load table_info for %s: %w", tableName, err)
	}
	for _, column := range columns {
		if strings.EqualFold(strings.TrimSpace(column.Name), columnName) {
			return true, nil
		}
	}
	return false, nil
}

func postgresColumnExists(database *gorm.DB, tableName string, columnName string) (bool, error) {
	var matched int64
	if err := database.Raw(
		`SELECT COUNT(*) FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = ? AND column_name = ?`,
		strings.ToLower(tableName),
		strings.ToLower(columnName),
	).Scan(&matched).Error; err != nil {
		return false, fmt.Errorf("load columns for %s: %w", tableName, err)
	}
	return matched > 0, nil
}

func normalizeSQLIdentifier(identifier string) string {
	normalized := strings.TrimSpace(identifier)
	normalized = strings.Trim(normalized, "\"`[]")
	return strings.TrimSpace(normalized)
}
