package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/terraincognita07/nutrilog/internal/db"
)

// RunMigrateCommand opens the configured store, which applies every pending
// embedded migration, and prints the applied versions.
func RunMigrateCommand(options db.Options, out io.Writer) error {
	database, err := db.Open(options)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	versions, err := db.AppliedMigrations(database)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ Schema is up to date (%s)\n", describeDriver(options.Driver))
	if len(versions) == 0 {
		fmt.Fprintln(out, "No migrations recorded.")
		return nil
	}
	fmt.Fprintf(out, "Applied migrations: %s\n", strings.Join(versions, ", "))
	return nil
}

func describeDriver(driver string) string {
	normalized := strings.ToLower(strings.TrimSpace(driver))
	if normalized == "" {
		return db.DriverSQLite
	}
	return normalized
}
