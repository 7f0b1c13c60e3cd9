// CLI tool to apply pending database migrations from a directory of
// YYYY-MM-DD-NNN-description.sql files. Applied files are recorded in the
// migrations table; each file and its record commit in one transaction.
// Usage: go run ./cmd/migrate [--dir db] [--dry-run] (from the repo root)
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// migrationName matches YYYY-MM-DD-NNN-description.sql.
var migrationName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}-\d{3})-([a-z0-9]+(?:-[a-z0-9]+)*)\.sql$`)

// undefinedTable is the Postgres error code for a missing relation.
const undefinedTable = "42P01"

var (
	migrateDir    string
	migrateDryRun bool
)

var rootCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Apply pending SQL migrations",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), migrateDir, migrateDryRun)
	},
}

func init() {
	rootCmd.Flags().StringVar(&migrateDir, "dir", "db", "directory holding the migration files")
	rootCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "list pending migrations without applying them")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, dir string, dryRun bool) error {
	// Files are checked before connecting so a bad --dir fails fast.
	files, err := migrationFiles(dir)
	if err != nil {
		return err
	}

	if err := godotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "No .env loaded, using environment: %v\n", err)
	}
	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return errors.New("DB_URL is not set")
	}
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(ctx)

	applied, err := appliedMigrations(ctx, conn)
	if err != nil {
		return err
	}

	pending := pendingMigrations(files, applied)
	for _, f := range files {
		if applied[filepath.Base(f)] {
			fmt.Printf("  skip: %s\n", filepath.Base(f))
		}
	}
	if len(pending) == 0 {
		fmt.Println("No pending migrations.")
		return nil
	}
	if dryRun {
		for _, f := range pending {
			fmt.Printf("  pending: %s\n", filepath.Base(f))
		}
		fmt.Printf("\n%d migration(s) pending.\n", len(pending))
		return nil
	}

	for _, f := range pending {
		if err := applyMigration(ctx, conn, f); err != nil {
			return err
		}
		fmt.Printf("  applied: %s\n", filepath.Base(f))
	}
	fmt.Printf("\n%d migration(s) applied.\n", len(pending))
	return nil
}

// migrationFiles lists dir's .sql files in apply order. The directory must
// exist, hold at least one migration, and every .sql file in it must follow
// the naming scheme with a unique date-sequence prefix.
func migrationFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("migrations dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations dir %s is not a directory", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migration files found in %s", dir)
	}
	sort.Strings(files)

	seen := make(map[string]string, len(files))
	for _, f := range files {
		name := filepath.Base(f)
		m := migrationName.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("%s does not match YYYY-MM-DD-NNN-description.sql", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return nil, fmt.Errorf("%s and %s share the prefix %s", prev, name, m[1])
		}
		seen[m[1]] = name
	}
	return files, nil
}

// pendingMigrations keeps the files whose base name is not yet recorded.
func pendingMigrations(files []string, applied map[string]bool) []string {
	var pending []string
	for _, f := range files {
		if !applied[filepath.Base(f)] {
			pending = append(pending, f)
		}
	}
	return pending
}

// appliedMigrations reads the migrations table. A missing table means nothing
// has run yet; any other failure is returned.
func appliedMigrations(ctx context.Context, conn *pgx.Conn) (map[string]bool, error) {
	rows, err := conn.Query(ctx, "SELECT migration FROM migrations")
	var names []string
	if err == nil {
		names, err = pgx.CollectRows(rows, pgx.RowTo[string])
	}
	if isUndefinedTable(err) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	applied := make(map[string]bool, len(names))
	for _, n := range names {
		applied[n] = true
	}
	return applied, nil
}

// isUndefinedTable reports whether err is Postgres's missing-relation error.
func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// applyMigration runs one file and records it in the same transaction.
func applyMigration(ctx context.Context, conn *pgx.Conn, path string) error {
	filename := filepath.Base(path)
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("run %s: %w", filename, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO migrations (migration, description) VALUES ($1, $2)",
			filename, descriptionFromFilename(filename)); err != nil {
			return fmt.Errorf("record %s: %w", filename, err)
		}
		return nil
	})
}

// descriptionFromFilename strips the YYYY-MM-DD-NNN- prefix and .sql suffix.
func descriptionFromFilename(filename string) string {
	if m := migrationName.FindStringSubmatch(filename); m != nil {
		return strings.ReplaceAll(m[2], "-", " ")
	}
	return strings.ReplaceAll(strings.TrimSuffix(filename, ".sql"), "-", " ")
}
