package main

import (
	"bufio"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"urbanlens/internal/config"
	"urbanlens/internal/db"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect database")
	}
	defer database.Close()

	if _, err := database.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (filename text primary key, applied_at timestamptz default now())`); err != nil {
		logger.WithError(err).Fatal("failed to ensure schema_migrations")
	}

	files, err := filepath.Glob("migrations/*.sql")
	if err != nil {
		logger.WithError(err).Fatal("failed to read migrations")
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.Get(&exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			logger.WithError(err).Fatal("failed to read migration state")
		}
		if exists {
			continue
		}
		if err := applyFile(database, file); err != nil {
			logger.WithError(err).WithField("migration", filename).Fatal("failed to apply migration")
		}
		if _, err := database.Exec(`INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			logger.WithError(err).WithField("migration", filename).Fatal("failed to record migration")
		}
		logger.WithField("migration", filename).Info("applied")
		applied++
	}
	logger.WithField("applied", applied).Info("migrations up to date")
}

// applyFile runs the up section of one migration. Statements above the
// "-- +migrate Down" marker are executed in order; the down section is only
// there for manual rollbacks.
func applyFile(db execer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	up, _, _ := strings.Cut(string(content), "-- +migrate Down")
	for _, stmt := range splitSQL(up) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func splitSQL(sqlText string) []string {
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(sqlText))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.Contains(line, ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}
