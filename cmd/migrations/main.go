package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/config"
	"github.com/vncsmyrnk/poker/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal().Msg("a migration name is required")
	}
	migrationName := os.Args[1]

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	basePath := filepath.Join(".", "internal", "adapters", "repository", "postgres", "migrations")
	fileContent, err := migrationFileContent(basePath, migrationName)
	if err != nil {
		log.Fatal().Err(err).Str("migration", migrationName).Msg("failed to read migration")
	}

	if _, err := db.Exec(string(fileContent)); err != nil {
		log.Fatal().Err(err).Str("migration", migrationName).Msg("failed to execute migration")
	}

	log.Info().Str("migration", migrationName).Msg("migration executed successfully")
}

func migrationFileContent(basePath string, migrationName string) ([]byte, error) {
	filePath, err := migrationFilePath(basePath, migrationName)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(filepath.Join(basePath, filePath))
}

// migrationFilePath finds the file whose name ends in <migrationName>.sql, e.g. "create_sessions.up".
func migrationFilePath(basePath string, migrationName string) (string, error) {
	regex, err := regexp.Compile(fmt.Sprintf(`^.*%s\.sql$`, regexp.QuoteMeta(migrationName)))
	if err != nil {
		return "", err
	}

	files, err := os.ReadDir(basePath)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if regex.MatchString(f.Name()) {
			return f.Name(), nil
		}
	}

	return "", fmt.Errorf("migration file %q not found in %s", migrationName, basePath)
}
