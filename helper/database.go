package helper

import (
	"fmt"
	"log/slog"
	"time"

	"database/sql"

	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds PostgreSQL connection parameters.
type DatabaseConfiguration struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Database wraps a sql.DB handle together with the logger shared by the
// handlers built on top of it. Safe for concurrent use.
type Database struct {
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens a connection pool to PostgreSQL and verifies it with a
// ping.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Name, sslMode,
	)

	instance, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, NewError("open database connection", err)
	}

	instance.SetMaxOpenConns(25)
	instance.SetConnMaxIdleTime(5 * time.Minute)

	if err := instance.Ping(); err != nil {
		return nil, NewError("ping database", err)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Instance: instance,
		Logger:   logger,
	}, nil
}
