// Package dbconfig holds the Postgres settings for the record store server.
// The device binaries never touch a database; only cmd/storeserver reads
// this.
package dbconfig

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
)

// Config holds Postgres connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewConfigFromEnv reads STORE_DB_* environment variables, defaulting to a
// local development database.
func NewConfigFromEnv() Config {
	port, err := strconv.Atoi(getEnv("STORE_DB_PORT", "5432"))
	if err != nil {
		port = 5432
	}

	return Config{
		Host:     getEnv("STORE_DB_HOST", "localhost"),
		Port:     port,
		User:     getEnv("STORE_DB_USER", "postgres"),
		Password: getEnv("STORE_DB_PASSWORD", "postgres"),
		Database: getEnv("STORE_DB_NAME", "neuroswipe"),
		SSLMode:  getEnv("STORE_DB_SSLMODE", "disable"),
	}
}

// DSN returns the Postgres connection URL for lib/pq.
func (c Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
