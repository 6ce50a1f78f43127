package config // package config loads application configuration from environment variables

import (
	"fmt"     // fmt builds the MySQL DSN
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
)

// Store backends selectable with STORE.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings are only required when the
// MySQL store is selected.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	Store         string // "mysql" (default) or "memory"
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	JWTSecret     string // secret used to verify access tokens
	WebhookSecret string // shared secret expected from gate hardware and the payment collaborator
	AMQPURL       string // RabbitMQ URL; empty disables event publishing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          must("APP_PORT"),
		Store:         envStr("STORE", StoreMySQL),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		JWTSecret:     must("JWT_SECRET"),
		WebhookSecret: must("WEBHOOK_SECRET"),
		AMQPURL:       AMQPFromEnv(),
	}
	if cfg.Store == StoreMySQL {
		db := LoadDB()
		cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName = db.DBUser, db.DBHost, db.DBPort, db.DBName
	}
	return cfg
}

// LoadDB reads only the database settings, for tools such as the migrator.
func LoadDB() Config {
	return Config{
		Store:  StoreMySQL,
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),
	}
}

// DSN returns the MySQL data source name.  parseTime=true maps DATETIME to
// time.Time and loc=UTC keeps times consistent.
func (c Config) DSN() string {
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

// AMQPFromEnv honours RABBITMQ_URL, then AMQP_URL.
func AMQPFromEnv() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
