// Package config reads service settings from the environment, after loading an
// optional .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultServicePort is the fixed port the order service listens on for its
// JSON API; the table client pairs it with the page host.
const DefaultServicePort = "8081"

type Database struct {
	Driver         string
	Path           string
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	MigrationsPath string
}

type Server struct {
	HTTPPort        string
	GRPCPort        string
	LogLevel        string
	DB              Database
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    []string
	OrdersTopic     string
	CORSOrigins     []string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Seed            bool
}

type Client struct {
	TableURL       string
	ServiceURL     string
	LogLevel       string
	CatalogTimeout time.Duration
	SubmitTimeout  time.Duration
}

// LoadEnvFile loads variables from the given files (".env" when none is given)
// without overriding variables that are already set. Missing files are ignored.
func LoadEnvFile(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func LoadServer() (*Server, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	driver := getEnv("DB_DRIVER", DriverSQLite)
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("invalid DB_DRIVER %q", driver)
	}

	cfg := &Server{
		HTTPPort: getEnv("HTTP_PORT", DefaultServicePort),
		GRPCPort: getEnv("GRPC_PORT", "50061"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DB: Database{
			Driver:         driver,
			Path:           getEnv("DB_PATH", "./data/oby.db"),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           dbPort,
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "oby"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations/"+driver),
		},
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:  splitList(getEnv("KAFKA_BROKERS", "")),
		OrdersTopic:   getEnv("ORDERS_TOPIC", "orders"),
		CORSOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Seed:          getEnvBool("SEED", false),
	}

	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

func LoadClient() (*Client, error) {
	return LoadClientFor(getEnv("TABLE_URL", ""))
}

// LoadClientFor is LoadClient with the table page URL given explicitly instead
// of taken from TABLE_URL. SERVICE_URL still wins over the derived address.
func LoadClientFor(tableURL string) (*Client, error) {
	serviceURL := getEnv("SERVICE_URL", "")
	if serviceURL == "" {
		var err error
		serviceURL, err = ServiceURLFromPage(tableURL, getEnv("SERVICE_PORT", DefaultServicePort))
		if err != nil {
			return nil, err
		}
	}

	cfg := &Client{
		TableURL:   tableURL,
		ServiceURL: strings.TrimRight(serviceURL, "/"),
		LogLevel:   getEnv("LOG_LEVEL", "warn"),
	}

	var err error
	if cfg.CatalogTimeout, err = getEnvDuration("CATALOG_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SubmitTimeout, err = getEnvDuration("SUBMIT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ServiceURLFromPage keeps the scheme and host of the page URL and swaps in the
// service port. An empty page URL means localhost.
func ServiceURLFromPage(pageURL, port string) (string, error) {
	if pageURL == "" {
		return "http://localhost:" + port, nil
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid TABLE_URL: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid TABLE_URL %q: missing host", pageURL)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s:%s", scheme, u.Hostname(), port), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
