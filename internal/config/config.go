package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Storage backends selectable through STORE_BACKEND.
const (
	BackendMySQL = "mysql"
	BackendMongo = "mongo"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	StoreBackend  string // mysql or mongo; identity always stays in MySQL
	MongoURI      string // connection string, required when StoreBackend is mongo
	MongoDB       string // database name for the mongo backend
	Currency      string // ISO currency code stamped on payments and invoices
	AutoMigrate   bool   // run gorm AutoMigrate on startup
	EventsEnabled bool   // publish reservation events to RabbitMQ
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	c := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		StoreBackend:  strings.ToLower(envStr("STORE_BACKEND", BackendMySQL)),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       envStr("MONGO_DB", "vehicle_rental"),
		Currency:      strings.ToUpper(envStr("CURRENCY", "MXN")),
		AutoMigrate:   envBool("DB_AUTO_MIGRATE", true),
		EventsEnabled: envBool("EVENTS_ENABLED", true),
	}
	switch c.StoreBackend {
	case BackendMySQL:
	case BackendMongo:
		if c.MongoURI == "" {
			log.Fatalf("missing required env var: MONGO_URI (STORE_BACKEND=mongo)")
		}
	default:
		log.Fatalf("invalid STORE_BACKEND: %q", c.StoreBackend)
	}
	return c
}

// IsProd reports whether the application runs in production.
func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
