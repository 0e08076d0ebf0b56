package config // package config loads application configuration from environment variables

import (
	"log"     // log reports configuration errors and halts execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // strings normalizes boolean values
	"time"    // time expresses the engine's windows and TTLs
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The booking-engine knobs (hold TTL, abuse
// windows and thresholds) default to the values the engine was designed
// around and only need overriding in tests or tuning exercises.
type Config struct {
	Env       string // application environment (e.g. "dev", "prod")
	Port      string // HTTP port to listen on
	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	JWTSecret string // secret used to sign JWTs

	AccessTTLMin int // access token time-to-live in minutes
	BcryptCost   int // bcrypt cost for password hashing

	// Seat hold lifecycle. Holds are fixed-length and non-renewable;
	// reopening a seat list does not extend an existing hold.
	HoldTTL time.Duration

	// Seat-specific permanent block: a user who lets a hold on the same
	// seat expire SeatAbuseLimit times inside SeatAbuseWindow is barred
	// from that seat for good.
	SeatAbuseLimit  int
	SeatAbuseWindow time.Duration

	// Scored abuse guard: per-signal trailing windows and the cumulative
	// score at which an action is blocked.
	FraudBlockThreshold int
	FraudLoginFailWin   time.Duration
	FraudBookFailWin    time.Duration
	FraudPayFailWin     time.Duration
	FraudQuickBookWin   time.Duration
}

// Load reads configuration values from environment variables and
// returns a Config. Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
// Engine knobs fall back to their documented defaults.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),      // environment (dev/test/prod)
		Port:      must("APP_PORT"),     // port to bind the HTTP server
		DBUser:    must("DB_USER"),      // database user
		DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:    must("DB_HOST"),      // database host
		DBPort:    must("DB_PORT"),      // database port
		DBName:    must("DB_NAME"),      // database name
		JWTSecret: must("JWT_SECRET"),   // secret used for signing JWTs

		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 30),
		BcryptCost:   envInt("BCRYPT_COST", 12),

		HoldTTL: envDur("HOLD_TTL", 2*time.Minute),

		SeatAbuseLimit:  envInt("SEAT_ABUSE_LIMIT", 3),
		SeatAbuseWindow: envDur("SEAT_ABUSE_WINDOW", 365*24*time.Hour),

		FraudBlockThreshold: envInt("FRAUD_BLOCK_THRESHOLD", 3),
		FraudLoginFailWin:   envDur("FRAUD_LOGIN_FAIL_WINDOW", 10*time.Minute),
		FraudBookFailWin:    envDur("FRAUD_BOOK_FAIL_WINDOW", 10*time.Minute),
		FraudPayFailWin:     envDur("FRAUD_PAY_FAIL_WINDOW", 10*time.Minute),
		FraudQuickBookWin:   envDur("FRAUD_QUICK_BOOK_WINDOW", 2*time.Minute),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// envStr returns the value of an optional environment variable or the
// provided default when unset.
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt parses an optional integer environment variable, falling back
// to the default on absence or parse failure.
func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

// envBool parses an optional boolean environment variable. Accepted
// true values are 1/true/yes/on in any case; false mirrors them.
func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

// envDur parses an optional duration environment variable in Go
// duration syntax ("2m", "10m", "8760h").
func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
