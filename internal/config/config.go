package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
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
	JWTSecret      string // secret used to sign access tokens
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	QRSecret  string // secret used to sign ticket QR tokens
	QRBoxSize int    // pixels per QR module
	QRBorder  int    // quiet zone around the QR code, in modules

	AutoMigrate bool   // apply embedded migrations at startup
	LogLevel    string // logrus level name
	LogFormat   string // "text" or "json"

	AMQPURL         string // RabbitMQ URL; empty disables ticket events
	ConsumerEnabled bool   // run the in-process ticket event consumer
	ConsumerLogDir  string // directory the consumer appends tickets.log to

	Booking BookingPolicy
}

// BookingPolicy holds the booking rules that operators may tune.
type BookingPolicy struct {
	CancelWindow        time.Duration // minimum time between cancellation and event start
	DefaultVIPSeats     int           // VIP seats of an event when the agency gives none
	DefaultRegularSeats int           // regular seats of an event when the agency gives none
	MaxSeats            int           // upper bound on seats per event
}

// DefaultBookingPolicy is the policy used when no overrides are set.
func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		CancelWindow:        24 * time.Hour,
		DefaultVIPSeats:     10,
		DefaultRegularSeats: 90,
		MaxSeats:            1000,
	}
}

// Load reads an optional .env file and then the environment.  Missing or
// malformed required variables stop the process.
func Load() Config {
	_ = godotenv.Load()
	cfg, err := Parse()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse builds a Config from the current environment.
func Parse() (Config, error) {
	var r reader
	cfg := Config{
		Env:            r.must("APP_ENV"),
		Port:           r.must("APP_PORT"),
		DBUser:         r.must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"),
		DBHost:         r.must("DB_HOST"),
		DBPort:         r.must("DB_PORT"),
		DBName:         r.must("DB_NAME"),
		JWTSecret:      r.must("JWT_SECRET"),
		AccessTTLMin:   r.mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: r.mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     r.mustInt("BCRYPT_COST"),

		QRBoxSize: envInt("QR_BOX_SIZE", 8),
		QRBorder:  envInt("QR_BORDER", 2),

		AutoMigrate: envBool("DB_AUTO_MIGRATE", true),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		LogFormat:   envStr("LOG_FORMAT", "text"),

		AMQPURL:         envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		ConsumerEnabled: envBool("TICKET_CONSUMER_ENABLED", true),
		ConsumerLogDir:  envStr("TICKET_CONSUMER_LOG_DIR", "logs"),
	}
	if err := r.err(); err != nil {
		return Config{}, err
	}
	cfg.QRSecret = envStr("QR_SECRET", cfg.JWTSecret+":qr")

	def := DefaultBookingPolicy()
	cfg.Booking = BookingPolicy{
		CancelWindow:        envDur("CANCEL_WINDOW", def.CancelWindow),
		DefaultVIPSeats:     envInt("DEFAULT_VIP_SEATS", def.DefaultVIPSeats),
		DefaultRegularSeats: envInt("DEFAULT_REGULAR_SEATS", def.DefaultRegularSeats),
		MaxSeats:            envInt("MAX_SEATS", def.MaxSeats),
	}
	if cfg.Booking.CancelWindow < 0 {
		return Config{}, fmt.Errorf("CANCEL_WINDOW must not be negative")
	}
	if cfg.Booking.DefaultVIPSeats < 0 || cfg.Booking.DefaultRegularSeats < 0 {
		return Config{}, fmt.Errorf("default seat counts must not be negative")
	}
	if cfg.Booking.MaxSeats < 1 {
		return Config{}, fmt.Errorf("MAX_SEATS must be positive")
	}
	if cfg.QRBoxSize < 1 || cfg.QRBorder < 0 {
		return Config{}, fmt.Errorf("invalid QR_BOX_SIZE/QR_BORDER")
	}
	return cfg, nil
}

// reader collects every missing or malformed required variable so one run
// reports them all.
type reader struct {
	problems []string
}

func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.problems = append(r.problems, "missing required env var: "+key)
	}
	return v
}

func (r *reader) mustInt(key string) int {
	s := r.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		r.problems = append(r.problems, fmt.Sprintf("invalid int for %s: %q", key, s))
	}
	return n
}

func (r *reader) err() error {
	if len(r.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(r.problems, "; "))
}
