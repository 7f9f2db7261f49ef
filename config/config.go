package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogJSON        bool
	AllowedOrigins []string
	SeedTables     []int

	Database DatabaseConfig

	JWTSecret     string
	TokenTTL      time.Duration
	StaffAccounts string

	Location          *time.Location
	CoverCharge       float64
	CurrencySymbol    string
	CheckInEarlyGrace time.Duration
	CheckInLateGrace  time.Duration
	OfferWindow       time.Duration
	OfferSweep        time.Duration

	RequestsPerSecond float64
	RequestBurst      int
	IPRequestsPerSec  float64
	IPBurst           int

	NotificationBuffer int
	SendGridAPIKey     string
	SendGridFromEmail  string
	SendGridFromName   string
	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromNumber   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisStream   string
}

// Load reads an optional .env file and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found, using environment")
	}

	loc, err := time.LoadLocation(getEnv("RESTAURANT_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("RESTAURANT_TIMEZONE: %w", err)
	}

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getBool("LOG_JSON", false),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		SeedTables:     parseCapacities(os.Getenv("SEED_TABLES")),

		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "mysql")),
			Host:            getEnv("DB_HOST", "127.0.0.1"),
			Port:            getEnv("DB_PORT", ""),
			User:            getEnv("DB_USER", "root"),
			Password:        os.Getenv("DB_PASSWORD"),
			Name:            getEnv("DB_NAME", "restaurant_reservation"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			Path:            getEnv("DB_PATH", "reservation.db"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},

		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      getDuration("JWT_TTL", 12*time.Hour),
		StaffAccounts: os.Getenv("STAFF_ACCOUNTS"),

		Location:          loc,
		CoverCharge:       getFloat("COVER_CHARGE_PER_GUEST", 25),
		CurrencySymbol:    getEnv("CURRENCY_SYMBOL", "€"),
		CheckInEarlyGrace: getDuration("CHECKIN_EARLY_GRACE", 30*time.Minute),
		CheckInLateGrace:  getDuration("CHECKIN_LATE_GRACE", time.Hour),
		OfferWindow:       getDuration("WAITING_OFFER_WINDOW", time.Hour),
		OfferSweep:        getDuration("OFFER_SWEEP_INTERVAL", 30*time.Second),

		RequestsPerSecond: getFloat("WS_REQUESTS_PER_SECOND", 10),
		RequestBurst:      getInt("WS_REQUEST_BURST", 20),
		IPRequestsPerSec:  getFloat("HTTP_REQUESTS_PER_SECOND", 50),
		IPBurst:           getInt("HTTP_REQUEST_BURST", 100),

		NotificationBuffer: getInt("NOTIFICATION_BUFFER", 128),
		SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail:  os.Getenv("SENDGRID_FROM_EMAIL"),
		SendGridFromName:   getEnv("SENDGRID_FROM_NAME", "Restaurant"),
		TwilioAccountSID:   os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:    os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:   os.Getenv("TWILIO_FROM_NUMBER"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getInt("REDIS_DB", 0),
		RedisStream:   getEnv("REDIS_STREAM", "floor-events"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func (c *Config) SendGridEnabled() bool {
	return c.SendGridAPIKey != "" && c.SendGridFromEmail != ""
}

func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// Dialector picks the gorm driver for the configured database.
func (d DatabaseConfig) Dialector() (gorm.Dialector, error) {
	switch d.Driver {
	case "mysql":
		port := d.Port
		if port == "" {
			port = "3306"
		}
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			d.User, d.Password, d.Host, port, d.Name)
		return mysql.Open(dsn), nil
	case "postgres":
		port := d.Port
		if port == "" {
			port = "5432"
		}
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			d.Host, port, d.User, d.Password, d.Name, d.SSLMode)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(d.Path), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", d.Driver)
}

// InitDB opens the pooled connection shared by every repository.
func InitDB(d DatabaseConfig) (*gorm.DB, error) {
	dialector, err := d.Dialector()
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(d.MaxOpenConns)
	sqlDB.SetMaxIdleConns(d.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(d.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	utils.InfoLogger.Printf("Connected to %s database", d.Driver)
	return db, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

// getDuration accepts Go durations ("90s", "1h") or plain minutes.
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if minutes, err := strconv.Atoi(raw); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	utils.ErrorLogger.Printf("Invalid duration %q for %s, using %s", raw, key, fallback)
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseCapacities reads "2,2,4,6"; bad entries are skipped.
func parseCapacities(raw string) []int {
	var out []int
	for _, part := range splitList(raw) {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			utils.ErrorLogger.Printf("Ignoring table capacity %q in SEED_TABLES", part)
			continue
		}
		out = append(out, n)
	}
	return out
}
