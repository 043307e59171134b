package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	SHOW_DATE_FORMAT = "2006-01-02"
	SHOW_TIME_FORMAT = "15:04"
)

const (
	MaxTicketsPerBooking   = 4
	BookingReferenceLength = 5
	BookingReferenceChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	MaxReferenceAttempts   = 20
	Currency               = "SEK"
)

// Settings keys
const (
	SETTING_ADULT_PRICE          = "adult_price"
	SETTING_STUDENT_PRICE        = "student_price"
	SETTING_MAX_TICKETS          = "max_tickets_per_booking"
	SETTING_SWISH_NUMBER         = "swish_number"
	SETTING_SWISH_RECIPIENT_NAME = "swish_recipient_name"
	SETTING_CONTACT_EMAIL        = "contact_email"
	SETTING_ADMIN_EMAIL          = "admin_email"
	SETTING_CONCERT_NAME         = "concert_name"
	SETTING_CONCERT_DATE         = "concert_date"
	SETTING_CONCERT_VENUE        = "concert_venue"
)

var DefaultSettings = map[string]string{
	SETTING_ADULT_PRICE:          "200",
	SETTING_STUDENT_PRICE:        "100",
	SETTING_MAX_TICKETS:          strconv.Itoa(MaxTicketsPerBooking),
	SETTING_SWISH_NUMBER:         "012 345 67 89",
	SETTING_SWISH_RECIPIENT_NAME: "Event Organizer",
	SETTING_CONTACT_EMAIL:        "admin@example.com",
	SETTING_ADMIN_EMAIL:          "admin@example.com",
	SETTING_CONCERT_NAME:         "Klasskonsert 24C",
	SETTING_CONCERT_DATE:         "29/1 2026",
	SETTING_CONCERT_VENUE:        "Aulan på Rytmus Stockholm",
}

// PublicSettings are exposed without authentication.
var PublicSettings = []string{
	SETTING_ADULT_PRICE,
	SETTING_STUDENT_PRICE,
	SETTING_MAX_TICKETS,
	SETTING_SWISH_NUMBER,
	SETTING_SWISH_RECIPIENT_NAME,
	SETTING_CONTACT_EMAIL,
	SETTING_CONCERT_NAME,
	SETTING_CONCERT_DATE,
	SETTING_CONCERT_VENUE,
}

type Config struct {
	ApiEnv          string
	Port            string
	DatabaseDriver  string
	JWTSecret       string
	QRSecret        string
	MailTransport   string
	MailFrom        string
	MailFromName    string
	RedisURL        string
	KafkaBroker     string
	AuditTopic      string
	AssetsBucket    string
	EmailQueue      string
	ReconcileEvery  time.Duration
	MaintenanceMode bool
	AppHost         string
}

func Load() *Config {
	return &Config{
		ApiEnv:          envStr("API_ENV", "local"),
		Port:            envStr("PORT", "9090"),
		DatabaseDriver:  GetDriver(),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		QRSecret:        os.Getenv("API_QRC_SECRET"),
		MailTransport:   envStr("MAIL_TRANSPORT", "log"),
		MailFrom:        envStr("MAIL_FROM", "noreply@example.com"),
		MailFromName:    envStr("MAIL_FROM_NAME", "Biljetter"),
		RedisURL:        os.Getenv("REDIS_HOST"),
		KafkaBroker:     os.Getenv("KAFKA_BROKER"),
		AuditTopic:      envStr("AUDIT_TOPIC", "audit-events"),
		AssetsBucket:    os.Getenv("S3_ASSETS_BUCKET"),
		EmailQueue:      os.Getenv("EMAIL_QUEUE"),
		ReconcileEvery:  envDur("AVAILABILITY_RECONCILE_INTERVAL", 10*time.Minute),
		MaintenanceMode: envBool("MAINTENANCE_MODE", false),
		AppHost:         envStr("APP_HOST", "http://localhost:3000"),
	}
}

// GetDriver returns one of postgres, mysql or sqlite.
func GetDriver() string {
	return envStr("DATABASE_DRIVER", "sqlite")
}

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := envStr("DATABASE_SSLMODE", "disable")
	DATABASE_TIMEZONE := envStr("DATABASE_TIMEZONE", "Europe/Stockholm")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := envStr("DATABASE_NAME", "tickets")
	switch GetDriver() {
	case "postgres":
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", DATABASE_USER, DATABASE_PASSWORD, DATABASE_HOST, DATABASE_PORT, DATABASE_NAME)
	default:
		return envStr("DATABASE_PATH", "tickets.db")
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func envDur(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return def
	}
	return d
}
