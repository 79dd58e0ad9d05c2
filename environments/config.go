package environments

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Gateway     GatewayConfig
	Dispatch    DispatchConfig
	Eligibility EligibilityConfig
	Alert       AlertConfig
	Auth        AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type GatewayConfig struct {
	URL         string
	AuthKey     string
	FromAddress string
	Timeout     time.Duration
}

// DispatchConfig bounds one dispatch tick.
type DispatchConfig struct {
	TickInterval      time.Duration
	BatchLimit        int           // max campaigns claimed per tick
	RecipientDelay    time.Duration // fixed pause between recipients, gateway rate limit
	ProcessingTimeout time.Duration // processing rows older than this get reaped as failed
	PreFilter         bool          // run the eligibility check before each send
}

// EligibilityConfig holds the cooldown and tracking-window defaults. The
// struct is built once at startup and passed by value; handlers may
// override the cooldowns per request but never mutate these.
type EligibilityConfig struct {
	MinDaysGlobal      int
	MinDaysSameType    int
	BatchCap           int
	TrackingWindowDays int // default window when there is no coupon context
	CouponBufferDays   int // added to coupon validity when there is
}

type AlertConfig struct {
	WebhookURL     string
	IterationCount int
}

type AuthConfig struct {
	CampaignsAPIKey string
	DispatchAPIKey  string
}

func Load() *Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "lavapop"),
			Password: GetEnv("DB_PASSWORD", "lavapop123"),
			DBName:   GetEnv("DB_NAME", "lavapop_campaigns"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			URL:         GetEnv("GATEWAY_URL", "https://gateway.example.com/v1/messages"),
			AuthKey:     GetEnv("GATEWAY_AUTH_KEY", ""),
			FromAddress: GetEnv("GATEWAY_FROM_ADDRESS", "lavapop"),
			Timeout:     time.Duration(GetEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Dispatch: DispatchConfig{
			TickInterval:      time.Duration(GetEnvAsInt("DISPATCH_TICK_INTERVAL_MINUTES", 5)) * time.Minute,
			BatchLimit:        GetEnvAsInt("DISPATCH_BATCH_LIMIT", 10),
			RecipientDelay:    GetEnvAsDuration("DISPATCH_RECIPIENT_DELAY", 100*time.Millisecond),
			ProcessingTimeout: GetEnvAsDuration("DISPATCH_PROCESSING_TIMEOUT", 30*time.Minute),
			PreFilter:         GetEnvAsBool("DISPATCH_ELIGIBILITY_PREFILTER", false),
		},
		Eligibility: EligibilityConfig{
			MinDaysGlobal:      GetEnvAsInt("ELIGIBILITY_MIN_DAYS_GLOBAL", 7),
			MinDaysSameType:    GetEnvAsInt("ELIGIBILITY_MIN_DAYS_SAME_TYPE", 30),
			BatchCap:           GetEnvAsInt("ELIGIBILITY_BATCH_CAP", 500),
			TrackingWindowDays: GetEnvAsInt("TRACKING_WINDOW_DAYS", 14),
			CouponBufferDays:   GetEnvAsInt("TRACKING_COUPON_BUFFER_DAYS", 3),
		},
		Alert: AlertConfig{
			WebhookURL:     GetEnv("ALERT_WEBHOOK_URL", ""),
			IterationCount: GetEnvAsInt("ALERT_ITERATION_COUNT", 0),
		},
		Auth: AuthConfig{
			CampaignsAPIKey: GetEnv("CAMPAIGNS_API_KEY", ""),
			DispatchAPIKey:  GetEnv("DISPATCH_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
