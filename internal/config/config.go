package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string

	// VerificationStore selects the OTP store backend: "memory" | "dynamo" | "redis".
	VerificationStore      string
	DynamoVerificationsTbl string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int

	OTPTTL         time.Duration
	OTPMaxAttempts int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	MailTimeout  time.Duration
	EmailMock    bool

	// SMSProvider selects the SMS gateway: "msg91" | "sns".
	SMSProvider     string
	MSG91AuthKey    string
	MSG91SenderID   string
	MSG91Route      string
	MSG91TemplateID string
	MSG91BaseURL    string
	SNSRegion       string
	SMSTimeout      time.Duration
	SMSMock         bool

	JWTPrivateKeyPath    string
	JWTPublicKeyPath     string
	VerificationTokenTTL time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "ap-south-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),

		VerificationStore:      strings.ToLower(getEnv("VERIFICATION_STORE", "memory")),
		DynamoVerificationsTbl: getEnv("DYNAMO_TABLE_VERIFICATIONS", "otp_verifications"),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),

		OTPTTL:         getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPMaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPUsername: getEnv("EMAIL_USER", ""),
		SMTPPassword: getEnv("EMAIL_PASS", ""),
		MailFrom:     getEnv("MAIL_FROM", `"Mridang" <verify@mridang.co.in>`),
		MailTimeout:  getEnvDuration("MAIL_TIMEOUT", 15*time.Second),
		EmailMock:    getEnvBool("EMAIL_MOCK_MODE", false),

		SMSProvider:     strings.ToLower(getEnv("SMS_PROVIDER", "msg91")),
		MSG91AuthKey:    getEnv("MSG91_AUTH_KEY", ""),
		MSG91SenderID:   getEnv("MSG91_SENDER_ID", "MSGOTP"),
		MSG91Route:      getEnv("MSG91_ROUTE", "4"),
		MSG91TemplateID: getEnv("MSG91_TEMPLATE_ID", ""),
		MSG91BaseURL:    getEnv("MSG91_BASE_URL", ""),
		SNSRegion:       getEnv("SNS_REGION", "ap-south-1"),
		SMSTimeout:      getEnvDuration("SMS_TIMEOUT", 15*time.Second),
		SMSMock:         getEnvBool("SMS_MOCK_MODE", false),

		JWTPrivateKeyPath:    getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:     getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		VerificationTokenTTL: getEnvDuration("VERIFICATION_TOKEN_TTL", 30*time.Minute),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsProduction reports whether development affordances (mock delivery) must be
// disabled. SMS_MOCK_MODE and EMAIL_MOCK_MODE are ignored in production.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.AppEnv) {
	case "production", "prod":
		return true
	}
	return false
}

// EmailMockEnabled reports whether email delivery is replaced by returning the code.
func (c *Config) EmailMockEnabled() bool {
	return c.EmailMock && !c.IsProduction()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("10m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
