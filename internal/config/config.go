package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	JWTIssuer      string   `mapstructure:"JWT_ISSUER"`
	TokenTTL       int      `mapstructure:"TOKEN_TTL_MINUTES"`
	PortalTokenTTL int      `mapstructure:"PORTAL_TOKEN_TTL_MINUTES"`
	OTPTTL         int      `mapstructure:"OTP_TTL_SECONDS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	UploadMaxMB    int64    `mapstructure:"UPLOAD_MAX_MB"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_ISSUER", "ris-server")
	v.SetDefault("TOKEN_TTL_MINUTES", 480)
	v.SetDefault("PORTAL_TOKEN_TTL_MINUTES", 30)
	v.SetDefault("OTP_TTL_SECONDS", 300)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("UPLOAD_MAX_MB", 50)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("TOKEN_TTL_MINUTES")
	v.BindEnv("PORTAL_TOKEN_TTL_MINUTES")
	v.BindEnv("OTP_TTL_SECONDS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("UPLOAD_MAX_MB")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// TokenDuration returns the staff token lifetime.
func (c *Config) TokenDuration() time.Duration {
	return time.Duration(c.TokenTTL) * time.Minute
}

// PortalTokenDuration returns the patient-portal token lifetime.
func (c *Config) PortalTokenDuration() time.Duration {
	return time.Duration(c.PortalTokenTTL) * time.Minute
}

// OTPDuration returns how long a one-time code stays valid.
func (c *Config) OTPDuration() time.Duration {
	return time.Duration(c.OTPTTL) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// a real JWT secret is mandatory: there is no anonymous mode in production.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	if c.UploadMaxMB <= 0 {
		return fmt.Errorf("UPLOAD_MAX_MB must be positive, got %d", c.UploadMaxMB)
	}
	return nil
}
