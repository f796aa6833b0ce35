package config

import "os"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Google   GoogleConfig
	Postgres PostgresConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins string
}

type AuthConfig struct {
	JWTSecret          string
	JWTAccessTTL       string
	RefreshTTLDays     string
	CookieSecure       bool
	CookieSameSiteNone bool
}

type GoogleConfig struct {
	ClientID string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	env := getenv("APP_ENV", "development")
	isProd := env == "production"

	return Config{
		Server: ServerConfig{
			Port:           getenv("PORT", "8080"),
			Env:            env,
			AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_ACCESS_SECRET"),
			JWTAccessTTL:   getenv("JWT_ACCESS_TTL", "15m"),
			RefreshTTLDays: os.Getenv("REFRESH_TOKEN_TTL_DAYS"),
			// SameSite=None + Secure is what lets the refresh cookie travel
			// when the widget is embedded cross-site; local dev keeps Lax.
			CookieSecure:       isProd,
			CookieSameSiteNone: isProd,
		},
		Google: GoogleConfig{
			ClientID: os.Getenv("GOOGLE_CLIENT_ID"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
