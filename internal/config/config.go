package config // package config loads application configuration from environment variables

import (
	"errors"  // errors builds validation failures returned by Load
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time holds parsed token lifetimes

	"github.com/joho/godotenv" // godotenv loads a local .env file when present
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Token lifetimes are kept both as the raw
// `<int><s|m|h|d>` string and as the parsed duration so that the refresh
// cookie max-age always agrees with the refresh token expiry.
type Config struct {
	Env  string // application environment (e.g. "development", "production")
	Port string // HTTP port to listen on

	DBUser    string // database username
	DBPass    string // database password (optional)
	DBHost    string // database host address
	DBPort    string // database port number
	DBName    string // database name
	DBMigrate bool   // create tables on startup

	AccessSecret      string        // secret used to sign access tokens
	RefreshSecret     string        // secret used to sign refresh tokens
	AccessExpires     string        // raw access token lifetime, e.g. "15m"
	RefreshExpires    string        // raw refresh token lifetime, e.g. "7d"
	AccessTTL         time.Duration // parsed AccessExpires
	RefreshTTL        time.Duration // parsed RefreshExpires
	RefreshCookieName string        // name of the HTTP-only refresh cookie
	BcryptCost        int           // bcrypt cost for password hashing

	CORSOrigin  string // allowed browser origin
	FrontendURL string // where OAuth callbacks redirect to

	GoogleClientID     string // OAuth client id
	GoogleClientSecret string // OAuth client secret
	GoogleCallbackURL  string // OAuth redirect URI registered with Google

	DupRadiusKM float64 // minimum distance between two live posts

	RabbitURL string // AMQP broker URL; empty disables event fan-out

	GeocoderBaseURL   string // Nominatim-compatible base URL
	GeocoderUserAgent string // User-Agent sent upstream
	GeocoderCountry   string // countrycodes filter for searches
}

const (
	defaultAccessExpires  = "15m"
	defaultRefreshExpires = "7d"
)

// IsProduction reports whether the service runs with production cookie and
// logging settings.
func (c Config) IsProduction() bool { return c.Env == "production" }

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is not an error

	cfg := Config{
		Env:       envStr("APP_ENV", "development"),
		Port:      envStr("APP_PORT", "5000"),
		DBUser:    envStr("DB_USER", "root"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    envStr("DB_HOST", "localhost"),
		DBPort:    envStr("DB_PORT", "3306"),
		DBName:    envStr("DB_NAME", "volunteer_map"),
		DBMigrate: envBool("DB_MIGRATE", true),

		AccessSecret:      envStr("JWT_ACCESS_SECRET", "dev_access_secret"),
		RefreshSecret:     envStr("JWT_REFRESH_SECRET", "dev_refresh_secret"),
		AccessExpires:     envStr("ACCESS_TOKEN_EXPIRES", defaultAccessExpires),
		RefreshExpires:    envStr("REFRESH_TOKEN_EXPIRES", defaultRefreshExpires),
		RefreshCookieName: envStr("REFRESH_COOKIE_NAME", "refresh_token"),
		BcryptCost:        envInt("BCRYPT_COST", 10),

		CORSOrigin:  envStr("CORS_ORIGIN", "http://localhost:5173"),
		FrontendURL: envStr("FRONTEND_URL", "http://localhost:5173"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleCallbackURL:  os.Getenv("GOOGLE_CALLBACK_URL"),

		DupRadiusKM: envFloat("DUP_RADIUS_KM", 0.05),

		RabbitURL: os.Getenv("RABBITMQ_URL"),

		GeocoderBaseURL:   envStr("GEOCODER_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: envStr("GEOCODER_USER_AGENT", "VolunteerMap/1.0"),
		GeocoderCountry:   envStr("GEOCODER_COUNTRY", "vn"),
	}

	cfg.AccessTTL = ParseDuration(cfg.AccessExpires, 15*time.Minute)
	cfg.RefreshTTL = ParseDuration(cfg.RefreshExpires, 7*24*time.Hour)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("config: JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if c.IsProduction() {
		if os.Getenv("JWT_ACCESS_SECRET") == "" || os.Getenv("JWT_REFRESH_SECRET") == "" {
			return errors.New("config: development JWT secrets are not allowed in production")
		}
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.DupRadiusKM < 0 {
		return errors.New("config: DUP_RADIUS_KM must not be negative")
	}
	return nil
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return d
}
