package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App holds the runtime configuration.
type App struct {
	Env      string `yaml:"env" validate:"required,oneof=local dev staging production prod"`
	HTTPPort string `yaml:"httpPort" validate:"required,numeric"`

	// BackendURL is the RU:SH REST backend, without the /api suffix.
	BackendURL     string        `yaml:"backendURL" validate:"required,url"`
	BackendTimeout time.Duration `yaml:"backendTimeout" validate:"gt=0"`

	CookieDomain    string        `yaml:"cookieDomain"`
	StateSigningKey string        `yaml:"stateSigningKey" validate:"required,min=16"`
	StateIssuer     string        `yaml:"stateIssuer" validate:"required"`
	StateTTL        time.Duration `yaml:"stateTTL" validate:"gt=0"`
	AuthDebounce    time.Duration `yaml:"authDebounce" validate:"gt=0"`
	SessionIdleTTL  time.Duration `yaml:"sessionIdleTTL" validate:"gt=0"`

	NotifyBackend  string        `yaml:"notifyBackend" validate:"oneof=memory redis"`
	RedisAddr      string        `yaml:"redisAddr" validate:"required_if=NotifyBackend redis"`
	NotifyThrottle time.Duration `yaml:"notifyThrottle" validate:"gt=0"`

	DisplayTimezone string `yaml:"displayTimezone" validate:"required"`
	PageSize        int    `yaml:"pageSize" validate:"min=1,max=100"`
	MetricsEnabled  bool   `yaml:"metricsEnabled"`

	FirebaseAPIKey     string   `yaml:"firebaseAPIKey"`
	FirebaseAuthDomain string   `yaml:"firebaseAuthDomain"`
	AllowedOrigins     []string `yaml:"allowedOrigins"`
}

var validate = validator.New()

// Defaults returns the configuration used for local development.
func Defaults() App {
	return App{
		Env:             "dev",
		HTTPPort:        "8080",
		BackendURL:      "http://localhost:8081",
		BackendTimeout:  10 * time.Second,
		StateSigningKey: "dev-state-signing-secret-change",
		StateIssuer:     "rushweb",
		StateTTL:        15 * time.Minute,
		AuthDebounce:    100 * time.Millisecond,
		SessionIdleTTL:  30 * time.Minute,
		NotifyBackend:   "memory",
		RedisAddr:       "localhost:6379",
		NotifyThrottle:  time.Second,
		DisplayTimezone: "Asia/Seoul",
		PageSize:        10,
		MetricsEnabled:  true,
	}
}

// Load builds the configuration. Values come from, in increasing priority: defaults,
// the YAML file named by CONFIG_FILE, and environment variables. ENV_FILE names an
// optional .env file loaded into the environment first.
func Load() (App, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return App{}, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return App{}, err
		}
	}

	cfg = fromEnv(cfg)
	if err := Validate(&cfg); err != nil {
		return App{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *App) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func fromEnv(cfg App) App {
	cfg.Env = getEnv("APP_ENV", cfg.Env)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.BackendURL = getEnv("BACKEND_URL", cfg.BackendURL)
	cfg.BackendTimeout = durationEnv("BACKEND_TIMEOUT", cfg.BackendTimeout)
	cfg.CookieDomain = getEnv("COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.StateSigningKey = getEnv("STATE_SIGNING_KEY", cfg.StateSigningKey)
	cfg.StateIssuer = getEnv("STATE_ISSUER", cfg.StateIssuer)
	cfg.StateTTL = durationEnv("STATE_TTL", cfg.StateTTL)
	cfg.AuthDebounce = durationEnv("AUTH_DEBOUNCE", cfg.AuthDebounce)
	cfg.SessionIdleTTL = durationEnv("SESSION_IDLE_TTL", cfg.SessionIdleTTL)
	cfg.NotifyBackend = getEnv("NOTIFY_BACKEND", cfg.NotifyBackend)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.NotifyThrottle = durationEnv("NOTIFY_THROTTLE", cfg.NotifyThrottle)
	cfg.DisplayTimezone = getEnv("DISPLAY_TIMEZONE", cfg.DisplayTimezone)
	cfg.PageSize = intEnv("PAGE_SIZE", cfg.PageSize)
	cfg.MetricsEnabled = boolEnv("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.FirebaseAPIKey = getEnv("FIREBASE_API_KEY", cfg.FirebaseAPIKey)
	cfg.FirebaseAuthDomain = getEnv("FIREBASE_AUTH_DOMAIN", cfg.FirebaseAuthDomain)
	cfg.AllowedOrigins = listEnv("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	return cfg
}

// Validate checks field constraints and the display timezone.
func Validate(cfg *App) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := time.LoadLocation(cfg.DisplayTimezone); err != nil {
		return fmt.Errorf("invalid display timezone %q: %w", cfg.DisplayTimezone, err)
	}
	return nil
}

// IsLocal reports whether the app runs on a developer machine over plain HTTP.
func (a App) IsLocal() bool {
	return a.Env == "local"
}

// IsProduction reports whether gin should run in release mode.
func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// Location returns the display timezone. Validate guarantees it loads.
func (a App) Location() *time.Location {
	loc, err := time.LoadLocation(a.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
