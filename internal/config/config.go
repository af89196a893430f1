package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// DatabaseConfig holds PostgreSQL database connection settings.
// Only used when the store driver is "postgres".
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// TelemetryConfig holds the OpenTelemetry bootstrap settings.
type TelemetryConfig struct {
	Disabled       bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Protocol       string
	Insecure       bool
	Sampler        string
	SamplerArg     string
	MetricInterval time.Duration
	// DisabledInstrumentations lists instrumentation names that must not be installed.
	DisabledInstrumentations []string
}

// SimulationConfig holds the knobs of the randomized demo endpoints.
type SimulationConfig struct {
	FailureRate float64
	ListDelay   time.Duration
	SlowMin     time.Duration
	SlowMax     time.Duration
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables.
type AppConfig struct {
	Port               string
	Locale             string
	DashboardURL       string
	ExposeErrorDetails bool
	ShutdownTimeout    time.Duration
	StoreDriver        string
	Database           DatabaseConfig
	Telemetry          TelemetryConfig
	Simulation         SimulationConfig
	Log                LogConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() *AppConfig {
	env := getEnv("DEPLOYMENT_ENVIRONMENT", "development")
	return &AppConfig{
		Port:               getEnv("PORT", "3000"),
		Locale:             strings.ToLower(getEnv("APP_LOCALE", "en")),
		DashboardURL:       getEnv("DASHBOARD_URL", "http://localhost:8080"),
		ExposeErrorDetails: getEnvBool("EXPOSE_ERROR_DETAILS", true),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Telemetry: TelemetryConfig{
			Disabled:                 getEnvBool("OTEL_SDK_DISABLED", false),
			ServiceName:              getEnv("OTEL_SERVICE_NAME", "signoz-example-go"),
			ServiceVersion:           getEnv("SERVICE_VERSION", "1.0.0"),
			Environment:              env,
			Endpoint:                 getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Protocol:                 getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			Insecure:                 getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			Sampler:                  getEnv("OTEL_TRACES_SAMPLER", "parentbased_always_on"),
			SamplerArg:               getEnv("OTEL_TRACES_SAMPLER_ARG", "1.0"),
			MetricInterval:           getEnvDuration("OTEL_METRIC_EXPORT_INTERVAL", 60*time.Second),
			DisabledInstrumentations: getEnvList("OTEL_INSTRUMENTATIONS_DISABLED", []string{"fs"}),
		},
		Simulation: SimulationConfig{
			FailureRate: getEnvFloat("SIM_FAILURE_RATE", 0.2),
			ListDelay:   getEnvDuration("SIM_LIST_DELAY", 100*time.Millisecond),
			SlowMin:     getEnvDuration("SIM_SLOW_MIN", time.Second),
			SlowMax:     getEnvDuration("SIM_SLOW_MAX", 3*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate reports the first invalid setting.
func (c *AppConfig) Validate() error {
	switch c.Locale {
	case "en", "pt":
	default:
		return fmt.Errorf("invalid APP_LOCALE %q: must be en or pt", c.Locale)
	}
	switch c.StoreDriver {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q: must be %s or %s", c.StoreDriver, StoreMemory, StorePostgres)
	}
	s := c.Simulation
	if s.FailureRate < 0 || s.FailureRate > 1 {
		return fmt.Errorf("invalid SIM_FAILURE_RATE %v: must be within [0,1]", s.FailureRate)
	}
	if s.ListDelay < 0 || s.SlowMin < 0 || s.SlowMax < s.SlowMin {
		return fmt.Errorf("invalid simulation delays: list=%s slow=[%s,%s)", s.ListDelay, s.SlowMin, s.SlowMax)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}

// getEnvDuration accepts Go durations ("250ms") or a bare number of milliseconds.
func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}
