package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultRemoteCSVURL serves the upstream salaries table. Its header is
// the default column mapping below; categories arrive as short codes and
// are expanded by the dataset parser.
const DefaultRemoteCSVURL = "https://raw.githubusercontent.com/CaioAmorim-dev/data-jobs/main/salaries.csv"

type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Columns  ColumnsConfig
	Logger   LoggerConfig
	Security SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DataConfig describes where the salary table comes from and how the
// report is shaped.
type DataConfig struct {
	RemoteURL       string
	LocalPath       string
	FetchTimeout    time.Duration
	RefreshSchedule string
	WatchLocalFile  bool
	FocusTitle      string
	HistogramBins   int
	TopTitles       int
}

// ColumnsConfig maps record fields to CSV header names.
type ColumnsConfig struct {
	Year            string
	ExperienceLevel string
	EmploymentType  string
	CompanySize     string
	JobTitle        string
	Residence       string
	SalaryUSD       string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	// RateLimitIdleTTL is how long a client's limiter survives without
	// requests.
	RateLimitIdleTTL time.Duration
	AllowedOrigins   []string
	// TrustedProxies holds addresses or CIDR prefixes.
	TrustedProxies []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnvString("SERVER_HOST", "localhost"),
			Port:            getEnvInt("SERVER_PORT", 8501),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Data: DataConfig{
			RemoteURL:       getEnvString("REMOTE_CSV_URL", DefaultRemoteCSVURL),
			LocalPath:       getEnvString("LOCAL_CSV_PATH", "data/salaries.csv"),
			FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 10*time.Second),
			RefreshSchedule: getEnvString("REFRESH_SCHEDULE", ""),
			WatchLocalFile:  getEnvBool("WATCH_LOCAL_FILE", false),
			FocusTitle:      getEnvString("FOCUS_TITLE", "Data Scientist"),
			HistogramBins:   getEnvInt("HISTOGRAM_BINS", 30),
			TopTitles:       getEnvInt("TOP_TITLES", 10),
		},
		Columns: ColumnsConfig{
			Year:            getEnvString("COLUMN_YEAR", "work_year"),
			ExperienceLevel: getEnvString("COLUMN_EXPERIENCE_LEVEL", "experience_level"),
			EmploymentType:  getEnvString("COLUMN_EMPLOYMENT_TYPE", "employment_type"),
			CompanySize:     getEnvString("COLUMN_COMPANY_SIZE", "company_size"),
			JobTitle:        getEnvString("COLUMN_JOB_TITLE", "job_title"),
			Residence:       getEnvString("COLUMN_RESIDENCE", "employee_residence"),
			SalaryUSD:       getEnvString("COLUMN_SALARY_USD", "salary_in_usd"),
		},
		Logger: LoggerConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			EnableRateLimit:  getEnvBool("SECURITY_RATE_LIMIT_ENABLED", true),
			RateLimitRPS:     getEnvInt("SECURITY_RATE_LIMIT_RPS", 100),
			RateLimitBurst:   getEnvInt("SECURITY_RATE_LIMIT_BURST", 10),
			RateLimitIdleTTL: getEnvDuration("SECURITY_RATE_LIMIT_IDLE_TTL", 3*time.Minute),
			AllowedOrigins:   getEnvStringSlice("SECURITY_ALLOWED_ORIGINS", []string{"http://localhost:8501"}),
			TrustedProxies:   getEnvStringSlice("SECURITY_TRUSTED_PROXIES", []string{"127.0.0.1"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Data.LocalPath == "" {
		return fmt.Errorf("local CSV path cannot be empty")
	}

	if c.Data.RemoteURL != "" {
		u, err := url.Parse(c.Data.RemoteURL)
		if err != nil {
			return fmt.Errorf("invalid remote CSV URL %q: %w", c.Data.RemoteURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("remote CSV URL scheme must be http or https, got %q", u.Scheme)
		}
	}

	if c.Data.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}

	if c.Data.HistogramBins <= 0 {
		return fmt.Errorf("histogram bins must be positive")
	}

	if c.Data.TopTitles <= 0 {
		return fmt.Errorf("top titles must be positive")
	}

	for name, column := range c.Columns.byField() {
		if strings.TrimSpace(column) == "" {
			return fmt.Errorf("column name for %s cannot be empty", name)
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	if c.Security.RateLimitIdleTTL <= 0 {
		return fmt.Errorf("rate limit idle TTL must be positive")
	}

	return nil
}

func (c ColumnsConfig) byField() map[string]string {
	return map[string]string{
		"year":             c.Year,
		"experience level": c.ExperienceLevel,
		"employment type":  c.EmploymentType,
		"company size":     c.CompanySize,
		"job title":        c.JobTitle,
		"residence":        c.Residence,
		"salary":           c.SalaryUSD,
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
