// Package config loads runtime settings from defaults, an optional YAML file
// and the environment.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type HTTPConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" yaml:"driver"` // postgres | sqlite
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            string        `mapstructure:"port" yaml:"port"`
	Username        string        `mapstructure:"username" yaml:"username"`
	Password        string        `mapstructure:"password" yaml:"password"`
	Name            string        `mapstructure:"name" yaml:"name"`
	SSLMode         string        `mapstructure:"sslmode" yaml:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	AutoMigrate     bool          `mapstructure:"auto_migrate" yaml:"auto_migrate"`
}

// ConnString returns the DSN to hand to the driver. For postgres without an
// explicit DSN it is assembled from the individual fields.
func (d DatabaseConfig) ConnString() string {
	if d.DSN != "" || d.Driver != "postgres" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.Username, d.Password, d.Name, d.Port, d.SSLMode)
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
}

type MailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port" yaml:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password" yaml:"smtp_password"`
	FromEmail    string `mapstructure:"from_email" yaml:"from_email"`
	AppURL       string `mapstructure:"app_url" yaml:"app_url"`
}

// Enabled reports whether an SMTP relay is configured.
func (m MailConfig) Enabled() bool {
	return m.SMTPHost != ""
}

type RemindersConfig struct {
	Schedule    string `mapstructure:"schedule" yaml:"schedule"`
	BatchSize   int    `mapstructure:"batch_size" yaml:"batch_size"`
	MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // text | json
}

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Auth      AuthConfig      `mapstructure:"auth" yaml:"auth"`
	Mail      MailConfig      `mapstructure:"mail" yaml:"mail"`
	Reminders RemindersConfig `mapstructure:"reminders" yaml:"reminders"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// envAliases keeps the variable names older deployments already export.
var envAliases = map[string][]string{
	"http.port":         {"TASKS_HTTP_PORT", "PORT"},
	"database.host":     {"TASKS_DATABASE_HOST", "BLUEPRINT_DB_HOST"},
	"database.port":     {"TASKS_DATABASE_PORT", "BLUEPRINT_DB_PORT"},
	"database.username": {"TASKS_DATABASE_USERNAME", "BLUEPRINT_DB_USERNAME"},
	"database.password": {"TASKS_DATABASE_PASSWORD", "BLUEPRINT_DB_PASSWORD"},
	"database.name":     {"TASKS_DATABASE_NAME", "BLUEPRINT_DB_DATABASE"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", time.Minute)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)
	v.SetDefault("http.allowed_origins", []string{"https://*", "http://*"})

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "tasks")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.slow_threshold", time.Second)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.auto_migrate", false)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "task-tracker")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("mail.smtp_host", "")
	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.smtp_user", "")
	v.SetDefault("mail.smtp_password", "")
	v.SetDefault("mail.from_email", "no-reply@localhost")
	v.SetDefault("mail.app_url", "http://localhost:8080")

	v.SetDefault("reminders.schedule", "@every 1m")
	v.SetDefault("reminders.batch_size", 50)
	v.SetDefault("reminders.max_attempts", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment variables (TASKS_SECTION_KEY) apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("TASKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for sqlite")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.Reminders.BatchSize <= 0 {
		return fmt.Errorf("reminders.batch_size must be positive")
	}
	return nil
}

const redacted = "<redacted>"

// Dump writes the configuration as YAML with secrets masked.
func (c Config) Dump(w io.Writer) error {
	masked := c
	if masked.Database.Password != "" {
		masked.Database.Password = redacted
	}
	if masked.Database.DSN != "" && masked.Database.Driver == "postgres" {
		masked.Database.DSN = redacted
	}
	if masked.Auth.JWTSecret != "" {
		masked.Auth.JWTSecret = redacted
	}
	if masked.Mail.SMTPPassword != "" {
		masked.Mail.SMTPPassword = redacted
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(masked); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}
