package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type ServerConfig struct {
	Port string `yaml:"port" env:"SERVER_PORT"`
	Mode string `yaml:"mode" env:"SERVER_MODE"`
}

// DatabaseConfig selects the store. Connection settings apply to the postgres driver only.
type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DB_DRIVER"`
	Host            string `yaml:"host" env:"DB_HOST"`
	Port            string `yaml:"port" env:"DB_PORT"`
	User            string `yaml:"user" env:"DB_USER"`
	Password        string `yaml:"password" env:"DB_PASSWORD"`
	Name            string `yaml:"dbname" env:"DB_NAME"`
	SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
	MaxConns        int    `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns        int    `yaml:"min_conns" env:"DB_MIN_CONNS"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
}

// DSN is the postgres URL for this database; credentials are escaped
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

type JWTConfig struct {
	Secret                string `yaml:"secret" env:"JWT_SECRET"`
	AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
	Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// CourseConfig holds defaults applied to new courses and accounts
type CourseConfig struct {
	DefaultRankLimit   int    `yaml:"default_rank_limit" env:"COURSE_DEFAULT_RANK_LIMIT"`
	StudentEmailDomain string `yaml:"student_email_domain" env:"STUDENT_EMAIL_DOMAIN"`
}

type SecurityConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// SeedConfig names the superuser created at start-up. An empty username disables seeding.
type SeedConfig struct {
	SuperuserUsername string `yaml:"superuser_username" env:"SEED_SUPERUSER_USERNAME"`
	SuperuserPassword string `yaml:"superuser_password" env:"SEED_SUPERUSER_PASSWORD"`
}

// Config is the full runtime configuration of the API and the CLI
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Course   CourseConfig   `yaml:"course"`
	Security SecurityConfig `yaml:"security"`
	Seed     SeedConfig     `yaml:"seed"`
}

// Default returns the configuration used before any file or variable is applied
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080", Mode: "development"},
		Database: DatabaseConfig{
			Driver:          DriverPostgres,
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "postgres",
			Name:            "saffron",
			SSLMode:         "disable",
			MaxConns:        20,
			MinConns:        2,
			ConnMaxLifetime: "1h",
		},
		JWT:      JWTConfig{AccessTokenExpiration: "24h", Issuer: "saffron"},
		Logging:  LoggingConfig{Level: "info", Format: "json"},
		Course:   CourseConfig{DefaultRankLimit: 3, StudentEmailDomain: "edu.kit.ac.jp"},
		Security: SecurityConfig{BcryptCost: 12},
	}
}

// LoadConfig layers the defaults, the YAML file at path (if it exists), a .env file in the
// working directory and finally the process environment, then validates the result.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem found, joined
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required for postgres"))
		}
		if _, err := time.ParseDuration(c.Database.ConnMaxLifetime); err != nil {
			errs = append(errs, fmt.Errorf("database.conn_max_lifetime: %w", err))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of %s, %s", c.Database.Driver, DriverPostgres, DriverMemory))
	}

	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if _, err := time.ParseDuration(c.JWT.AccessTokenExpiration); err != nil {
		errs = append(errs, fmt.Errorf("jwt.access_token_expiration: %w", err))
	}
	if c.Course.DefaultRankLimit < 1 {
		errs = append(errs, errors.New("course.default_rank_limit must be at least 1"))
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		errs = append(errs, errors.New("security.bcrypt_cost must be between 4 and 31"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}
