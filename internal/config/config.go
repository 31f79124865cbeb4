// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	// Embedded zone database; slim container images ship without one.
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/vncsmyrnk/gradgate/internal/core/domain"
)

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"

	SourceMySQL    = "mysql"
	SourceJSONFile = "jsonfile"
)

type Postgres struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	DB       string `env:"POSTGRES_DB"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

type RemoteMySQL struct {
	Host     string        `env:"REMOTE_MYSQL_HOST"`
	Port     string        `env:"REMOTE_MYSQL_PORT" envDefault:"3306"`
	User     string        `env:"REMOTE_MYSQL_USER"`
	Password string        `env:"REMOTE_MYSQL_PASSWORD"`
	DB       string        `env:"REMOTE_MYSQL_DB"`
	Timeout  time.Duration `env:"REMOTE_MYSQL_TIMEOUT" envDefault:"10s"`
}

type AutoSync struct {
	Enabled  bool          `env:"GATE_AUTO_SYNC_ENABLED" envDefault:"false"`
	Schedule string        `env:"GATE_AUTO_SYNC_SCHEDULE" envDefault:"@every 1m"`
	Lookback time.Duration `env:"GATE_AUTO_SYNC_LOOKBACK" envDefault:"10m"`
}

type Config struct {
	HTTPAddr string `env:"GATE_HTTP_ADDR" envDefault:"0.0.0.0:8080"`

	StoreDriver string `env:"GATE_STORE_DRIVER" envDefault:"postgres"`
	Postgres    Postgres
	SQLitePath  string `env:"GATE_SQLITE_PATH" envDefault:"gradgate.db"`

	SourceDriver   string `env:"GATE_SOURCE_DRIVER" envDefault:"mysql"`
	RemoteMySQL    RemoteMySQL
	SourceFile     string `env:"GATE_SOURCE_FILE"`
	SourceFromDate string `env:"GATE_SOURCE_FROM_DATE" envDefault:"2025-01-01"`
	AllowEmptyFeed bool   `env:"GATE_ALLOW_EMPTY_FEED" envDefault:"false"`

	WhitelistPath   string `env:"GATE_WHITELIST_PATH" envDefault:"graduacion.csv"`
	WhitelistColumn string `env:"GATE_WHITELIST_COLUMN" envDefault:"cedula"`
	MatchField      string `env:"GATE_MATCH_FIELD" envDefault:"national_id"`

	AdminToken         string        `env:"ADMIN_TOKEN"`
	DeactivationPolicy string        `env:"GATE_DEACTIVATION_POLICY" envDefault:"deny"`
	SyncLockLease      time.Duration `env:"GATE_SYNC_LOCK_LEASE" envDefault:"5m"`
	AutoSync           AutoSync

	DispatchPreviewDir string `env:"GATE_DISPATCH_PREVIEW_DIR" envDefault:"previews"`
	Timezone           string `env:"GATE_TIMEZONE" envDefault:"America/Caracas"`

	LogLevel  string `env:"GATE_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"GATE_LOG_FORMAT" envDefault:"json"`

	// Derived by Validate.
	Location *time.Location            `env:"-"`
	FromDate time.Time                 `env:"-"`
	Policy   domain.DeactivationPolicy `env:"-"`
}

// Load reads the given .env files (".env" when none are named), then the
// environment. Missing .env files are not an error.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StorePostgres, StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("GATE_STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}

	switch c.SourceDriver {
	case SourceMySQL:
	case SourceJSONFile:
		if strings.TrimSpace(c.SourceFile) == "" {
			errs = append(errs, errors.New("GATE_SOURCE_FILE: required for the jsonfile source"))
		}
	default:
		errs = append(errs, fmt.Errorf("GATE_SOURCE_DRIVER: unknown driver %q", c.SourceDriver))
	}

	switch domain.MatchField(c.MatchField) {
	case domain.MatchNationalID, domain.MatchRemoteID:
	default:
		errs = append(errs, fmt.Errorf("GATE_MATCH_FIELD: unknown field %q", c.MatchField))
	}

	policy, err := domain.ParseDeactivationPolicy(c.DeactivationPolicy)
	if err != nil {
		errs = append(errs, fmt.Errorf("GATE_DEACTIVATION_POLICY: %w", err))
	}
	c.Policy = policy

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("GATE_TIMEZONE: %w", err))
		loc = time.UTC
	}
	c.Location = loc

	from, err := time.ParseInLocation(time.DateOnly, c.SourceFromDate, loc)
	if err != nil {
		errs = append(errs, fmt.Errorf("GATE_SOURCE_FROM_DATE: %w", err))
	}
	c.FromDate = from

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("GATE_LOG_FORMAT: unknown format %q", c.LogFormat))
	}

	if c.SyncLockLease <= 0 {
		errs = append(errs, errors.New("GATE_SYNC_LOCK_LEASE: must be positive"))
	}
	if c.AutoSync.Enabled && c.AutoSync.Lookback <= 0 {
		errs = append(errs, errors.New("GATE_AUTO_SYNC_LOOKBACK: must be positive"))
	}

	return errors.Join(errs...)
}

// RequireAdminToken is checked by the HTTP server only; CLI commands run with
// operator access already.
func (c *Config) RequireAdminToken() error {
	if strings.TrimSpace(c.AdminToken) == "" {
		return errors.New("ADMIN_TOKEN: required to serve admin routes")
	}
	return nil
}
