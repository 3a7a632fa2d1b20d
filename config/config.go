// Package config loads and validates the daemon's single YAML
// configuration file — the same up-front structural validation idiom the
// teacher uses for automation definitions, applied one level up, to the
// daemon's own startup configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tender-barbarian/chronos/repository/models"
)

// Config is the daemon's full startup configuration, read from the one
// positional config-file argument.
type Config struct {
	MySQLHost string `yaml:"mysql_host"`
	MySQLUser string `yaml:"mysql_user"`
	MySQLPass string `yaml:"mysql_pass"`
	MySQLDB   string `yaml:"mysql_db"`
	MySQLSock string `yaml:"mysql_sock"`

	MaxFailures int `yaml:"max_failures"`

	UserDBFilePathScheme string `yaml:"user_db_file_path_scheme"`
	UserDBFileNameScheme string `yaml:"user_db_file_name_scheme"`

	MySQLDSNParams    map[string]string `yaml:"mysql_dsn_params"`
	MigrationsPath    string            `yaml:"migrations_path"`
	AdminAddr         string            `yaml:"admin_addr"`
	WorkerConcurrency int               `yaml:"worker_concurrency"`
	HTTPTimeoutRaw    string            `yaml:"http_timeout"`

	httpTimeout time.Duration
}

// HTTPTimeout returns the per-request timeout parsed from http_timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return c.httpTimeout
}

const (
	defaultAdminAddr         = "127.0.0.1:8091"
	defaultWorkerConcurrency = 32
	defaultHTTPTimeout       = 30 * time.Second
)

// Load reads and validates the YAML configuration file at path, applying
// defaults for every optional key left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.AdminAddr == "" {
		c.AdminAddr = defaultAdminAddr
	}
	if c.WorkerConcurrency == 0 {
		c.WorkerConcurrency = defaultWorkerConcurrency
	}
	if c.HTTPTimeoutRaw == "" {
		c.httpTimeout = defaultHTTPTimeout
		return nil
	}

	d, err := time.ParseDuration(c.HTTPTimeoutRaw)
	if err != nil {
		return models.NewValidationError(fmt.Sprintf("parsing http_timeout: %s", err))
	}
	c.httpTimeout = d
	return nil
}

// Validate checks the structural constraints the daemon depends on but
// can't express in the YAML schema itself, returning a
// models.ValidationError (the same type the teacher's Automation.Validate
// returns for a malformed definition) on the first violation found.
func (c *Config) Validate() error {
	if c.MySQLHost == "" {
		return models.NewValidationError("mysql_host must be set")
	}
	if c.MySQLUser == "" {
		return models.NewValidationError("mysql_user must be set")
	}
	if c.MySQLDB == "" {
		return models.NewValidationError("mysql_db must be set")
	}
	if c.MaxFailures < 0 {
		return models.NewValidationError("max_failures must be >= 0")
	}
	if !strings.Contains(c.UserDBFilePathScheme, "%u") {
		return models.NewValidationError("user_db_file_path_scheme must contain %u")
	}
	if c.UserDBFileNameScheme == "" {
		return models.NewValidationError("user_db_file_name_scheme must be set")
	}
	return nil
}

// MySQLDSN builds a go-sql-driver/mysql data source name from the
// configured connection fields. mysql_sock, when set, selects the unix
// socket network; otherwise it connects over tcp to mysql_host.
func (c *Config) MySQLDSN() string {
	var b strings.Builder
	b.WriteString(c.MySQLUser)
	if c.MySQLPass != "" {
		b.WriteString(":")
		b.WriteString(c.MySQLPass)
	}
	b.WriteString("@")

	if c.MySQLSock != "" {
		fmt.Fprintf(&b, "unix(%s)", c.MySQLSock)
	} else {
		fmt.Fprintf(&b, "tcp(%s)", c.MySQLHost)
	}

	fmt.Fprintf(&b, "/%s", c.MySQLDB)

	if len(c.MySQLDSNParams) > 0 {
		b.WriteString("?")
		first := true
		for k, v := range c.MySQLDSNParams {
			if !first {
				b.WriteString("&")
			}
			first = false
			fmt.Fprintf(&b, "%s=%s", k, v)
		}
	}

	return b.String()
}
