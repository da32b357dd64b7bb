// Package config provides YAML-based configuration loading for Opboard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Opboard configuration, loaded from opboard.yaml.
type Config struct {
	DataDir     string            `yaml:"data_dir"`
	EvidenceDir string            `yaml:"evidence_dir"`
	ImageDir    string            `yaml:"image_dir"`
	Server      ServerConfig      `yaml:"server"`
	Credentials CredentialsConfig `yaml:"credentials"`
}

// ServerConfig holds settings for the web board.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// CredentialsConfig holds connection settings for the credential store.
// Driver is "sqlite" (file path) or "mysql" (host/port/database).
type CredentialsConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A missing file yields the default configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Parse(nil)
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.EvidenceDir == "" {
		c.EvidenceDir = "evidencias"
	}
	if c.ImageDir == "" {
		c.ImageDir = filepath.Join("files", "imagenes_op")
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Credentials.Driver == "" {
		c.Credentials.Driver = "sqlite"
	}
	if c.Credentials.Path == "" {
		c.Credentials.Path = "opboard.db"
	}
	if c.Credentials.Host == "" {
		c.Credentials.Host = "127.0.0.1"
	}
	if c.Credentials.Port == 0 {
		c.Credentials.Port = 3306
	}
	if c.Credentials.Database == "" {
		c.Credentials.Database = "opboard"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Credentials.Driver != "sqlite" && c.Credentials.Driver != "mysql" {
		errs = append(errs, fmt.Sprintf("credentials.driver %q must be sqlite or mysql", c.Credentials.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Collection file names within DataDir. These match the historical data
// layout and must not change.
const (
	StagesFile         = "etapas.json"
	OrdersFile         = "ordenes_produccion.json"
	TraceFile          = "trazabilidad.json"
	PendingAlertsFile  = "alertas_pendientes.json"
	ResolvedAlertsFile = "alertas_atendidas.json"
)

// StagesPath returns the stage catalog file path.
func (c *Config) StagesPath() string { return filepath.Join(c.DataDir, StagesFile) }

// OrdersPath returns the order store file path.
func (c *Config) OrdersPath() string { return filepath.Join(c.DataDir, OrdersFile) }

// TracePath returns the traceability log file path.
func (c *Config) TracePath() string { return filepath.Join(c.DataDir, TraceFile) }

// PendingAlertsPath returns the pending alerts file path.
func (c *Config) PendingAlertsPath() string { return filepath.Join(c.DataDir, PendingAlertsFile) }

// ResolvedAlertsPath returns the resolved alert history file path.
func (c *Config) ResolvedAlertsPath() string { return filepath.Join(c.DataDir, ResolvedAlertsFile) }
