package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Vendor backends.
const (
	BackendFile     = "file"
	BackendHTTP     = "http"
	BackendPostgres = "postgres"
	BackendSim      = "sim"
)

// Vendor payload schemas.
const (
	SchemaInventoryStatus = "inventory_status"
	SchemaStockFlag       = "stock_flag"
	SchemaQuantityFlag    = "quantity_flag"
)

// VendorConfig describes one upstream vendor: which payload schema it
// speaks and which backend serves it.
type VendorConfig struct {
	Name    string `yaml:"name"`
	Schema  string `yaml:"schema"`
	Backend string `yaml:"backend"`

	// file and sim backends
	DataFile string `yaml:"data_file,omitempty"`

	// http backend
	BaseURL string  `yaml:"base_url,omitempty"`
	MaxRPS  float64 `yaml:"max_rps,omitempty"`

	// postgres backend
	DSN   string `yaml:"dsn,omitempty"`
	Table string `yaml:"table,omitempty"`

	// sim backend
	MinDelayMS  int     `yaml:"min_delay_ms,omitempty"`
	MaxDelayMS  int     `yaml:"max_delay_ms,omitempty"`
	FailureRate float64 `yaml:"failure_rate,omitempty"`
}

type vendorsFile struct {
	Vendors []VendorConfig `yaml:"vendors"`
}

// LoadVendors reads and validates the vendor registry.
func LoadVendors(path string) ([]VendorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f vendorsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Vendors) == 0 {
		return nil, fmt.Errorf("%s: no vendors defined", path)
	}

	seen := make(map[string]bool, len(f.Vendors))
	for i := range f.Vendors {
		v := &f.Vendors[i]
		if err := v.validate(); err != nil {
			return nil, fmt.Errorf("%s: vendor %q: %w", path, v.Name, err)
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("%s: duplicate vendor name %q", path, v.Name)
		}
		seen[v.Name] = true
	}
	return f.Vendors, nil
}

// Table names end up inside SQL text, so they are restricted to plain
// identifiers here rather than quoted at query time.
var tableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func (v *VendorConfig) validate() error {
	if v.Name == "" {
		return errors.New("name is required")
	}
	switch v.Schema {
	case SchemaInventoryStatus, SchemaStockFlag, SchemaQuantityFlag:
	default:
		return fmt.Errorf("unknown schema %q", v.Schema)
	}
	switch v.Backend {
	case BackendFile, BackendSim:
		if v.DataFile == "" {
			return fmt.Errorf("%s backend requires data_file", v.Backend)
		}
	case BackendHTTP:
		if v.BaseURL == "" {
			return errors.New("http backend requires base_url")
		}
	case BackendPostgres:
		if v.DSN == "" {
			return errors.New("postgres backend requires dsn")
		}
		if v.Table == "" {
			return errors.New("postgres backend requires table")
		}
		if !tableNameRe.MatchString(v.Table) {
			return fmt.Errorf("invalid table name %q", v.Table)
		}
	default:
		return fmt.Errorf("unknown backend %q", v.Backend)
	}
	if v.MinDelayMS < 0 || v.MaxDelayMS < v.MinDelayMS {
		return fmt.Errorf("invalid delay range [%d, %d]", v.MinDelayMS, v.MaxDelayMS)
	}
	if v.FailureRate < 0 || v.FailureRate > 1 {
		return fmt.Errorf("failure_rate %v outside [0, 1]", v.FailureRate)
	}
	if v.MaxRPS < 0 {
		return fmt.Errorf("max_rps must not be negative")
	}
	return nil
}
