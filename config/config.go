package config

import (
	"cfdns/common"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Config is the persisted document. Key names follow the legacy domains.json
// layout so that files written by earlier releases keep loading.
type Config struct {
	API       string          `toml:"API" json:"API" yaml:"API"`
	Domains   map[string]Zone `toml:"domains" json:"domains" yaml:"domains"`
	IP        *IPCache        `toml:"ip,omitempty" json:"ip,omitempty" yaml:"ip,omitempty"`
	Log       *Log            `toml:"log,omitempty" json:"log,omitempty" yaml:"log,omitempty"`
	IPSources []IPSource      `toml:"ip_sources,omitempty" json:"ip_sources,omitempty" yaml:"ip_sources,omitempty"`
}

// Zone is a tracked Cloudflare zone. Names maps record name to record ID.
type Zone struct {
	ID    string            `toml:"ID" json:"ID" yaml:"ID"`
	Names map[string]string `toml:"names" json:"names" yaml:"names"`
}

type IPCache struct {
	IP      string           `toml:"ip" json:"ip" yaml:"ip"`
	LastSet common.Timestamp `toml:"last_set" json:"last_set" yaml:"last_set"`
}

type Log struct {
	Level     *zapcore.Level `toml:"level,omitempty" json:"level,omitempty" yaml:"level,omitempty"`
	Encoding  *string        `toml:"encoding,omitempty" json:"encoding,omitempty" yaml:"encoding,omitempty"`
	InfoPath  *[]string      `toml:"info_path,omitempty" json:"info_path,omitempty" yaml:"info_path,omitempty"`
	ErrorPath *[]string      `toml:"error_path,omitempty" json:"error_path,omitempty" yaml:"error_path,omitempty"`
}

// IPSource selects one public IP lookup. Type picks the implementation,
// Source is its endpoint, Config holds type specific options.
type IPSource struct {
	Type   string         `toml:"type" json:"type" yaml:"type"`
	Source string         `toml:"source" json:"source" yaml:"source"`
	Config map[string]any `toml:"config,omitempty" json:"config,omitempty" yaml:"config,omitempty"`
}

type IPSourceSimpleConfig struct {
	Type    common.Family   `mapstructure:"type"`
	Timeout common.Duration `mapstructure:"timeout"`
}

type IPSourceCloudflareTraceConfig struct {
	Type         *common.Family  `mapstructure:"type"`
	Timeout      common.Duration `mapstructure:"timeout"`
	ForceAddress string          `mapstructure:"force_address"`
	IPHost       bool            `mapstructure:"ip_host"`
}

// DefaultIPSources is used when the document configures no source.
var DefaultIPSources = []IPSource{
	{Type: "simple", Source: "http://ipecho.net/plain"},
}

// Sources returns the configured IP sources, or DefaultIPSources.
func (c *Config) Sources() []IPSource {
	if len(c.IPSources) == 0 {
		return DefaultIPSources
	}
	return c.IPSources
}

// Validate reports every problem with the document at once. An empty result
// means the document is usable.
func Validate(c *Config) []string {
	var problems []string

	if c.API == "" {
		problems = append(problems, "API key not present")
	}

	if c.Domains == nil {
		problems = append(problems, "Domain list not present")
	} else if len(c.Domains) == 0 {
		problems = append(problems, "Domain list not populated")
	}

	return problems
}

// InvalidError carries every problem Validate found.
type InvalidError struct {
	Problems []string
}

func (e *InvalidError) Error() string {
	return "configuration invalid: " + strings.Join(e.Problems, ", ")
}

// Check is Validate as an error, nil when the document is usable.
func Check(c *Config) error {
	if problems := Validate(c); len(problems) > 0 {
		return &InvalidError{Problems: problems}
	}
	return nil
}
