package genkit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// ConfigFile is the name of the project configuration file.
const ConfigFile = "zodgen.toml"

// EnvPrefix prefixes environment overrides, e.g. ZODGEN_OUTPUT.
const EnvPrefix = "ZODGEN"

// Config is the project-level zodgen.toml configuration.
type Config struct {
	// Output is the generated file, or the directory in split mode.
	Output string `toml:"output" mapstructure:"output" json:"output"`

	// Mode is single or split.
	Mode string `toml:"mode" mapstructure:"mode" json:"mode"`

	// Namespace wraps single-file output in export namespace.
	Namespace string `toml:"namespace,omitempty" mapstructure:"namespace" json:"namespace,omitempty"`

	// Locale selects <lang_dir>/<locale>.yaml over the built-in English messages.
	Locale string `toml:"locale" mapstructure:"locale" json:"locale"`

	// LangDir holds locale YAML files. Relative to the config file.
	LangDir string `toml:"lang_dir,omitempty" mapstructure:"lang_dir" json:"langDir,omitempty"`

	// TypeSuffix is appended to schema names to form constants.
	TypeSuffix string `toml:"type_suffix" mapstructure:"type_suffix" json:"typeSuffix"`

	// Header replaces the generated-code header comment.
	Header string `toml:"header,omitempty" mapstructure:"header" json:"header,omitempty"`

	// Tags are build tags used when loading packages.
	Tags []string `toml:"tags,omitempty" mapstructure:"tags" json:"tags,omitempty"`

	// Attributes are display names used in messages, keyed by field. The
	// loader lowercases keys.
	Attributes map[string]string `toml:"attributes,omitempty" mapstructure:"attributes" json:"attributes,omitempty"`

	// CustomRules translate rules the built-in builders do not know.
	CustomRules []CustomRuleConfig `toml:"custom_rules,omitempty" mapstructure:"custom_rules" json:"customRules,omitempty"`

	Probe ProbeConfig `toml:"probe" mapstructure:"probe" json:"probe"`

	// Path is the file the configuration was read from, if any.
	Path string `toml:"-" mapstructure:"-" json:"path,omitempty"`
}

// CustomRuleConfig is one [[custom_rules]] entry.
type CustomRuleConfig struct {
	Name     string `toml:"name" mapstructure:"name" json:"name"`
	Mode     string `toml:"mode" mapstructure:"mode" json:"mode"`
	Code     string `toml:"code" mapstructure:"code" json:"code"`
	Priority int    `toml:"priority,omitempty" mapstructure:"priority" json:"priority,omitempty"`
}

// ProbeConfig tunes behavioral type inference.
type ProbeConfig struct {
	Threshold float64 `toml:"threshold" mapstructure:"threshold" json:"threshold"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Output:     "schemas.ts",
		Mode:       "single",
		Locale:     "en",
		LangDir:    "lang",
		TypeSuffix: "Schema",
		Probe:      ProbeConfig{Threshold: 0.5},
	}
}

// LoadConfig searches zodgen.toml from dir upwards and loads it over the
// defaults. Environment variables override file values. Without a file the
// defaults and environment apply.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads a configuration file. An empty path loads defaults
// and environment overrides only.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("output", def.Output)
	v.SetDefault("mode", def.Mode)
	v.SetDefault("locale", def.Locale)
	v.SetDefault("lang_dir", def.LangDir)
	v.SetDefault("type_suffix", def.TypeSuffix)
	v.SetDefault("probe.threshold", def.Probe.Threshold)
	v.SetDefault("namespace", "")
	v.SetDefault("header", "")
	v.SetDefault("tags", []string{})
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	for _, k := range v.AllKeys() {
		if s, ok := v.Get(k).(string); ok && strings.Contains(s, "${") {
			v.Set(k, expandEnv(s))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Path = path
	if path != "" {
		base := filepath.Dir(path)
		cfg.Output = resolvePath(base, cfg.Output)
		cfg.LangDir = resolvePath(base, cfg.LangDir)
	}
	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandEnv replaces ${VAR} and ${VAR:-default}.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		m := envRef.FindStringSubmatch(match)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[2]
	})
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// FindConfig searches for zodgen.toml starting from dir and going up to the
// root. It returns "" when there is none.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		p := filepath.Join(dir, ConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// ErrConfigExists is returned by WriteConfig when the file exists.
var ErrConfigExists = errors.New("config file already exists")

// EncodeConfig renders cfg as TOML.
func EncodeConfig(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteConfig writes cfg to dir/zodgen.toml. It refuses to overwrite an
// existing file unless force is set.
func WriteConfig(dir string, cfg *Config, force bool) (string, error) {
	path := filepath.Join(dir, ConfigFile)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	data, err := EncodeConfig(cfg)
	if err != nil {
		return path, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
