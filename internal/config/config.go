// Package config loads the specsync configuration directory.
//
// A config directory holds up to three files:
//
//	specs.json          registered upstream specs and discovery settings
//	classification.json change-classification rules for the differ
//	package.toml        generated-package layout for export verification
//
// specs.json and classification.json are JSON (loaded through viper so
// env overrides keep working); package.toml is TOML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// ConfigError indicates a missing or malformed configuration file or field.
// It is fatal: callers do not attempt a partial run.
type ConfigError struct {
	Path   string // file or directory the error refers to
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in %s: %s", e.Path, e.Reason)
}

// SpecConfig describes one registered upstream spec.
type SpecConfig struct {
	Name         string   `json:"name" mapstructure:"name"`
	URL          string   `json:"url" mapstructure:"url"`
	Flavor       string   `json:"flavor" mapstructure:"flavor"` // "rest" or "websocket", empty = sniff
	RequiresAuth bool     `json:"requires_auth" mapstructure:"requires_auth"`
	Experimental bool     `json:"experimental" mapstructure:"experimental"`
	AuthEnvVars  []string `json:"auth_env_vars" mapstructure:"auth_env_vars"`
}

// Specs is the parsed specs.json registry.
type Specs struct {
	Specs             map[string]SpecConfig `json:"specs" mapstructure:"specs"`
	OutputDir         string                `json:"output_dir" mapstructure:"output_dir"`
	DiscoveryPatterns []string              `json:"discovery_patterns" mapstructure:"discovery_patterns"`
	DiscoveryNames    []string              `json:"discovery_names" mapstructure:"discovery_names"`
	AuthEnvVars       []string              `json:"auth_env_vars" mapstructure:"auth_env_vars"`
}

// SpecNames returns the registered spec names, sorted.
func (s *Specs) SpecNames() []string {
	names := make([]string, 0, len(s.Specs))
	for name := range s.Specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CategoryRule maps schema names matching Pattern to a named category.
// Rules are evaluated in configured order; the first match wins, so an
// ambiguous name classifies deterministically.
type CategoryRule struct {
	Pattern  string `json:"pattern" mapstructure:"pattern"`
	Category string `json:"category" mapstructure:"category"`
}

// Classification is the parsed classification.json rule set.
type Classification struct {
	Categories     []CategoryRule      `json:"categories" mapstructure:"categories"`
	ParentModels   map[string][]string `json:"parent_models" mapstructure:"parent_models"`
	CriticalModels []string            `json:"critical_models" mapstructure:"critical_models"`
}

// Package is the parsed package.toml layout description.
type Package struct {
	BarrelFile          string   `toml:"barrel_file"`
	ModelsDir           string   `toml:"models_dir"`
	SkipFiles           []string `toml:"skip_files"`
	InternalBarrelFiles []string `toml:"internal_barrel_files"`
}

// LoadSpecs reads specs.json from the config directory. The file is
// required: fetch and history cannot run without a registry.
func LoadSpecs(configDir string) (*Specs, error) {
	path := filepath.Join(configDir, "specs.json")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("output_dir", "/tmp/specsync")

	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	var specs Specs
	if err := v.Unmarshal(&specs); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	if len(specs.Specs) == 0 {
		return nil, &ConfigError{Path: path, Reason: "no specs defined under \"specs\""}
	}
	for name, sc := range specs.Specs {
		if sc.URL == "" {
			return nil, &ConfigError{Path: path, Reason: fmt.Sprintf("spec %q is missing \"url\"", name)}
		}
	}

	return &specs, nil
}

// LoadClassification reads classification.json from the config
// directory. A missing file yields an empty rule set (the differ then
// runs with structural classification only); a present but malformed
// file is a ConfigError.
func LoadClassification(configDir string) (*Classification, error) {
	path := filepath.Join(configDir, "classification.json")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Classification{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	var cls Classification
	if err := v.Unmarshal(&cls); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	if err := cls.validate(path); err != nil {
		return nil, err
	}

	return &cls, nil
}

func (c *Classification) validate(path string) error {
	for i, rule := range c.Categories {
		if rule.Category == "" {
			return &ConfigError{Path: path, Reason: fmt.Sprintf("categories[%d] is missing \"category\"", i)}
		}
		if _, err := regexp.Compile(rule.Pattern); err != nil {
			return &ConfigError{Path: path, Reason: fmt.Sprintf("categories[%d] pattern %q: %v", i, rule.Pattern, err)}
		}
	}
	for parent, patterns := range c.ParentModels {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return &ConfigError{Path: path, Reason: fmt.Sprintf("parent_models[%q] pattern %q: %v", parent, p, err)}
			}
		}
	}
	return nil
}

// LoadPackage reads package.toml from the config directory. The file
// is required only by verify-exports.
func LoadPackage(configDir string) (*Package, error) {
	path := filepath.Join(configDir, "package.toml")

	var pkg Package
	if _, err := toml.DecodeFile(path, &pkg); err != nil {
		return nil, &ConfigError{Path: path, Reason: err.Error()}
	}

	if pkg.BarrelFile == "" {
		return nil, &ConfigError{Path: path, Reason: "missing \"barrel_file\""}
	}
	if pkg.ModelsDir == "" {
		return nil, &ConfigError{Path: path, Reason: "missing \"models_dir\""}
	}

	return &pkg, nil
}
