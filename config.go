package pyhints

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings are the toggles consumed by the engines.
type Settings struct {
	ShowClassConstructorHints     bool
	ShowFunctionCallHints         bool
	ShowLambdaHints               bool
	ShowClassAttributeTypeHints   bool
	ShowGeneralVariableTypeHints  bool
	ShowFunctionReturnTypeHints   bool
	HideOverlappingParameterNames bool
}

// DefaultSettings returns every hint enabled with overlap hiding on.
func DefaultSettings() Settings {
	return Settings{
		ShowClassConstructorHints:     true,
		ShowFunctionCallHints:         true,
		ShowLambdaHints:               true,
		ShowClassAttributeTypeHints:   true,
		ShowGeneralVariableTypeHints:  true,
		ShowFunctionReturnTypeHints:   true,
		HideOverlappingParameterNames: true,
	}
}

// Config represents the .pyhints.yaml configuration file.
type Config struct {
	// Oracle names the registered oracle to use (default "treesitter").
	Oracle string `yaml:"oracle,omitempty"`

	// Hints holds the toggles; unset fields keep their defaults.
	Hints HintsConfig `yaml:"hints,omitempty"`

	// Per-pattern overrides (glob pattern -> toggles)
	// e.g., "tests/*.py": {parameters: {functions: false}}
	Files map[string]HintsConfig `yaml:"files,omitempty"`

	// Suppress holds extra suppression rules written as expressions.
	Suppress []RuleConfig `yaml:"suppress,omitempty"`
}

// HintsConfig mirrors Settings with optional fields.
type HintsConfig struct {
	Parameters ParameterHintsConfig `yaml:"parameters,omitempty"`
	Types      TypeHintsConfig      `yaml:"types,omitempty"`
}

// ParameterHintsConfig configures call-site parameter hints.
type ParameterHintsConfig struct {
	Classes      *bool `yaml:"classes,omitempty"`
	Functions    *bool `yaml:"functions,omitempty"`
	Lambdas      *bool `yaml:"lambdas,omitempty"`
	HideOverlaps *bool `yaml:"hide_overlaps,omitempty"`
}

// TypeHintsConfig configures variable and return type hints.
type TypeHintsConfig struct {
	Variables       *bool `yaml:"variables,omitempty"`
	ClassAttributes *bool `yaml:"class_attributes,omitempty"`
	Returns         *bool `yaml:"returns,omitempty"`
}

// RuleConfig is a user-defined suppression rule.
type RuleConfig struct {
	Name string `yaml:"name,omitempty"`
	// When is an expr-lang boolean expression; true suppresses the hint.
	When string `yaml:"when"`
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".pyhints.yaml", ".pyhints.yml", "pyhints.yaml", "pyhints.yml"}

// DefaultOracle is used when the config names none.
const DefaultOracle = "treesitter"

// LoadConfig finds and loads the nearest .pyhints.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// LoadConfigOrDefault is LoadConfig with a default config when no file
// exists. Other errors are returned.
func LoadConfigOrDefault(dir string) (*Config, string, error) {
	path, err := FindConfig(dir)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return &Config{}, "", nil
		}

		return nil, "", err
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, path, err
	}

	return cfg, path, nil
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return ParseConfig(data)
}

// ParseConfig parses config file content.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config

	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// OracleName returns the configured oracle or the default.
func (c *Config) OracleName() string {
	if c.Oracle == "" {
		return DefaultOracle
	}

	return c.Oracle
}

// Settings returns the toggles for files not matched by any pattern.
func (c *Config) Settings() Settings {
	s := DefaultSettings()
	c.Hints.apply(&s)

	return s
}

// SettingsFor returns the toggles for a file path. Pattern overrides are
// applied on top of the global toggles. A pattern matches the whole path or
// any trailing run of its elements, so "tests/*.py" matches
// /repo/tests/test_a.py.
func (c *Config) SettingsFor(filePath string) Settings {
	s := c.Settings()

	patterns := make([]string, 0, len(c.Files))
	for pattern := range c.Files {
		patterns = append(patterns, pattern)
	}

	// Map order is random; apply overrides deterministically.
	sort.Strings(patterns)

	for _, pattern := range patterns {
		if matchPath(pattern, filepath.ToSlash(filePath)) {
			c.Files[pattern].apply(&s)
		}
	}

	return s
}

func matchPath(pattern, path string) bool {
	for {
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}

		i := strings.IndexByte(path, '/')
		if i < 0 {
			return false
		}

		path = path[i+1:]
	}
}

func (h HintsConfig) apply(s *Settings) {
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	set(&s.ShowClassConstructorHints, h.Parameters.Classes)
	set(&s.ShowFunctionCallHints, h.Parameters.Functions)
	set(&s.ShowLambdaHints, h.Parameters.Lambdas)
	set(&s.HideOverlappingParameterNames, h.Parameters.HideOverlaps)
	set(&s.ShowGeneralVariableTypeHints, h.Types.Variables)
	set(&s.ShowClassAttributeTypeHints, h.Types.ClassAttributes)
	set(&s.ShowFunctionReturnTypeHints, h.Types.Returns)
}
