package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls which conventions are enforced, where, and which
// violation kinds fail the run.
type Config struct {
	ExcludePaths      []string `yaml:"exclude_paths"`
	ForbiddenPatterns []string `yaml:"forbidden_patterns"`

	CheckUnused     bool `yaml:"check_unused"`
	CheckMismatched bool `yaml:"check_mismatched"`
	CheckDuplicate  bool `yaml:"check_duplicate"`
	CheckForbidden  bool `yaml:"check_forbidden"`

	OutputFormat string `yaml:"output_format"`
	Verbose      bool   `yaml:"verbose"`

	ExitOnUnused     bool `yaml:"exit_on_unused"`
	ExitOnMismatched bool `yaml:"exit_on_mismatched"`
	ExitOnDuplicate  bool `yaml:"exit_on_duplicate"`
	ExitOnForbidden  bool `yaml:"exit_on_forbidden"`
}

// defaultConfig matches this repository's layout. The wire layer and the
// errors package itself use their own error styles, and entrypoints print
// user-facing errors with fmt, so only library packages are held to the
// structured-error rules.
func defaultConfig() *Config {
	return &Config{
		ExcludePaths: []string{
			"_examples/", ".git/", "vendor/",
			"cmd/", "examples/", "scripts/", "integration_tests/",
			"pkg/errors/", "pkg/hms/",
		},
		ForbiddenPatterns: []string{
			`fmt\.Errorf`,
			`\berrors\.New\("`,
		},
		CheckUnused:     true,
		CheckMismatched: true,
		CheckDuplicate:  true,
		CheckForbidden:  true,
		OutputFormat:    "human",

		// Unused codes warn rather than fail; new codes often land one
		// commit ahead of the call sites that use them.
		ExitOnUnused:     false,
		ExitOnMismatched: true,
		ExitOnDuplicate:  true,
		ExitOnForbidden:  true,
	}
}

// loadConfig reads the YAML config at path, falling back to .errorcode.yml
// in the working directory, then to defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		if _, err := os.Stat(".errorcode.yml"); err == nil {
			path = ".errorcode.yml"
		}
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
