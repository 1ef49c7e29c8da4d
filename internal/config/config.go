// Package config provides configuration loading and management.
package config

// AuthorConfig contains default authorship values for generated projects.
type AuthorConfig struct {
	// Name is the default author name placed into generated files.
	// Env: STACKGEN_AUTHOR_NAME
	Name string `mapstructure:"name"`

	// Email is the default author email.
	// Env: STACKGEN_AUTHOR_EMAIL
	Email string `mapstructure:"email"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	Timestamps bool `mapstructure:"timestamps"`
}

// Config represents the stackgen CLI configuration.
// Loaded from ~/.stackgen/config.yaml; environment variables win over file
// values.
type Config struct {
	// ModulesDir is an on-disk module source used instead of the builtin
	// module set when present. Env: STACKGEN_MODULES_DIR
	ModulesDir string `mapstructure:"modulesDir"`

	// Author contains default authorship values.
	Author AuthorConfig `mapstructure:"author"`

	// Log contains logging-related settings.
	Log LogConfig `mapstructure:"log"`
}
