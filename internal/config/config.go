// Package config loads leapflow configuration from defaults, an optional
// YAML file, environment variables, and CLI flags, in ascending
// precedence.
package config

// Config is the resolved configuration shared by the CLI and the server.
type Config struct {
	// Engine is the declarative backend engine type.
	Engine string `koanf:"engine"`

	// Database is the engine database path; ":memory:" by default.
	Database string `koanf:"database"`

	// StatePath is the run-history SQLite file.
	StatePath string `koanf:"state_path"`

	// OutDir is where generated scripts are written.
	OutDir string `koanf:"out_dir"`

	// Port is the HTTP API listen port.
	Port int `koanf:"port"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// Output selects the run command's rendering: table, csv, or json.
	Output string `koanf:"output"`

	// FileUsed is the config file that was loaded, if any.
	FileUsed string `koanf:"-"`
}

// Defaults, overridable by file, environment, and flags.
const (
	DefaultEngine    = "duckdb"
	DefaultDatabase  = ":memory:"
	DefaultStatePath = "leapflow.db"
	DefaultOutDir    = "out"
	DefaultPort      = 8080
	DefaultOutput    = "table"
)
