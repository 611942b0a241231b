package gitfs

import "log/slog"

// Format selects the on-disk serialization of collections.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Config holds the explicit configuration for the local-clone connector.
// There is no environment-variable fallback; callers say what they want.
type Config struct {
	// Path is the working clone the collections live in.
	Path string

	// SystemDir is the hidden directory for locks and bookkeeping
	// (default ".marl"). It is added to .gitignore on Initialize.
	SystemDir string

	// AutoInit creates the directory and runs git init when missing.
	AutoInit bool

	// Plain disables git entirely: no init, no commits. Collections are
	// still written atomically and version-checked.
	Plain bool

	// MustExist refuses to create the directory.
	MustExist bool

	// Format is the collection serialization (default JSON).
	Format Format

	// BundleDir is where downloaded asset bundles are staged, one
	// subdirectory per bundle (default "<SystemDir>/bundles").
	BundleDir string

	// Watch enables the fsnotify watcher that invalidates the read cache
	// when collection files change outside this process.
	Watch bool

	// WatchErrorHandler receives watcher errors; nil means log-only.
	WatchErrorHandler func(error)

	Logger *slog.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.SystemDir == "" {
		out.SystemDir = ".marl"
	}
	if out.Format == "" {
		out.Format = FormatJSON
	}
	return out
}
