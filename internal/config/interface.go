package config

import "context"

// Loader is the interface for a format-specific project loader.
type Loader interface {
	// Load reads every project file found under paths (files or
	// directories) and merges them into a single Project.
	Load(ctx context.Context, paths ...string) (*Project, error)
}
