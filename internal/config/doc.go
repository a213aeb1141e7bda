// Package config defines the format-agnostic project model: the rule sets
// a user authored for each phase, plus the project identity and remote
// endpoint they belong to. It also defines the Loader interface that
// format-specific packages (HCL, YAML) implement.
package config
