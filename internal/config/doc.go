// Package config defines the format-agnostic configuration model for a run,
// along with the Loader interface for reading it from various sources.
//
// The `config.Model` is the single source of truth for the `app` package,
// which turns it into run parameters, a runner and optional notifications.
// Concrete loaders, such as the HCL one, are provided in separate packages.
package config
