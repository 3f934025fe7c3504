// Package config defines the format-agnostic job model the loaders produce,
// along with the Loader interface they implement.
//
// config.Model is the single source of truth handed to the scheduler. Concrete
// loaders for HCL and YAML live in separate packages.
package config
