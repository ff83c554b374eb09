// Package config loads, validates, and defaults the airwave TOML
// configuration.
//
// Load resolves the file path (flag, AIRWAVE_CONFIG, or the default under
// ~/.config/airwave), applies defaults for anything unset, expands ~ in
// paths, and validates the result. A missing file is not an error; the
// defaults describe a working local setup.
package config
