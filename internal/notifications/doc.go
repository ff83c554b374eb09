// Package notifications delivers daemon events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. All daemon code depends only on the simple Service interface;
// extend this package for alternative transports.
package notifications
