// Package main hosts the Airwave CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into control
// tokens fired at the daemon socket, station list maintenance, directory
// search, and configuration scaffolding. It centralizes configuration
// resolution and socket discovery so subcommands can focus on user
// experience instead of wiring.
package main
