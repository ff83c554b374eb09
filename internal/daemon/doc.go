// Package daemon hosts the long-running airwaved process: it owns the
// single-instance lock, the control socket, and the orchestrator lifecycle.
package daemon
