// Package textutil contains pure string helpers for stream metadata.
package textutil
