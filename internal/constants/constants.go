// Package constants holds small fixed values shared across the daemon.
package constants

const (
	DefaultCoreRemote = "origin"
	DefaultBranch     = "main"
)
