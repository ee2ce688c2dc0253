// Package goap provides the version information for goap.
package goap

// Version is the current version of goap.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
