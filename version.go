// Package agentsim provides the version information for agentsim.
package agentsim

// Version is the current version of agentsim.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
