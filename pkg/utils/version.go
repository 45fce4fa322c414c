// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "fmt"

// Set at build time via -ldflags.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionString is the one-line form printed by "stylectl --version".
func VersionString() string {
	return fmt.Sprintf("stylectl %s (%s, built %s)", Version, Sha, Buildtime)
}
