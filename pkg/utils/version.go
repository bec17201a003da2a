// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Set at build time via -ldflags.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// VersionString renders the build metadata for `switchboard version`.
func VersionString() string {
	return Version + " (" + Sha + ", built " + Buildtime + ")"
}
