package version

// Version is the strata version, in semver form with a leading "v".
// Overridden at build time via -ldflags "-X .../internal/version.Version=...".
var Version = "v0.4.1"
