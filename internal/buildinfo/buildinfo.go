// Package buildinfo carries values stamped in at link time.
package buildinfo

// Version is overridden with -ldflags "-X robotmesh/internal/buildinfo.Version=...".
var Version = "dev"
