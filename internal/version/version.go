// Package version carries build metadata injected with ldflags:
//
//	go build -ldflags "-X github.com/rickgao/gecko-volumes/internal/version.Version=1.2.0 \
//	                   -X github.com/rickgao/gecko-volumes/internal/version.Commit=$(git rev-parse --short HEAD)" \
//	    ./cmd/tracker
package version

// Set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns "version (commit)".
func String() string {
	return Version + " (" + Commit + ")"
}

// UserAgent is sent on every upstream API request.
func UserAgent() string {
	return "gecko-volumes/" + Version
}
