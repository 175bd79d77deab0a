package version

// Set at build time via -ldflags "-X github.com/stupside/reelpull/internal/version.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
