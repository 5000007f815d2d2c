package version

// Set via -ldflags at release time.
var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
