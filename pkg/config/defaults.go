package config

// Walk defaults.
const (
	DefaultWorkers        = 1
	DefaultUseGitignore   = true
	DefaultSkipVendor     = false
	DefaultFollowSymlinks = false
	DefaultMaxFileSize    = "0"
)

// Detection defaults.
const (
	DefaultStrategy       = "pattern"
	DefaultTolerateErrors = false
)

// Rename defaults.
const (
	DefaultMaxLineLength  = 79
	DefaultFirstMatchOnly = false
)

// Output and logging defaults.
const (
	DefaultFormat   = "text"
	DefaultColor    = ColorAuto
	DefaultLogLevel = "warn"
	DefaultLogJSON  = false
)

// Colour modes for text output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)
