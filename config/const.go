package config

import "strings"

// AppVersion is the version of the application.
var AppVersion string // Set via -ldflags at build time

// AppName is the name of the application.
const AppName = "Manpaper"

// LogSubDir is the sub directory for the log files.
var LogSubDir = "." + strings.ToLower(AppName)

// LogExt is the extension for the log files.
var LogExt = ".log"

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "MANPAPER"
