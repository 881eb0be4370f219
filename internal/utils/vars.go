package utils

import "time"

const (
	ToolName         = "gitb-install"
	ToolUserAgent    = "gitb-install/1"
	DefaultTimeout   = 3 * time.Minute
	DefaultKATimeout = 90 * time.Second
)

const DefaultBufferSize = 1024 * 256 // 256KB buffer

// Environment variables read by the installer. npm exports the first one to
// every lifecycle script of the package being installed.
const (
	EnvPackageVersion = "npm_package_version"
	EnvGitHubToken    = "GITHUB_TOKEN"
)
